package commands

import (
	"fmt"
	"os"

	"github.com/petal-labs/venice-go/cli/keystore"
	"github.com/petal-labs/venice-go/core"
	"github.com/petal-labs/venice-go/venice"
)

// Exit codes
const (
	ExitSuccess    = 0
	ExitValidation = 1
	ExitAPI        = 2
	ExitNetwork    = 3
)

// exitError wraps an error with a process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
func (e *exitError) ExitCode() int { return e.code }

func exitWithCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// resolveAPIKey looks up the credential: the VENICE_API_KEY environment
// variable wins, then the keystore entry named by api_key_ref (or
// "default").
func resolveAPIKey() (string, error) {
	if key := os.Getenv(venice.DefaultAPIKeyEnvVar); key != "" {
		return key, nil
	}

	ks, err := keystore.NewKeystore()
	if err != nil {
		return "", fmt.Errorf("failed to open keystore: %w", err)
	}

	ref := cfg.APIKeyRef
	if ref == "" {
		ref = keystore.DefaultKeyName
	}

	key, err := ks.Get(ref)
	if err != nil {
		if _, ok := err.(*keystore.ErrKeyNotFound); ok {
			return "", fmt.Errorf("no API key found: run 'venice keys set' or export %s", venice.DefaultAPIKeyEnvVar)
		}
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return key, nil
}

// newClient builds an SDK client from the loaded configuration and flags.
func newClient() (*venice.Client, error) {
	apiKey, err := resolveAPIKey()
	if err != nil {
		return nil, exitWithCode(ExitValidation, err)
	}

	opts := []venice.Option{}
	if cfg.BaseURL != "" {
		opts = append(opts, venice.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxConcurrent > 0 {
		opts = append(opts, venice.WithMaxConcurrent(cfg.MaxConcurrent))
	}
	if cfg.RequestsPerMinute > 0 {
		opts = append(opts, venice.WithRequestsPerMinute(cfg.RequestsPerMinute))
	}

	level := core.LogNone
	if cfg.LogLevel != "" {
		level, err = core.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return nil, exitWithCode(ExitValidation, err)
		}
	}
	if IsVerbose() {
		level = core.LogDebug
	}
	if level != core.LogNone {
		opts = append(opts,
			venice.WithLogLevel(level),
			venice.WithMiddleware(core.Logging(core.NewLevelLogger(nil, level))),
		)
	}

	return venice.New(apiKey, opts...), nil
}

// apiError converts an SDK error into an exit-coded CLI error.
func apiError(err error) error {
	switch core.KindOf(err) {
	case core.KindValidation:
		return exitWithCode(ExitValidation, err)
	case core.KindTransient, core.KindCanceled:
		return exitWithCode(ExitNetwork, err)
	default:
		return exitWithCode(ExitAPI, err)
	}
}
