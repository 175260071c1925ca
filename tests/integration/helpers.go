//go:build integration

// Package integration provides integration tests that exercise the SDK
// against the live Venice API. They require VENICE_API_KEY and are gated
// behind the integration build tag:
//
//	go test -tags integration ./tests/integration/
package integration

import (
	"os"
	"testing"
)

// isCI returns true if running in a CI environment.
func isCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "CIRCLECI", "TRAVIS", "JENKINS_URL"}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// skipIfNoAPIKey skips the test when VENICE_API_KEY is not set. In CI it
// fails loudly instead, unless VENICE_SKIP_INTEGRATION is set.
func skipIfNoAPIKey(t *testing.T) {
	t.Helper()
	if os.Getenv("VENICE_API_KEY") != "" {
		return
	}
	if isCI() && os.Getenv("VENICE_SKIP_INTEGRATION") == "" {
		t.Fatal("VENICE_API_KEY not set (CI environment detected; set VENICE_SKIP_INTEGRATION=1 to skip)")
	}
	t.Skip("VENICE_API_KEY not set")
}

// getAPIKey returns the API key for integration tests.
func getAPIKey(t *testing.T) string {
	t.Helper()
	return os.Getenv("VENICE_API_KEY")
}

// testModel is a small, widely available text model.
const testModel = "llama-3.2-3b"
