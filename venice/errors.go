package venice

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/petal-labs/venice-go/core"
)

// apiErrorBody is the structured error payload the service returns. The
// error field is a plain string on some endpoints and an object on others.
type apiErrorBody struct {
	Error   json.RawMessage `json:"error"`
	Details map[string]any  `json:"details"`
}

type apiErrorObject struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// normalizeError converts a non-2xx response into a classified error,
// carrying the parsed error body and any rate-limit headers.
func normalizeError(status int, body []byte, header http.Header) *core.Error {
	e := &core.Error{
		Kind:      kindForStatus(status),
		Status:    status,
		Message:   http.StatusText(status),
		RequestID: requestIDFrom(header),
	}

	var parsed apiErrorBody
	if len(body) > 0 && json.Unmarshal(body, &parsed) == nil && len(parsed.Error) > 0 {
		var obj apiErrorObject
		var msg string
		switch {
		case json.Unmarshal(parsed.Error, &obj) == nil && obj.Message != "":
			e.Code = obj.Code
			e.Message = obj.Message
		case json.Unmarshal(parsed.Error, &msg) == nil && msg != "":
			e.Message = msg
		}
		for field := range parsed.Details {
			e.Fields = append(e.Fields, field)
		}
	}

	if e.Kind == core.KindRateLimited {
		e.RetryAfter = retryAfterFrom(header)
	}

	return e
}

func kindForStatus(status int) core.ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.KindAuthentication
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return core.KindValidation
	case status == http.StatusNotFound:
		return core.KindNotFound
	case status == http.StatusTooManyRequests:
		return core.KindRateLimited
	case status == http.StatusRequestTimeout:
		return core.KindTransient
	case status >= 500:
		return core.KindTransient
	default:
		return core.KindUnknown
	}
}

func requestIDFrom(header http.Header) string {
	if id := header.Get("x-request-id"); id != "" {
		return id
	}
	return header.Get("cf-ray")
}

// retryAfterFrom parses the Retry-After header, which carries either a
// delay in seconds or an HTTP date.
func retryAfterFrom(header http.Header) time.Duration {
	v := header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
