// Package apierr classifies unsuccessful responses from the article service.
package apierr

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
)

// maxBodySize bounds how much of an error body is kept.
const maxBodySize = 1 << 20

// Kind separates the failures callers usually branch on.
type Kind int

const (
	// KindUnsuccessful is any non-2xx response without a more specific kind.
	KindUnsuccessful Kind = iota
	// KindAuthorization is a 400 or 401 that survived the refresh attempt.
	KindAuthorization
	// KindNotFound is a 404.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not found"
	default:
		return "unsuccessful response"
	}
}

// KindForStatus maps an HTTP status to its Kind.
func KindForStatus(code int) Kind {
	switch code {
	case http.StatusBadRequest, http.StatusUnauthorized:
		return KindAuthorization
	case http.StatusNotFound:
		return KindNotFound
	default:
		return KindUnsuccessful
	}
}

// Error is an unsuccessful HTTP response.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Body       []byte
	Method     string
	URL        string
}

func (e *Error) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("%s %s: %s (status %d): %s", e.Method, e.URL, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.Message)
}

// FromResponse reads and closes resp.Body and returns the matching Error.
func FromResponse(resp *http.Response) *Error {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		body = nil
	}

	e := New(resp.StatusCode, body)
	if resp.Request != nil {
		e.Method = resp.Request.Method
		e.URL = resp.Request.URL.Redacted()
	}
	return e
}

// New builds an Error for a status code and raw body.
func New(code int, body []byte) *Error {
	return &Error{
		Kind:       KindForStatus(code),
		StatusCode: code,
		Message:    Message(code, body),
		Body:       body,
	}
}

// Message extracts a human readable message from an error body, falling back
// to the status text.
func Message(code int, body []byte) string {
	if gjson.ValidBytes(body) {
		result := gjson.GetManyBytes(body, "error_description", "error", "error.message", "message")
		for _, r := range result {
			if r.Type == gjson.String && r.Str != "" {
				return r.Str
			}
		}
	}
	if text := http.StatusText(code); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", code)
}

// IsNotFound reports whether err is, or wraps, a 404 Error.
func IsNotFound(err error) bool {
	return hasKind(err, KindNotFound)
}

// IsAuthorization reports whether err is, or wraps, an authorization Error.
func IsAuthorization(err error) bool {
	return hasKind(err, KindAuthorization)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func hasKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
