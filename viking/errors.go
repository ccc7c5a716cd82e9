package viking

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error codes used by the knowledge base and by this server.
const (
	CodeInvalidArgument  = "INVALID_ARGUMENT"
	CodeNotFound         = "NOT_FOUND"
	CodeAlreadyExists    = "ALREADY_EXISTS"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeUnavailable      = "UNAVAILABLE"
	CodeDeadlineExceeded = "DEADLINE_EXCEEDED"
	CodeInternal         = "INTERNAL"
)

// Error is a tagged failure reported by the knowledge base.
type Error struct {
	Code    string
	Message string
	Details any
}

// NewError builds an Error.
func NewError(code, message string, details any) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

// Errorf builds an Error with a formatted message and no details.
func Errorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return "viking: " + e.Code + ": " + e.Message
}

// ErrorCode returns the wire code.
func (e *Error) ErrorCode() string {
	return e.Code
}

// AsError returns the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IsCode reports whether err carries an *Error with the given code.
func IsCode(err error, code string) bool {
	ve, ok := AsError(err)
	return ok && ve.Code == code
}

type errorEnvelope struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

type denialEnvelope struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FormatError renders e as {"error":true,"code","message","details"}.
func FormatError(e *Error) string {
	return mustJSON(errorEnvelope{
		Error:   true,
		Code:    e.Code,
		Message: e.Message,
		Details: JSONSafe(e.Details),
	})
}

// PermissionDenied renders {"error":true,"code":"PERMISSION_DENIED","message"}.
func PermissionDenied(message string) string {
	return InBandError(CodePermissionDenied, message)
}

// InBandError renders an error payload without details, as used for
// argument validation done by the tools themselves.
func InBandError(code, message string) string {
	return mustJSON(denialEnvelope{Error: true, Code: code, Message: message})
}

// Render serializes a tool result as JSON. Values encoding/json cannot
// represent are rendered as their display form.
func Render(v any) string {
	return mustJSON(JSONSafe(v))
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// JSONSafe guarantees encodability; this path keeps the contract
		// of always returning a JSON document.
		b, _ = json.Marshal(fmt.Sprint(v))
	}
	return string(b)
}

// JSONSafe returns a value that encoding/json can always marshal. Errors
// become their message; maps and slices are walked; any other value that
// fails to marshal is replaced by fmt.Sprint of it.
func JSONSafe(v any) any {
	switch x := v.(type) {
	case nil, bool, string, int, int64:
		return x
	case error:
		return x.Error()
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = JSONSafe(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = JSONSafe(val)
		}
		return out
	default:
		if _, err := json.Marshal(x); err != nil {
			return fmt.Sprint(x)
		}
		return x
	}
}
