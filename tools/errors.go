package tools

import (
	"errors"

	"github.com/jonwraymond/openviking-mcp/auth"
	"github.com/jonwraymond/openviking-mcp/viking"
)

// argumentError is an argument problem detected by a tool itself. It is
// rendered without details.
type argumentError struct {
	msg string
}

func (e *argumentError) Error() string     { return "tools: " + e.msg }
func (e *argumentError) ErrorCode() string { return viking.CodeInvalidArgument }

func invalidArgument(msg string) error {
	return &argumentError{msg: msg}
}

// rawText is a tool result returned verbatim instead of as JSON.
type rawText string

// render turns a tool outcome into the text returned to the client. Only
// errors that are not rendered in-band come back as an error.
func render(out any, err error) (string, error) {
	if err == nil {
		if s, ok := out.(rawText); ok {
			return string(s), nil
		}
		return viking.Render(out), nil
	}

	var denied *auth.AuthzError
	if errors.As(err, &denied) {
		return viking.PermissionDenied(denied.Reason), nil
	}
	var arg *argumentError
	if errors.As(err, &arg) {
		return viking.InBandError(arg.ErrorCode(), arg.msg), nil
	}
	if ve, ok := viking.AsError(err); ok {
		return viking.FormatError(ve), nil
	}
	return "", err
}
