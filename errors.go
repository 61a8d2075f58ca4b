package jsonsocket

import "errors"

// CodeInvalidJSON classifies faults raised when an inbound text frame is not
// valid JSON.
const CodeInvalidJSON = "E_INVALID_JSON"

var (
	// ErrClosed is passed to send callbacks when the socket is already closed.
	ErrClosed = errors.New("The socket is closed")
	// ErrInvalidJSON matches every *InvalidJSONError with errors.Is.
	ErrInvalidJSON = errors.New("invalid JSON")
	// ErrServerClosed is returned by Server.Accept after Server.Close.
	ErrServerClosed = errors.New("server is closed and cannot accept connections")
)

// InvalidJSONError is delivered to the fault handler when an inbound text frame
// could not be parsed.
type InvalidJSONError struct {
	Data string // raw frame text
	Err  error  // parser error
}

func (e *InvalidJSONError) Error() string {
	return "Could not parse JSON: " + e.Err.Error() + "\nRequest data: " + e.Data
}

// Code returns CodeInvalidJSON.
func (e *InvalidJSONError) Code() string {
	return CodeInvalidJSON
}

func (e *InvalidJSONError) Unwrap() error {
	return e.Err
}

func (e *InvalidJSONError) Is(target error) bool {
	return target == ErrInvalidJSON
}
