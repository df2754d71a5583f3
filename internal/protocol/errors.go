package protocol

// InvalidRequestError marks a validation failure that is always the
// client's fault: malformed body, unknown enum value, unknown model. The
// payment state machine and handlers translate it to HTTP 400.
type InvalidRequestError struct {
	Message string
}

func (e *InvalidRequestError) Error() string {
	return e.Message
}

// NewInvalidRequest builds an InvalidRequestError with the given message.
func NewInvalidRequest(message string) error {
	return &InvalidRequestError{Message: message}
}
