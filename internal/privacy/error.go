package privacy

// scrubbedError reports a scrubbed message while keeping the original chain
// available to errors.Is and errors.As.
type scrubbedError struct {
	cause error
	msg   string
}

func (e *scrubbedError) Error() string { return e.msg }

func (e *scrubbedError) Unwrap() error { return e.cause }

// WrapError returns err with URLs and DSN credentials scrubbed from its
// message, or nil for a nil err. Bot tokens embedded in API URLs and shoutrrr
// service URLs never reach logs or alerts through the wrapped error.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	return &scrubbedError{cause: err, msg: ScrubMessage(err.Error())}
}
