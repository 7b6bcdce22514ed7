package services

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("Unauthorized")
	ErrEmailTaken   = errors.New("User already exists")
)

// InputError carries a client-facing message and matches ErrInvalidInput.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidInput(message string) error {
	return &InputError{Message: message}
}
