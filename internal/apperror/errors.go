package apperror

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
	// ErrStaleState is returned when a concurrent write changed the conversation
	// between read and write. Callers re-read and retry.
	ErrStaleState = errors.New("stale conversation state")

	ErrTranscriptionFailed = errors.New("transcription failed, please try again or switch to text input")
	ErrSynthesisFailed     = errors.New("speech synthesis failed, please try again or switch to text input")

	ErrModelCallExhausted     = errors.New("model call exhausted all attempts")
	ErrSchemaValidationFailed = errors.New("structured output did not match the expected schema")

	ErrDuplicateRegistration = errors.New("duplicate stage registration")
	ErrInvalidTransition     = errors.New("invalid stage transition")
)

// HTTPStatus maps an error from the taxonomy onto a response status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrStaleState):
		return http.StatusConflict
	case errors.Is(err, ErrTranscriptionFailed), errors.Is(err, ErrSynthesisFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrModelCallExhausted), errors.Is(err, ErrSchemaValidationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsRecoverable reports whether the caller may simply retry the same request.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrTranscriptionFailed) ||
		errors.Is(err, ErrSynthesisFailed) ||
		errors.Is(err, ErrStaleState) ||
		errors.Is(err, ErrModelCallExhausted)
}
