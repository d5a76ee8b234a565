package manager

import "errors"

// ErrClosed is returned by Acquire after Close.
var ErrClosed = errors.New("model cache closed")

// loadFailureError reports that the external loader failed for an
// identifier. The cache is left unchanged when it occurs.
type loadFailureError struct {
	id    string
	cause error
}

func (e *loadFailureError) Error() string { return "load model " + e.id + ": " + e.cause.Error() }
func (e *loadFailureError) Unwrap() error { return e.cause }

// IsLoadFailure reports whether err came from a failed model load.
func IsLoadFailure(err error) bool {
	var lf *loadFailureError
	return errors.As(err, &lf)
}

// LoadFailureModel returns the identifier of the model that failed to load,
// or "" when err is not a load failure.
func LoadFailureModel(err error) string {
	var lf *loadFailureError
	if errors.As(err, &lf) {
		return lf.id
	}
	return ""
}

// generationFailureError wraps a failure raised by the token generator.
type generationFailureError struct{ cause error }

func (e *generationFailureError) Error() string { return "generation failed: " + e.cause.Error() }
func (e *generationFailureError) Unwrap() error { return e.cause }

// ErrGenerationFailure wraps err as a generation failure.
func ErrGenerationFailure(err error) error { return &generationFailureError{cause: err} }

// IsGenerationFailure reports whether err came from the token generator.
func IsGenerationFailure(err error) bool {
	var gf *generationFailureError
	return errors.As(err, &gf)
}

// validationError signals a malformed request, raised before any cache
// interaction.
type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

func errValidation(msg string) error { return &validationError{msg: msg} }

// IsValidation reports whether err indicates a malformed request (map to 400).
func IsValidation(err error) bool {
	var ve *validationError
	return errors.As(err, &ve)
}
