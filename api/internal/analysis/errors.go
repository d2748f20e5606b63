package analysis

import (
	"errors"
	"fmt"
)

// UserMessage is the only failure text end users ever see for a failed call.
const UserMessage = "Analysis failed. Please ensure the image is clear and try again."

// ConfigurationError means the engine cannot run at all (no credential).
// It is raised before any network call and must not be retried.
type ConfigurationError struct {
	Key string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s environment variable not set", e.Key)
}

// AnalysisError wraps any failure of the remote call or of decoding its
// answer. Error() is always UserMessage; the cause is kept for logs.
type AnalysisError struct {
	Engine string
	cause  error
}

func NewAnalysisError(engine string, cause error) *AnalysisError {
	return &AnalysisError{Engine: engine, cause: cause}
}

func (e *AnalysisError) Error() string { return UserMessage }

func (e *AnalysisError) Unwrap() error { return e.cause }

// Cause returns the diagnostic error behind the user message.
func (e *AnalysisError) Cause() error { return e.cause }

func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func IsAnalysisError(err error) bool {
	var ae *AnalysisError
	return errors.As(err, &ae)
}

// UserFacing maps an error from Analyze to the text a front-end may show.
func UserFacing(err error) string {
	if err == nil {
		return ""
	}
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return ce.Error()
	}
	return UserMessage
}
