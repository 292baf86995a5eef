package job

import (
	"errors"

	"transcriptor/internal/language"
	"transcriptor/internal/resultparser"
	"transcriptor/internal/services"
	"transcriptor/internal/transcript"
)

// ErrorKind names the category of a job failure for reports and history.
type ErrorKind string

const (
	KindNone                ErrorKind = ""
	KindValidation          ErrorKind = "validation"
	KindStorage             ErrorKind = "storage"
	KindSubmit              ErrorKind = "submit"
	KindPoll                ErrorKind = "poll"
	KindFetch               ErrorKind = "fetch"
	KindMalformedResult     ErrorKind = "malformed_result"
	KindUnsupportedLanguage ErrorKind = "unsupported_language"
	KindRemoteFailure       ErrorKind = "remote_failure"
	KindTimeout             ErrorKind = "timeout"
	KindExternalTool        ErrorKind = "external_tool"
	KindCancelled           ErrorKind = "cancelled"
	KindInternal            ErrorKind = "internal"
)

// Kind classifies err. Cancellation and timeout take precedence over the
// operation that was in flight.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, services.ErrCancelled):
		return KindCancelled
	case errors.Is(err, services.ErrTimeout):
		return KindTimeout
	case errors.Is(err, language.ErrUnsupported):
		return KindUnsupportedLanguage
	case errors.Is(err, resultparser.ErrMalformedResult):
		return KindMalformedResult
	case errors.Is(err, services.ErrValidation), errors.Is(err, transcript.ErrValidation):
		return KindValidation
	case errors.Is(err, services.ErrRemoteFailure):
		return KindRemoteFailure
	case errors.Is(err, services.ErrStorage):
		return KindStorage
	case errors.Is(err, services.ErrSubmit):
		return KindSubmit
	case errors.Is(err, services.ErrPoll):
		return KindPoll
	case errors.Is(err, services.ErrFetch):
		return KindFetch
	case errors.Is(err, services.ErrExternalTool):
		return KindExternalTool
	default:
		return KindInternal
	}
}
