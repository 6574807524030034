package classify

import "errors"

// Error kinds the pipeline dispatches on. All of them are terminal for the
// affected file once retries are exhausted; none of them aborts the batch.
var (
	// ErrTransient covers network failures, timeouts, rate limiting and
	// server errors from the classification service. Retried with backoff.
	ErrTransient = errors.New("classification service unavailable")

	// ErrParse means the service answered but the response could not be
	// mapped to a classification result. Not retried.
	ErrParse = errors.New("classification response unparseable")

	// ErrRender means the document could not be rendered to an image, so
	// there was nothing to send. Not retried.
	ErrRender = errors.New("document rendering failed")
)
