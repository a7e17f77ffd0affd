// Package fileutil holds small io.Reader wrappers shared by components
// that need progress reporting or cancellation-aware copying, split out
// of the Docker Facade so neither the facade nor the Pipe/TaskRunner
// transports need to duplicate this plumbing.
package fileutil

import (
	"context"
	"io"
)

// ProgressFunc receives (current, total) as a ProgressReader is consumed.
// total is 0 when the size is unknown.
type ProgressFunc func(current, total int64)

// ProgressReader wraps an io.Reader to report progress via a ProgressFunc.
// Grounded on the teacher's fileutil.ProgressReader, generalized from
// file-transfer progress to Docker image-pull progress (dockerfacade.PullImage).
type ProgressReader struct {
	io.Reader

	Total   int64
	Current int64
	Fn      ProgressFunc
}

// Read reads from the underlying reader and reports progress.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.Reader.Read(p)
	if n > 0 {
		pr.Current += int64(n)
		if pr.Fn != nil {
			pr.Fn(pr.Current, pr.Total)
		}
	}

	return n, err
}

// ContextReader wraps an io.Reader to check for context cancellation
// before each Read call, letting a long-running io.Copy be interrupted by
// context cancellation.
type ContextReader struct {
	Ctx    context.Context //nolint:containedctx
	Reader io.Reader
}

// Read checks for context cancellation before delegating to the underlying reader.
func (cr *ContextReader) Read(p []byte) (int, error) {
	if cr.Ctx.Err() != nil {
		return 0, cr.Ctx.Err()
	}

	return cr.Reader.Read(p)
}
