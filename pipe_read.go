package shellmux

import (
	"context"
	"strings"
	"time"

	"github.com/Mahdi-A98/shellmux/marker"
)

// pollInterval is how often ReadOutput re-checks the buffer for the
// completion marker while waiting.
const pollInterval = 50 * time.Millisecond

// ReadOutput implements read_until_marker / read_output: it waits until the
// current marker token appears in the child's output (or ctx/overallTimeout
// elapses, or the child dies), then returns the accumulated output since
// read_cursor with every marker occurrence and echo template stripped.
//
// On timeout it returns the partial output collected so far wrapped in a
// *TimeoutError, matching the original's "yield what you have, then stop"
// behavior without a panic (spec.md §4.2, §9).
func (p *Pipe) ReadOutput(ctx context.Context, overallTimeout time.Duration) (string, error) {
	deadline := time.Now().Add(overallTimeout)

	for {
		p.mu.Lock()
		buf := p.outputBuffer.String()
		cursor := p.readCursor
		tok := p.markerTok
		status := p.status
		p.mu.Unlock()

		window := buf[cursor:]

		if idx := strings.Index(window, tok); tok != "" && idx >= 0 {
			end := idx + len(tok)
			consumed := cursor + end

			p.mu.Lock()
			p.readCursor = consumed
			p.status = PipeCompleted
			p.mu.Unlock()

			return marker.Strip(window[:end]), nil
		}

		if status == PipeFailed {
			return marker.Strip(window), &EOFError{Partial: marker.Strip(window)}
		}

		select {
		case <-p.readerDone:
			p.mu.Lock()
			p.status = PipeFailed
			p.mu.Unlock()

			return marker.Strip(window), &EOFError{Partial: marker.Strip(window)}
		case <-ctx.Done():
			return marker.Strip(window), ctx.Err()
		default:
		}

		if time.Now().After(deadline) {
			p.mu.Lock()
			p.readCursor = len(buf)
			p.status = PipeTimedOut
			p.mu.Unlock()

			return marker.Strip(window), &TimeoutError{Partial: marker.Strip(window)}
		}

		select {
		case <-ctx.Done():
			return marker.Strip(window), ctx.Err()
		case <-p.readerDone:
			continue
		case <-time.After(pollInterval):
		}
	}
}
