package shellmux

import (
	"context"
	"strings"

	"github.com/Mahdi-A98/shellmux/marker"
)

// StreamOutput implements stream_output: it drains the Pipe's chunk queue
// and yields one StreamEvent per line of output observed before the
// current marker appears, followed by a single terminal EventCompletion
// event carrying the cleaned final chunk. The returned channel is closed
// after the terminal event, after ctx is cancelled, or after the child
// exits.
func (p *Pipe) StreamOutput(ctx context.Context) <-chan StreamEvent {
	out := make(chan StreamEvent)

	go func() {
		defer close(out)

		var pending strings.Builder

		for {
			chunk, ok := p.queue.pop()
			if !ok {
				return
			}

			pending.WriteString(chunk)
			window := pending.String()

			p.mu.Lock()
			tok := p.markerTok
			p.mu.Unlock()

			if idx := strings.Index(window, tok); tok != "" && idx >= 0 {
				final := marker.Strip(window[:idx+len(tok)])

				p.mu.Lock()
				p.status = PipeCompleted
				p.mu.Unlock()

				select {
				case out <- StreamEvent{Type: EventCompletion, Content: final, CommandMarkerID: tok}:
				case <-ctx.Done():
				}

				return
			}

			for {
				idx := strings.IndexByte(pending.String(), '\n')
				if idx < 0 {
					break
				}

				cur := pending.String()
				line := marker.Strip(cur[:idx])
				rest := cur[idx+1:]

				pending.Reset()
				pending.WriteString(rest)

				if line == "" {
					continue
				}

				select {
				case out <- StreamEvent{Type: EventPartialOutput, Content: line}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
