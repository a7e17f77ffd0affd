package shellmux

import (
	"regexp"
	"sync"

	"github.com/Mahdi-A98/shellmux/marker"
)

// chunkQueue is an unbounded FIFO of output chunks, drained by
// StreamOutput. It exists because a plain buffered channel would force a
// capacity choice the reader goroutine could block on; a slice guarded by
// a condition variable never blocks the producer.
type chunkQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []string
	closed bool
}

func newChunkQueue() *chunkQueue {
	q := &chunkQueue{}
	q.cond = sync.NewCond(&q.mu)

	return q
}

func (q *chunkQueue) push(s string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.items = append(q.items, s)
	q.cond.Broadcast()
}

// pop blocks until an item is available or the queue is closed, in which
// case ok is false.
func (q *chunkQueue) pop() (item string, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}

	if len(q.items) == 0 {
		return "", false
	}

	item, q.items = q.items[0], q.items[1:]

	return item, true
}

func (q *chunkQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	q.cond.Broadcast()
}

var promptPatternCache = map[marker.ShellType]*regexp.Regexp{}

func promptRegexp(s marker.ShellType) *regexp.Regexp {
	if re, ok := promptPatternCache[s]; ok {
		return re
	}

	re := regexp.MustCompile(marker.PromptPattern(s))
	promptPatternCache[s] = re

	return re
}

// readerLoop is the Pipe's single permitted reader of child: it blocks on
// Read, appends every chunk to outputBuffer, and fans it out to queue for
// StreamOutput consumers. It is the long-running goroutine analogous to
// the teacher's process.Wait goroutine, generalized from "wait for exit"
// to "wait for and relay every chunk, for the session's whole lifetime".
func (p *Pipe) readerLoop() {
	defer close(p.readerDone)
	defer p.queue.close()

	buf := make([]byte, 1024)

	for {
		n, err := p.child.Read(buf)

		if n > 0 {
			chunk := string(buf[:n])

			p.mu.Lock()
			p.outputBuffer.WriteString(chunk)
			p.mu.Unlock()

			p.queue.push(chunk)
		}

		if err != nil {
			p.log.Debug("pipe reader stopped", zapErr(err))

			return
		}

		select {
		case <-p.stopSignal:
			return
		default:
		}
	}
}
