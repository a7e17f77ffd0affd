package logsink

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// These exercise the best-effort contract against an address nothing is
// listening on: every call must return without panicking or blocking past
// its internal timeout, mirroring the "never break the caller" guarantee.
func TestSink_BestEffortAgainstUnreachableRedis(t *testing.T) {
	sink := New("127.0.0.1:1", 0, nil)
	defer sink.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.NotPanics(t, func() {
		sink.AppendLine(ctx, "session-1", "hello")
		sink.MarkFinished(ctx, "session-1", "DONE", 0)
	})
}

func TestStreamAndStatusKeys(t *testing.T) {
	assert.Equal(t, "shellmux:logs:abc", streamKey("abc"))
	assert.Equal(t, "shellmux:status:abc", statusKey("abc"))
}
