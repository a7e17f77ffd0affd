// Package logsink provides an optional, best-effort mirror of a Pipe's or
// Task Runner's output into Redis streams, so an external dashboard can
// tail a session without polling read_output.
//
// Grounded on the original Python implementation's stream_logs
// (original_source/devops_agents/docker/utils/log_stream.py, which XADDs
// each line to a Redis stream and HSETs a terminal status), using the
// zap-logged go-redis client wrapper style from edirooss-zmux-server's
// redis/client.go. Unlike the original's module-level cached connection,
// this is an explicit *Sink a caller constructs once and passes around.
package logsink

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Sink mirrors command output to Redis; every method is best-effort —
// a Redis hiccup must never fail the Pipe or Task Runner operation it is
// shadowing.
type Sink struct {
	client *redis.Client
	log    *zap.Logger
}

// New dials addr (e.g. "localhost:6379"); the connection is lazy and
// failures surface only when a method is actually called.
func New(addr string, db int, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	return &Sink{client: client, log: logger.Named("logsink")}
}

// Close releases the underlying connection pool.
func (s *Sink) Close() error {
	return s.client.Close()
}

// streamKey namespaces a session's log stream by its pipe-id or runner-id.
func streamKey(sessionID string) string {
	return "shellmux:logs:" + sessionID
}

func statusKey(sessionID string) string {
	return "shellmux:status:" + sessionID
}

// AppendLine mirrors one line of output via XADD. Errors are logged, not
// returned, so a detached Redis instance never breaks the session it is
// shadowing.
func (s *Sink) AppendLine(ctx context.Context, sessionID, line string) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(sessionID),
		Values: map[string]any{"msg": line},
	}).Err(); err != nil {
		s.log.Warn("failed to mirror log line", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// MarkFinished records the terminal status and exit code via HSET, the Go
// equivalent of the original's final hset(key_status, ...) call.
func (s *Sink) MarkFinished(ctx context.Context, sessionID, status string, exitCode int) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := s.client.HSet(ctx, statusKey(sessionID), map[string]any{
		"status":    status,
		"exit_code": strconv.Itoa(exitCode),
	}).Err(); err != nil {
		s.log.Warn("failed to mirror terminal status", zap.String("session_id", sessionID), zap.Error(err))
	}
}
