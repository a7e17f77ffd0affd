// Package config holds the small set of process-wide tunables the rest of
// shellmux needs (timeouts, the Docker endpoint, the optional Redis
// sink address), built with the same functional-options pattern the
// teacher uses throughout its provider Config types
// (providers/docker/config.go in the original tree this module started
// from).
//
// Config only carries values: no other package in this module reads a
// Config, so callers hand its fields to the constructors and options of
// those packages themselves.
package config

import "time"

// Config collects the tunables a process hosting Pipes, Task Runners, and
// the Docker Facade needs at startup.
type Config struct {
	// DockerHost is the Docker Engine endpoint. Empty uses the platform
	// default: unix:///var/run/docker.sock on Linux, npipe:////./pipe/docker_engine
	// on Windows (spec.md §6).
	DockerHost string

	// PromptTimeout bounds how long create_shell waits for the child's
	// initial prompt (spec.md §4.2 default 3s).
	PromptTimeout time.Duration

	// DefaultReadTimeout is used by read_output/read_output_streaming
	// callers that omit an explicit timeout (spec.md §6 default 5s).
	DefaultReadTimeout time.Duration

	// ForceTimeout bounds the SIGINT-to-SIGKILL escalation window for
	// stop_task_runner (spec.md §4.3 default 3s).
	ForceTimeout time.Duration

	// RedisAddr and RedisDB name the Redis instance for package logsink's
	// best-effort output mirroring; empty RedisAddr means no mirroring.
	RedisAddr string
	RedisDB   int
}

// Option configures a Config.
type Option func(*Config)

// WithDockerHost overrides the Docker Engine endpoint.
func WithDockerHost(host string) Option {
	return func(c *Config) { c.DockerHost = host }
}

// WithPromptTimeout overrides the initial-prompt wait.
func WithPromptTimeout(d time.Duration) Option {
	return func(c *Config) { c.PromptTimeout = d }
}

// WithDefaultReadTimeout overrides the default read timeout.
func WithDefaultReadTimeout(d time.Duration) Option {
	return func(c *Config) { c.DefaultReadTimeout = d }
}

// WithForceTimeout overrides the interrupt escalation window.
func WithForceTimeout(d time.Duration) Option {
	return func(c *Config) { c.ForceTimeout = d }
}

// WithRedisSink enables output mirroring to the given Redis address/db.
func WithRedisSink(addr string, db int) Option {
	return func(c *Config) {
		c.RedisAddr = addr
		c.RedisDB = db
	}
}

// New builds a Config from defaults plus opts.
func New(opts ...Option) Config {
	c := Config{
		PromptTimeout:      3 * time.Second,
		DefaultReadTimeout: 5 * time.Second,
		ForceTimeout:       3 * time.Second,
	}

	for _, o := range opts {
		o(&c)
	}

	return c
}
