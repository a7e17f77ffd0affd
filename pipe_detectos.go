package shellmux

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Mahdi-A98/shellmux/marker"
)

// osReleaseIDPattern matches the ID= line in /etc/os-release.
var osReleaseIDPattern = regexp.MustCompile(`(?m)^ID=(.+)$`)

// probeTimeout bounds each step of the detect_os probe sequence.
const probeTimeout = 5 * time.Second

// DetectOS implements detect_os: a sequenced probe across the three
// mainstream targets, per spec.md §4.2. A failed os-release or ver probe
// moves on to the next probe; a failed uname probe returns the literal
// string "unknown: <error>" rather than an error value, matching the
// original's "never let OS detection break the caller" contract.
func (p *Pipe) DetectOS(ctx context.Context) string {
	if out, err := p.probe(ctx, "cat /etc/os-release", marker.Bash); err == nil {
		if m := osReleaseIDPattern.FindStringSubmatch(out); m != nil {
			return strings.Trim(strings.TrimSpace(m[1]), `"`)
		}
	}

	if out, err := p.probe(ctx, "ver", marker.PowerShell); err == nil {
		if strings.Contains(out, "Windows") {
			return "windows"
		}
	}

	out, err := p.probe(ctx, "uname -s", marker.Bash)
	if err != nil {
		return fmt.Sprintf("unknown: %v", err)
	}

	if strings.Contains(out, "Darwin") {
		return "darwin"
	}

	out, err = p.probe(ctx, "uname -a", marker.Bash)
	if err != nil {
		return fmt.Sprintf("unknown: %v", err)
	}

	return strings.TrimSpace(out)
}

// probe runs one command end-to-end (write + read) against the pipe,
// bounded by probeTimeout, without disturbing the caller's own last_command
// bookkeeping beyond what run_command/read_output would normally do.
func (p *Pipe) probe(ctx context.Context, cmd string, shellType marker.ShellType) (string, error) {
	if err := p.Write(cmd, shellType, true); err != nil {
		return "", err
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	return p.ReadOutput(probeCtx, probeTimeout)
}
