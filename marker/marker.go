// Package marker implements the Marker Protocol described in spec.md §4.1:
// per-dialect rules for appending a unique completion sentinel to a command
// and recognising it in a free-form stdout stream.
//
// It is grounded on the original Python implementation's ShellTypes StrEnum
// and its two class-method lookup tables
// (original_source/devops_agents/docker/utils/cmd_tools.py), generalized
// into a Go value type with the same "one table per dialect" shape the
// teacher uses for invoke.TargetOS.
package marker

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// ShellType is the command syntax dialect used for marker composition and
// prompt matching. The same Pipe may see different ShellTypes across its
// lifetime (spec.md §9, "Shell-type drift within one pipe").
type ShellType string

const (
	Bash       ShellType = "BASH"
	PowerShell ShellType = "POWERSHELL"
	Postgres   ShellType = "POSTGRESQL"
	MySQL      ShellType = "MYSQL"
	Redis      ShellType = "REDIS"
	Mongo      ShellType = "MONGO"
	Python     ShellType = "PYTHON"
)

// dialect holds the two strings the composition rule needs for one ShellType.
type dialect struct {
	// echoTemplate has one %s placeholder for the marker token.
	echoTemplate string
	// terminator is the statement terminator appended before the echo command,
	// unless the user's command already ends with it.
	terminator string
	// promptPattern matches this dialect's interactive prompt, for the
	// initial "wait for prompt" probe in Pipe construction.
	promptPattern string
}

var dialects = map[ShellType]dialect{
	Bash:       {echoTemplate: "echo %s ", terminator: ";", promptPattern: `\$ |# |> `},
	PowerShell: {echoTemplate: "Write-Host %s ", terminator: ";", promptPattern: `> `},
	Postgres:   {echoTemplate: "select '%s'; ", terminator: ";", promptPattern: `postgres=[#>]`},
	MySQL:      {echoTemplate: "select '%s'; ", terminator: ";", promptPattern: `mysql>`},
	Redis:      {echoTemplate: `ECHO "%s" `, terminator: " ", promptPattern: `\$ |# |> `},
	Mongo:      {echoTemplate: `print("%s"); `, terminator: ";", promptPattern: `> `},
	Python:     {echoTemplate: `print("%s"); `, terminator: ";", promptPattern: `>>> |\$ |# |> `},
}

// Valid reports whether s is one of the enumerated dialects.
func Valid(s ShellType) bool {
	_, ok := dialects[s]
	return ok
}

// PromptPattern returns the regex used to detect this dialect's interactive
// prompt. Unknown dialects fall back to the generic bash/generic pattern
// (spec.md §6: "BASH/generic: \$ , # , > ").
func PromptPattern(s ShellType) string {
	if d, ok := dialects[s]; ok {
		return d.promptPattern
	}

	return dialects[Bash].promptPattern
}

// tokenHexLen is the number of hex characters in a marker token, whose wire
// format is MARKER_ followed by exactly 8 lowercase hex characters (spec.md §6).
const tokenHexLen = 8

// Pattern matches any marker token this process could ever have generated.
var Pattern = regexp.MustCompile(`MARKER_[a-f0-9]{8}`)

// EchoPatterns matches each dialect's marker-echoing command text, so that
// echoed commands (not just the bare token) can be stripped from output.
// Built once; %s placeholders are turned into the marker regex.
var EchoPatterns = buildEchoPatterns()

func buildEchoPatterns() *regexp.Regexp {
	var alts []string

	for _, d := range dialects {
		// Escape everything except the %s placeholder, then substitute the
		// marker pattern for it.
		escaped := regexp.QuoteMeta(d.echoTemplate)
		escaped = strings.Replace(escaped, regexp.QuoteMeta("%s"), Pattern.String(), 1)
		alts = append(alts, escaped)
	}

	return regexp.MustCompile(strings.Join(alts, "|"))
}

// New generates a fresh marker token in the form MARKER_<8 lowercase hex
// chars>, cryptographically random so that collisions across the process's
// lifetime are improbable (spec.md §3 invariant, §8 property 5).
func New() (string, error) {
	buf := make([]byte, tokenHexLen/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate marker: %w", err)
	}

	return "MARKER_" + hex.EncodeToString(buf), nil
}

// Compose builds the final line to send to the child for command C in
// dialect D with completion token marker, per spec.md §4.1's composition
// rule. ok is false only for an unrecognised ShellType.
//
// Redis is special-cased onto two lines because its command protocol does
// not compose statements on one line; callers should send redisLine (if
// non-empty) first, then echoLine.
func Compose(command string, shell ShellType, marker string) (redisLine, echoLine string, ok bool) {
	d, known := dialects[shell]
	if !known {
		return "", "", false
	}

	echo := fmt.Sprintf(d.echoTemplate, marker)

	if shell == Redis {
		return command, strings.TrimRight(echo, " "), true
	}

	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return "", strings.TrimRight(echo, " "), true
	}

	if !strings.HasSuffix(trimmed, d.terminator) {
		trimmed += d.terminator
	}

	return "", trimmed + " " + echo, true
}

// Strip removes every marker token and every dialect's echo-marker template
// text from s, leaving the caller's actual command output.
func Strip(s string) string {
	s = EchoPatterns.ReplaceAllString(s, "")
	s = Pattern.ReplaceAllString(s, "")

	return s
}
