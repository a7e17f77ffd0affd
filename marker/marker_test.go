package marker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UniqueAndWellFormed(t *testing.T) {
	seen := make(map[string]struct{})

	for i := 0; i < 1000; i++ {
		m, err := New()
		require.NoError(t, err)
		assert.True(t, Pattern.MatchString(m), "marker %q does not match wire format", m)

		_, dup := seen[m]
		assert.False(t, dup, "marker collision: %s", m)
		seen[m] = struct{}{}
	}
}

func TestCompose_Bash(t *testing.T) {
	_, line, ok := Compose("echo hello", Bash, "MARKER_deadbeef")
	require.True(t, ok)
	assert.Equal(t, "echo hello; echo MARKER_deadbeef ", line)
}

func TestCompose_BashTerminatorAlreadyPresent(t *testing.T) {
	_, line, ok := Compose("echo hello;", Bash, "MARKER_deadbeef")
	require.True(t, ok)
	assert.Equal(t, "echo hello; echo MARKER_deadbeef ", line)
}

func TestCompose_EmptyCommandYieldsOnlyMarkerEcho(t *testing.T) {
	_, line, ok := Compose("   ", Bash, "MARKER_deadbeef")
	require.True(t, ok)
	assert.Equal(t, "echo MARKER_deadbeef", line)
}

func TestCompose_Redis_TwoLines(t *testing.T) {
	redisLine, echoLine, ok := Compose("PING", Redis, "MARKER_deadbeef")
	require.True(t, ok)
	assert.Equal(t, "PING", redisLine)
	assert.Equal(t, `ECHO "MARKER_deadbeef"`, echoLine)
}

func TestCompose_PowerShell(t *testing.T) {
	_, line, ok := Compose("Write-Host hi", PowerShell, "MARKER_deadbeef")
	require.True(t, ok)
	assert.Equal(t, "Write-Host hi; Write-Host MARKER_deadbeef ", line)
}

func TestCompose_UnknownShellType(t *testing.T) {
	_, _, ok := Compose("echo hi", ShellType("COBOL"), "MARKER_deadbeef")
	assert.False(t, ok)
}

func TestStrip_RemovesTokenAndEchoTemplate(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	_, line, ok := Compose("echo hello", Bash, m)
	require.True(t, ok)

	// Simulate the child echoing back the command it was sent, followed by
	// the command's own stdout, followed by the marker appearing again from
	// the echo command's own execution.
	raw := line + "\nhello\n" + m + "\n"

	cleaned := Strip(raw)

	assert.False(t, Pattern.MatchString(cleaned), "cleaned output still contains a marker: %q", cleaned)
	assert.True(t, strings.Contains(cleaned, "hello"))
}

func TestPromptPattern_FallsBackToGeneric(t *testing.T) {
	assert.Equal(t, PromptPattern(Bash), PromptPattern(ShellType("nonsense")))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(Bash))
	assert.True(t, Valid(Redis))
	assert.False(t, Valid(ShellType("COBOL")))
}
