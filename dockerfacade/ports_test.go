package dockerfacade

import (
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePorts(t *testing.T) {
	exposed, bindings, err := parsePorts(map[string]string{"8080": "80"})
	require.NoError(t, err)

	port, err := nat.NewPort("tcp", "80")
	require.NoError(t, err)

	_, isExposed := exposed[port]
	assert.True(t, isExposed)

	require.Len(t, bindings[port], 1)
	assert.Equal(t, "8080", bindings[port][0].HostPort)
}

func TestParsePorts_InvalidPort(t *testing.T) {
	_, _, err := parsePorts(map[string]string{"8080": "not-a-port"})
	assert.Error(t, err)
}

func TestEnvelope_OkAndFail(t *testing.T) {
	e := ok("done")
	assert.True(t, e.Success)
	assert.Equal(t, "done", e.Output)
	assert.Empty(t, e.Error)

	e2 := fail(assertError{"boom"})
	assert.False(t, e2.Success)
	assert.Equal(t, "boom", e2.Error)
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
