package dockerfacade

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadContainerSpec(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spec.yaml")

	yamlContent := "image: mysql:8.0\nname: db\nenv:\n  - MYSQL_ROOT_PASSWORD=secret\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	spec, err := LoadContainerSpec(path)
	require.NoError(t, err)

	assert.Equal(t, "mysql:8.0", spec.Image)
	assert.Equal(t, "db", spec.Name)
	assert.Equal(t, []string{"MYSQL_ROOT_PASSWORD=secret"}, spec.Env)
	assert.True(t, spec.Detach)
}

func TestLoadContainerSpec_MissingImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spec.yaml")

	require.NoError(t, os.WriteFile(path, []byte("name: db\n"), 0o644))

	_, err := LoadContainerSpec(path)
	assert.Error(t, err)
}
