package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigShow_YAML(t *testing.T) {
	env := newTestEnv(t, 0)
	env.writeConfig(t, itemsStatement, "")

	stdout, _, err := execute(t, "config", "show", "-c", env.config)
	require.NoError(t, err)
	assert.Contains(t, stdout, "instance: items")
	assert.Contains(t, stdout, "driver: sqlite3")
	assert.Contains(t, stdout, "ping_timeout: 5s")
	assert.Contains(t, stdout, "queue_size: 256")
}

func TestConfigShow_EnvOverride(t *testing.T) {
	env := newTestEnv(t, 0)
	env.writeConfig(t, itemsStatement, "")
	t.Setenv("SQLPOLL_INSTANCE", "from-env")

	stdout, _, err := execute(t, "--format", "json", "config", "show", "-c", env.config)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Contains(t, stdout, "from-env")
}
