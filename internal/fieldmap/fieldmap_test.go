package fieldmap

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	m := Defaults()

	id, ok := m.Lookup("custom_priority", "Critical")
	require.True(t, ok)
	assert.Equal(t, int64(52), id)

	id, ok = m.Lookup("state_id", "Deprecated")
	require.True(t, ok)
	assert.Equal(t, int64(5), id)

	id, ok = m.Lookup("custom_issues_tags_and_configurations_added", "No")
	require.True(t, ok)
	assert.Equal(t, int64(67), id)

	_, ok = m.Lookup("tags", "domain")
	assert.False(t, ok)
	_, ok = m.Lookup("state_id", "Unknown")
	assert.False(t, ok)

	assert.Contains(t, m.Fields(), "result_status_id")
	assert.Contains(t, m.Fields(), "defaults")
}

func TestDefaultsMarshalJSON(t *testing.T) {
	data, err := json.Marshal(Defaults())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	tags := decoded["tags"].(map[string]any)
	assert.Equal(t, []any{"regression", "smoke", "sanity"}, tags["scope"])
}

func TestSection(t *testing.T) {
	m := Defaults()
	section, err := m.Section("automation_run_status")
	require.NoError(t, err)
	assert.Len(t, section, 3)

	_, err = m.Section("nope")
	require.ErrorIs(t, err, ErrUnknownField)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	custom := filepath.Join(dir, "mappings.yaml")
	require.NoError(t, os.WriteFile(custom, []byte("state_id:\n  Draft: 10\n"), 0o600))
	m := Load(custom)
	id, ok := m.Lookup("state_id", "Draft")
	require.True(t, ok)
	assert.Equal(t, int64(10), id)
	assert.Equal(t, []string{"state_id"}, m.Fields())

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("state_id: [unclosed"), 0o600))
	assert.Equal(t, Defaults(), Load(broken))

	assert.Equal(t, Defaults(), Load(filepath.Join(dir, "missing.yaml")))
	assert.Equal(t, Defaults(), Load(""))
}
