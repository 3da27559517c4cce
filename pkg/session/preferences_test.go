package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPreferencesMissingFile(t *testing.T) {
	t.Parallel()

	prefs, err := LoadPreferences(filepath.Join(t.TempDir(), "preferences.json"))
	require.NoError(t, err)
	assert.False(t, prefs.RiskMode)
}

func TestPreferencesRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "preferences.json")

	prefs := &Preferences{RiskMode: true}
	require.NoError(t, prefs.Save(path))

	loaded, err := LoadPreferences(path)
	require.NoError(t, err)
	assert.True(t, loaded.RiskMode)

	// toggling rewrites the record
	loaded.RiskMode = false
	require.NoError(t, loaded.Save(path))

	reloaded, err := LoadPreferences(path)
	require.NoError(t, err)
	assert.False(t, reloaded.RiskMode)
}

func TestLoadPreferencesMissingField(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "preferences.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"other_setting": 3}`), 0o644))

	prefs, err := LoadPreferences(path)
	require.NoError(t, err)
	assert.False(t, prefs.RiskMode)
}
