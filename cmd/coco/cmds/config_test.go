package cmds

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corbat-tech/coco/pkg/session"
)

func TestSetPreferenceRiskMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")

	require.NoError(t, setPreference(path, "risk-mode", "true"))
	prefs, err := session.LoadPreferences(path)
	require.NoError(t, err)
	assert.True(t, prefs.RiskMode)

	require.NoError(t, setPreference(path, "risk-mode", "false"))
	prefs, err = session.LoadPreferences(path)
	require.NoError(t, err)
	assert.False(t, prefs.RiskMode)
}

func TestSetPreferenceRejectsBadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")

	err := setPreference(path, "risk-mode", "maybe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "true or false")

	err = setPreference(path, "verbosity", "high")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown preference")
}
