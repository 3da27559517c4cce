package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTrustStoreRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trusted-tools.json")
	store := NewFileTrustStore(path)

	require.NoError(t, store.Save("shell", "", true))
	require.NoError(t, store.Save("git", "/proj/a", false))

	names, err := store.Load("/proj/a")
	require.NoError(t, err)
	assert.Equal(t, []string{"git", "shell"}, names)

	// a different project only sees global trust
	names, err = store.Load("/proj/b")
	require.NoError(t, err)
	assert.Equal(t, []string{"shell"}, names)
}

func TestFileTrustStorePreservesUnrelatedEntries(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trusted-tools.json")
	store := NewFileTrustStore(path)

	require.NoError(t, store.Save("shell", "", true))
	require.NoError(t, store.Save("git", "/proj/a", false))
	require.NoError(t, store.Save("git", "/proj/b", false))

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var tf struct {
		Tools map[string]TrustRecord `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(b, &tf))

	assert.True(t, tf.Tools["shell"].Global)
	assert.ElementsMatch(t, []string{"/proj/a", "/proj/b"}, tf.Tools["git"].Projects)
}

func TestFileTrustStoreLoadMissingFile(t *testing.T) {
	t.Parallel()

	store := NewFileTrustStore(filepath.Join(t.TempDir(), "missing.json"))
	names, err := store.Load("")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestTrustSetSessionScope(t *testing.T) {
	t.Parallel()

	ts := NewTrustSet()
	assert.False(t, ts.IsTrusted("shell"))

	ts.Add("shell")
	assert.True(t, ts.IsTrusted("shell"))
	assert.Equal(t, []string{"shell"}, ts.Names())

	// no store attached: persist is a no-op
	assert.NoError(t, ts.Persist(context.Background(), "shell"))
}

func TestTrustSetPersistAndReload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trusted-tools.json")
	store := NewFileTrustStore(path)

	ts := NewTrustSet(WithTrustFile(store))
	ts.Add("shell")
	require.NoError(t, ts.Persist(context.Background(), "shell"))

	// a fresh session loading the same record trusts the tool immediately
	fresh := NewTrustSet(WithTrustFile(store))
	assert.True(t, fresh.IsTrusted("shell"))
	assert.False(t, fresh.IsTrusted("git"))
}

func TestTrustSetProjectScope(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trusted-tools.json")
	store := NewFileTrustStore(path)

	ts := NewTrustSet(WithTrustFile(store), WithProjectPath("/proj/a"))
	ts.Add("git")
	require.NoError(t, ts.Persist(context.Background(), "git"))

	sameProject := NewTrustSet(WithTrustFile(store), WithProjectPath("/proj/a"))
	assert.True(t, sameProject.IsTrusted("git"))

	otherProject := NewTrustSet(WithTrustFile(store), WithProjectPath("/proj/b"))
	assert.False(t, otherProject.IsTrusted("git"))
}
