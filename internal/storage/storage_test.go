package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allow(string) bool { return true }
func deny(string) bool  { return false }

func TestEnsureFolderCreatesLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "glite")
	s := NewWithChecker(root, allow)

	require.True(t, s.EnsureFolder())

	assert.DirExists(t, root)
	assert.FileExists(t, filepath.Join(root, NoMediaFileName))
	assert.DirExists(t, filepath.Join(root, RecordingsSubfolder))
	assert.True(t, s.Exists())

	// 再次调用保持成功
	assert.True(t, s.EnsureFolder())
}

func TestEnsureFolderWithoutAccessCreatesNothing(t *testing.T) {
	root := filepath.Join(t.TempDir(), "glite")
	s := NewWithChecker(root, deny)

	assert.False(t, s.EnsureFolder())
	assert.NoDirExists(t, root)
	assert.False(t, s.Exists())
}

func TestEnsureFolderFailsWhenRootIsFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "glite")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0o644))
	s := NewWithChecker(root, allow)

	assert.False(t, s.EnsureFolder())
}

func TestHasAccessChecksNearestExistingDir(t *testing.T) {
	base := t.TempDir()
	var checked string
	s := NewWithChecker(filepath.Join(base, "a", "b", "glite"), func(p string) bool {
		checked = p
		return true
	})

	assert.True(t, s.HasAccess())
	assert.Equal(t, base, checked)
}

func TestHasAccessRealChecker(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "glite"))
	assert.True(t, s.HasAccess())
}

func TestPathIsAbsolute(t *testing.T) {
	s := NewWithChecker("glite", allow)
	assert.True(t, filepath.IsAbs(s.Path()))
	assert.Equal(t, filepath.Join(s.Path(), RecordingsSubfolder), s.RecordingsDir)
}

func TestRequestAccessScopedChain(t *testing.T) {
	var opened []string
	n := &SettingsNavigator{
		Scoped:     true,
		AppScoped:  Surface{"app", []string{"app-settings"}},
		General:    Surface{"general", []string{"general-settings"}},
		AppDetails: Surface{"details", []string{"details"}},
		Launch: func(cmd []string) error {
			opened = append(opened, cmd[0])
			if cmd[0] == "app-settings" {
				return errors.New("not available")
			}
			return nil
		},
	}

	n.RequestAccess()
	assert.Equal(t, []string{"app-settings", "general-settings"}, opened)
}

func TestRequestAccessScopedStopsAtFirstSuccess(t *testing.T) {
	var opened []string
	n := &SettingsNavigator{
		Scoped:    true,
		AppScoped: Surface{"app", []string{"app-settings"}},
		General:   Surface{"general", []string{"general-settings"}},
		Launch: func(cmd []string) error {
			opened = append(opened, cmd[0])
			return nil
		},
	}

	n.RequestAccess()
	assert.Equal(t, []string{"app-settings"}, opened)
}

func TestRequestAccessUnscopedOpensDetails(t *testing.T) {
	var opened []string
	n := &SettingsNavigator{
		AppScoped:  Surface{"app", []string{"app-settings"}},
		AppDetails: Surface{"details", []string{"details"}},
		Launch: func(cmd []string) error {
			opened = append(opened, cmd[0])
			return errors.New("boom")
		},
	}

	assert.NotPanics(t, n.RequestAccess)
	assert.Equal(t, []string{"details"}, opened)
}

func TestRequestAccessEmptySurface(t *testing.T) {
	n := &SettingsNavigator{Launch: func([]string) error {
		t.Fatal("launcher must not be called for an empty command")
		return nil
	}}
	assert.NotPanics(t, n.RequestAccess)
}
