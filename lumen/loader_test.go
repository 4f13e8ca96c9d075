package lumen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRequireCycleReturnsNilWithoutInfiniteRecursion writes two files that
// require each other and confirms the loader's "loading" sentinel breaks
// the cycle (the second require call, reentering the first file while it
// is still loading, gets nil back instead of recursing forever).
func TestRequireCycleReturnsNilWithoutInfiniteRecursion(t *testing.T) {
	dir := t.TempDir()
	aPath := filepath.Join(dir, "a.lumen")
	bPath := filepath.Join(dir, "b.lumen")

	require.NoError(t, os.WriteFile(aPath, []byte(`(require "b.lumen") (set a-loaded #t)`), 0o644))
	require.NoError(t, os.WriteFile(bPath, []byte(`(require "a.lumen") (set b-loaded #t)`), 0o644))

	s := NewState(nil)
	defer s.Shutdown()

	_, lerr := s.RunSource(`(require "`+aPath+`")`, "<test>", s.Global)
	require.Nil(t, lerr, "unexpected error: %v", lerr)

	v, ok := s.Global.Lookup("a-loaded")
	assert.True(t, ok)
	assert.True(t, v.Truthy())
}

// TestRequireSameModuleTwiceReturnsCachedResult confirms the loader caches
// by canonical path rather than re-reading and re-evaluating the file.
func TestRequireSameModuleTwiceReturnsCachedResult(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "once.lumen")
	require.NoError(t, os.WriteFile(path, []byte(`(set counter (+ 1 1))`), 0o644))

	s := NewState(nil)
	defer s.Shutdown()

	v1, lerr := s.RunSource(`(require "`+path+`")`, "<test>", s.Global)
	require.Nil(t, lerr)
	v2, lerr := s.RunSource(`(require "`+path+`")`, "<test>", s.Global)
	require.Nil(t, lerr)
	assert.Equal(t, v1, v2)
}

func TestRequireMissingModuleErrors(t *testing.T) {
	s := NewState(nil)
	defer s.Shutdown()

	_, lerr := s.RunSource(`(require "no-such-file.lumen")`, "<test>", s.Global)
	require.NotNil(t, lerr)
	assert.Contains(t, lerr.Error(), "could not find module")
}
