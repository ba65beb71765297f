package sandbox

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub", "deep"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "file.txt"), []byte("x"), 0644))

	tests := []struct {
		name       string
		path       string
		wantEscape bool
	}{
		{name: "workspace root itself", path: "."},
		{name: "existing file", path: "sub/file.txt"},
		{name: "existing directory", path: "sub/deep"},
		{name: "file to be created", path: "sub/new.txt"},
		{name: "nested file to be created", path: "brand/new/dir/file.txt"},
		{name: "internal dotdot that stays inside", path: "sub/deep/../file.txt"},
		{name: "plain traversal", path: "../outside.txt", wantEscape: true},
		{name: "deep traversal", path: "sub/../../outside.txt", wantEscape: true},
		{name: "absolute path outside", path: "/etc/passwd", wantEscape: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := Resolve(root, tt.path)

			if tt.wantEscape {
				require.Error(t, err)
				var escErr *PathEscapeError
				assert.True(t, errors.As(err, &escErr), "want PathEscapeError, got %T: %v", err, err)
				assert.Empty(t, resolved)
				return
			}

			require.NoError(t, err)
			resolvedRoot, err := filepath.EvalSymlinks(root)
			require.NoError(t, err)
			rel, err := filepath.Rel(resolvedRoot, resolved)
			require.NoError(t, err)
			assert.False(t, strings.HasPrefix(rel, ".."), "resolved path %q left root %q", resolved, root)
		})
	}
}

func TestResolve_AbsolutePathInsideRoot(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "ok.txt")
	require.NoError(t, os.WriteFile(inside, []byte("x"), 0644))

	resolved, err := Resolve(root, inside)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(resolved), "ok.txt")
}

func TestResolve_SymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	link := filepath.Join(root, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	_, err := Resolve(root, "link/secret.txt")
	var escErr *PathEscapeError
	require.Error(t, err)
	assert.True(t, errors.As(err, &escErr), "symlink escape must yield PathEscapeError, got %v", err)
}

func TestScreenScript(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		wantReject bool
	}{
		{
			name:   "benign python",
			source: "print('Hello, World!')\n",
		},
		{
			name:   "benign shell",
			source: "#!/bin/sh\necho hello\n",
		},
		{
			name:       "os.remove call",
			source:     "import os\nos.remove('a.txt')\n",
			wantReject: true,
		},
		{
			name:       "shutil.rmtree call",
			source:     "import shutil\nshutil.rmtree('/tmp/x')\n",
			wantReject: true,
		},
		{
			name:       "rm -rf in shell",
			source:     "#!/bin/sh\nrm -rf build/\n",
			wantReject: true,
		},
		{
			name:       "rm -fr variant",
			source:     "rm -fr /tmp/whatever\n",
			wantReject: true,
		},
		{
			name:       "rmdir",
			source:     "rmdir old\n",
			wantReject: true,
		},
		{
			name:   "rm mentioned in a word",
			source: "# transform the data\nformat(x)\n",
		},
		{
			name:   "obfuscated call passes the lexical screen",
			source: "import os\ngetattr(os, 're' + 'move')('a.txt')\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ScreenScript(tt.source)

			if tt.wantReject {
				var rejErr *RejectedError
				require.Error(t, err)
				assert.True(t, errors.As(err, &rejErr), "want RejectedError, got %T: %v", err, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
