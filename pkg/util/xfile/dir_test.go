package xfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		filename string
	}{
		{name: "单层目录", filename: filepath.Join(tmpDir, "one", "app.log")},
		{name: "多层目录", filename: filepath.Join(tmpDir, "a", "b", "c", "app.log")},
		{name: "目录已存在", filename: filepath.Join(tmpDir, "app.log")},
		{name: "当前目录", filename: "app.log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, EnsureDir(tt.filename))
			dir := filepath.Dir(tt.filename)
			info, err := os.Stat(dir)
			require.NoError(t, err)
			assert.True(t, info.IsDir())
		})
	}
}

func TestEnsureDirWithPerm(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("自定义权限", func(t *testing.T) {
		filename := filepath.Join(tmpDir, "perm", "app.log")
		require.NoError(t, EnsureDirWithPerm(filename, 0o700))
		info, err := os.Stat(filepath.Dir(filename))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
	})

	t.Run("缺少执行位", func(t *testing.T) {
		err := EnsureDirWithPerm(filepath.Join(tmpDir, "noexec", "app.log"), 0o600)
		assert.ErrorIs(t, err, ErrInvalidPerm)
	})

	t.Run("空路径", func(t *testing.T) {
		assert.ErrorIs(t, EnsureDirWithPerm("", 0o750), ErrEmptyPath)
	})

	t.Run("空字节", func(t *testing.T) {
		assert.ErrorIs(t, EnsureDirWithPerm("a\x00/b.log", 0o750), ErrNullByte)
	})
}
