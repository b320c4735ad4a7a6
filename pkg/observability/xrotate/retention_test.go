package xrotate

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func mustArchive(t *testing.T, prefix, name string) Archive {
	t.Helper()
	a, ok := ParseArchiveName(prefix, name)
	require.True(t, ok, name)
	return a
}

func archiveNames(archives []Archive) []string {
	names := make([]string, 0, len(archives))
	for _, a := range archives {
		names = append(names, a.Name)
	}
	return names
}

func TestFilesToDelete(t *testing.T) {
	archives := []Archive{
		mustArchive(t, "app", "app.20240103.000000"),
		mustArchive(t, "app", "app.20240101.000000"),
		mustArchive(t, "app", "app.20240101.000000.10"),
		mustArchive(t, "app", "app.20240101.000000.9"),
		mustArchive(t, "app", "app.20240102.000000"),
	}
	original := archiveNames(archives)

	t.Run("保留最新两个", func(t *testing.T) {
		got := FilesToDelete(archives, 2)
		assert.Equal(t, []string{
			"app.20240101.000000",
			"app.20240101.000000.9",
			"app.20240101.000000.10",
		}, archiveNames(got))
	})

	t.Run("保留零个", func(t *testing.T) {
		assert.Len(t, FilesToDelete(archives, 0), len(archives))
	})

	t.Run("数量未超限", func(t *testing.T) {
		assert.Empty(t, FilesToDelete(archives, 5))
		assert.Empty(t, FilesToDelete(archives, 10))
	})

	t.Run("不限制", func(t *testing.T) {
		assert.Empty(t, FilesToDelete(archives, -1))
	})

	t.Run("输入不被修改", func(t *testing.T) {
		_ = FilesToDelete(archives, 1)
		assert.Equal(t, original, archiveNames(archives))
	})
}

func TestListArchives(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"app.20240102.000000",
		"app.20240101.000000.1",
		"app.20240101.000000",
		"app",
		"app.log",
		"other.20240101.000000",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "app.20231231.000000"), 0o750))

	archives, err := ListArchives(OSFS(), dir, "app")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"app.20240101.000000",
		"app.20240101.000000.1",
		"app.20240102.000000",
	}, archiveNames(archives))

	_, err = ListArchives(OSFS(), filepath.Join(dir, "missing"), "app")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestResolveLatest(t *testing.T) {
	dir := t.TempDir()

	_, err := ResolveLatest(OSFS(), dir, "app")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.20240101.000000"), nil, 0o600))
	require.NoError(t, os.Symlink("app.20240101.000000", filepath.Join(dir, "app")))
	got, err := ResolveLatest(OSFS(), dir, "app")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "app.20240101.000000"), got)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain"), nil, 0o600))
	got, err = ResolveLatest(OSFS(), dir, "plain")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "plain"), got)
}

func TestPrune(t *testing.T) {
	setup := func(t *testing.T) string {
		dir := t.TempDir()
		for _, name := range []string{
			"app.20240101.000000",
			"app.20240102.000000",
			"app.20240103.000000",
			"app.20240104.000000",
		} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o600))
		}
		// 指针指向最旧的文件，它必须保留
		require.NoError(t, os.Symlink("app.20240101.000000", filepath.Join(dir, "app")))
		return dir
	}

	t.Run("保留活动文件和最新归档", func(t *testing.T) {
		dir := setup(t)
		deleted, err := Prune(OSFS(), dir, "app", 2, false)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "app.20240102.000000"),
			filepath.Join(dir, "app.20240103.000000"),
		}, deleted)

		archives, err := ListArchives(OSFS(), dir, "app")
		require.NoError(t, err)
		assert.Equal(t, []string{"app.20240101.000000", "app.20240104.000000"}, archiveNames(archives))
	})

	t.Run("dry run 不删除", func(t *testing.T) {
		dir := setup(t)
		deleted, err := Prune(OSFS(), dir, "app", 1, true)
		require.NoError(t, err)
		assert.Len(t, deleted, 3)

		archives, err := ListArchives(OSFS(), dir, "app")
		require.NoError(t, err)
		assert.Len(t, archives, 4)
	})

	t.Run("不限制", func(t *testing.T) {
		dir := setup(t)
		deleted, err := Prune(OSFS(), dir, "app", 0, false)
		require.NoError(t, err)
		assert.Empty(t, deleted)
	})

	t.Run("负数", func(t *testing.T) {
		_, err := Prune(OSFS(), t.TempDir(), "app", -1, false)
		assert.ErrorIs(t, err, ErrInvalidMaxFiles)
	})
}

func TestPruneRemoveFailuresAreJoined(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := t.TempDir()
	for _, name := range []string{
		"app.20240101.000000",
		"app.20240102.000000",
		"app.20240103.000000",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}

	mockFS := NewMockFS(ctrl)
	boom := errors.New("read-only")
	mockFS.EXPECT().ReadDir(dir).DoAndReturn(os.ReadDir)
	mockFS.EXPECT().Remove(filepath.Join(dir, "app.20240101.000000")).Return(boom)
	mockFS.EXPECT().Remove(filepath.Join(dir, "app.20240102.000000")).Return(nil)

	deleted, err := pruneArchives(mockFS, dir, "app", "app.20240103.000000", 1, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StagePrune, StageOf(err))
	assert.Equal(t, []string{filepath.Join(dir, "app.20240102.000000")}, deleted)
}
