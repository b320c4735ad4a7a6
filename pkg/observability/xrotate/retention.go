package xrotate

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// CompareArchives 按时间先后比较两个归档，供 slices.SortFunc 使用
func CompareArchives(a, b Archive) int {
	if c := strings.Compare(a.Stamp, b.Stamp); c != 0 {
		return c
	}
	return cmp.Compare(a.Index, b.Index)
}

// FilesToDelete 返回超出保留数量的归档，旧的在前
//
// 保留 keep 个最新归档；keep < 0 表示不限制。输入切片不会被修改。
func FilesToDelete(archives []Archive, keep int) []Archive {
	if keep < 0 || len(archives) <= keep {
		return nil
	}
	sorted := slices.Clone(archives)
	slices.SortFunc(sorted, CompareArchives)
	return sorted[:len(sorted)-keep]
}

// ListArchives 列出 folder 中属于 prefix 的归档文件，旧的在前
//
// 最新指针 <prefix> 本身和子目录不计入。
func ListArchives(fsys FS, folder, prefix string) ([]Archive, error) {
	entries, err := fsys.ReadDir(folder)
	if err != nil {
		return nil, err
	}
	var archives []Archive
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if a, ok := ParseArchiveName(prefix, e.Name()); ok {
			archives = append(archives, a)
		}
	}
	slices.SortFunc(archives, CompareArchives)
	return archives, nil
}

// ResolveLatest 返回最新指针当前指向的活动文件路径
//
// 符号链接返回其目标（相对目标按 folder 解析），普通文件返回 <prefix> 本身。
// 指针不存在时返回 fs.ErrNotExist。
func ResolveLatest(fsys FS, folder, prefix string) (string, error) {
	pointer := LatestPointerName(folder, prefix)
	info, err := fsys.Lstat(pointer)
	if err != nil {
		return "", err
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return pointer, nil
	}
	target, err := fsys.Readlink(pointer)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(folder, target)
	}
	return target, nil
}

// Prune 离线执行保留策略：保留活动文件和 maxFiles-1 个最新归档
//
// maxFiles 为 0 表示不限制。dryRun 为 true 时只返回将被删除的路径。
// 删除失败不会中止，所有失败以 errors.Join 合并返回。
func Prune(fsys FS, folder, prefix string, maxFiles int, dryRun bool) ([]string, error) {
	if maxFiles < 0 {
		return nil, fmt.Errorf("%w: got %d, want 0~%d", ErrInvalidMaxFiles, maxFiles, MaxFilesLimit)
	}
	live := ""
	if target, err := ResolveLatest(fsys, folder, prefix); err == nil {
		if filepath.Dir(target) == filepath.Clean(folder) {
			live = filepath.Base(target)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return pruneArchives(fsys, folder, prefix, live, maxFiles, dryRun)
}

// pruneArchives 删除 live 之外超出保留数量的归档
func pruneArchives(fsys FS, folder, prefix, live string, maxFiles int, dryRun bool) ([]string, error) {
	if maxFiles <= 0 {
		return nil, nil
	}
	archives, err := ListArchives(fsys, folder, prefix)
	if err != nil {
		return nil, &RotationError{Stage: StagePrune, Path: folder, Err: err}
	}
	archives = slices.DeleteFunc(archives, func(a Archive) bool { return a.Name == live })

	var (
		deleted []string
		errs    []error
	)
	for _, a := range FilesToDelete(archives, maxFiles-1) {
		path := filepath.Join(folder, a.Name)
		if !dryRun {
			if err := fsys.Remove(path); err != nil {
				errs = append(errs, &RotationError{Stage: StagePrune, Path: path, Err: err})
				continue
			}
		}
		deleted = append(deleted, path)
	}
	return deleted, errors.Join(errs...)
}
