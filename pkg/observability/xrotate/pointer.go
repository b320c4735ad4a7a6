package xrotate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PointerKind 最新指针的维护方式
type PointerKind int

const (
	// PointerSymlink 活动文件以归档名创建，<prefix> 是指向它的相对符号链接（默认）
	PointerSymlink PointerKind = iota

	// PointerFile 活动文件就是 <prefix> 本身，轮转时重命名为归档名。
	// 适用于不支持符号链接的文件系统。
	PointerFile
)

// String 返回指针类型的配置名
func (k PointerKind) String() string {
	switch k {
	case PointerSymlink:
		return "symlink"
	case PointerFile:
		return "file"
	default:
		return fmt.Sprintf("PointerKind(%d)", int(k))
	}
}

// MarshalText 实现 encoding.TextMarshaler 接口
func (k PointerKind) MarshalText() ([]byte, error) {
	if k != PointerSymlink && k != PointerFile {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPointer, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler 接口
func (k *PointerKind) UnmarshalText(data []byte) error {
	parsed, err := ParsePointerKind(string(data))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParsePointerKind 解析指针类型名，支持 symlink/link 与 file/copy，空字符串等价于 symlink
func ParsePointerKind(s string) (PointerKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "symlink", "link":
		return PointerSymlink, nil
	case "file", "copy":
		return PointerFile, nil
	default:
		return PointerSymlink, fmt.Errorf("%w: %q", ErrInvalidPointer, s)
	}
}

// latestPointer 最新指针的维护策略
//
// 所有方法只操作文件系统，不修改 Appender 状态。
type latestPointer interface {
	// adopt 构造期查找可接管的活动文件，没有时返回空字符串
	adopt() (string, error)

	// create 创建全新的活动文件
	create(now time.Time) (File, string, error)

	// seal 封存已关闭的活动文件 live，返回归档路径。
	// 返回非 nil 的 File 表示新活动文件已在封存阶段创建（路径为 next）。
	seal(live string, now time.Time) (archive string, f File, next string, err error)

	// unseal 撤销 seal，返回应重新打开的活动文件路径
	unseal(live, archive string) (string, error)

	// link 让 <prefix> 指向活动文件 live
	link(live string) error
}

// pointerBase 两种策略共享的路径与文件系统
type pointerBase struct {
	fs      FS
	folder  string
	prefix  string
	pointer string
	loc     *time.Location
	mode    os.FileMode
}

// createExclusive 以 O_EXCL 在归档名上创建新文件，名字被占用时换下一个后缀
func (b *pointerBase) createExclusive(now time.Time) (File, string, error) {
	var f File
	path, err := claimArchiveName(b.folder, b.prefix, now.In(b.loc), func(candidate string) error {
		created, err := b.fs.OpenFile(candidate, os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_APPEND, b.mode)
		if err != nil {
			if errors.Is(err, fs.ErrExist) {
				return errNameTaken
			}
			return err
		}
		f = created
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}

// archiveExisting 把 src 重命名为 ts 对应的未占用归档名
func (b *pointerBase) archiveExisting(src string, ts time.Time) (string, error) {
	return claimArchiveName(b.folder, b.prefix, ts.In(b.loc), func(candidate string) error {
		if _, err := b.fs.Lstat(candidate); err == nil {
			return errNameTaken
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return b.fs.Rename(src, candidate)
	})
}

// symlinkPointer 活动文件以归档名存在，<prefix> 是指向它的符号链接
type symlinkPointer struct {
	pointerBase
}

func (p *symlinkPointer) adopt() (string, error) {
	info, err := p.fs.Lstat(p.pointer)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	if info.Mode()&os.ModeSymlink == 0 {
		if !info.Mode().IsRegular() {
			return "", fmt.Errorf("%w: %s is neither a file nor a symlink", ErrInvalidConfig, p.pointer)
		}
		// 之前以 PointerFile 方式运行留下的活动文件，按修改时间归档
		if _, err := p.archiveExisting(p.pointer, info.ModTime()); err != nil {
			return "", err
		}
		return "", nil
	}

	target, err := p.fs.Readlink(p.pointer)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(p.folder, target)
	}
	// 只接管同目录下属于本前缀的归档文件
	if filepath.Dir(target) != p.folder {
		return "", nil
	}
	if _, ok := ParseArchiveName(p.prefix, filepath.Base(target)); !ok {
		return "", nil
	}
	tinfo, err := p.fs.Lstat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !tinfo.Mode().IsRegular() {
		return "", nil
	}
	return target, nil
}

func (p *symlinkPointer) create(now time.Time) (File, string, error) {
	return p.createExclusive(now)
}

func (p *symlinkPointer) seal(live string, now time.Time) (string, File, string, error) {
	f, next, err := p.createExclusive(now)
	if err != nil {
		return "", nil, "", err
	}
	return live, f, next, nil
}

func (p *symlinkPointer) unseal(live, _ string) (string, error) {
	return live, nil
}

func (p *symlinkPointer) link(live string) error {
	if err := p.fs.Remove(p.pointer); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return p.fs.Symlink(filepath.Base(live), p.pointer)
}

// filePointer 活动文件就是 <prefix>，封存时重命名为归档名
type filePointer struct {
	pointerBase
}

func (p *filePointer) adopt() (string, error) {
	info, err := p.fs.Lstat(p.pointer)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		// 之前以 PointerSymlink 方式运行留下的链接，目标文件保留为归档
		if err := p.fs.Remove(p.pointer); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		return "", nil
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", ErrInvalidConfig, p.pointer)
	}
	return p.pointer, nil
}

func (p *filePointer) create(_ time.Time) (File, string, error) {
	f, err := p.fs.OpenFile(p.pointer, os.O_CREATE|os.O_WRONLY|os.O_APPEND, p.mode)
	if err != nil {
		return nil, "", err
	}
	return f, p.pointer, nil
}

func (p *filePointer) seal(live string, now time.Time) (string, File, string, error) {
	archive, err := p.archiveExisting(live, now)
	if err != nil {
		return "", nil, "", err
	}
	return archive, nil, "", nil
}

func (p *filePointer) unseal(live, archive string) (string, error) {
	if err := p.fs.Rename(archive, live); err != nil {
		return "", err
	}
	return live, nil
}

func (p *filePointer) link(string) error { return nil }

func newPointer(kind PointerKind, base pointerBase) latestPointer {
	if kind == PointerFile {
		return &filePointer{pointerBase: base}
	}
	return &symlinkPointer{pointerBase: base}
}
