package xrotate

import (
	"io"
	"os"
)

// File 活动日志文件句柄，*os.File 满足此接口
type File interface {
	io.Writer
	io.Closer
	Stat() (os.FileInfo, error)
}

//go:generate mockgen -source=fs.go -destination=fs_mock_test.go -package=xrotate

// FS 轮转引擎使用的文件系统原语
//
// 每个方法都可能失败，引擎按步骤处理失败（见 [RotationError]）。
// 默认实现直接调用 os 包；测试中可注入 mock 以模拟任意步骤失败。
type FS interface {
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	Rename(oldpath, newpath string) error
	Remove(name string) error
	Symlink(oldname, newname string) error
	Readlink(name string) (string, error)
	Lstat(name string) (os.FileInfo, error)
	ReadDir(name string) ([]os.DirEntry, error)
}

// 编译时接口检查
var (
	_ FS   = osFS{}
	_ File = (*os.File)(nil)
)

// osFS 基于 os 包的 FS 实现
type osFS struct{}

func (osFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	//#nosec G304 -- 路径由 folder+prefix 构造，构造期已校验
	f, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (osFS) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }
func (osFS) Remove(name string) error { return os.Remove(name) }
func (osFS) Symlink(oldname, newname string) error { return os.Symlink(oldname, newname) }
func (osFS) Readlink(name string) (string, error) { return os.Readlink(name) }
func (osFS) Lstat(name string) (os.FileInfo, error) { return os.Lstat(name) }
func (osFS) ReadDir(name string) ([]os.DirEntry, error) { return os.ReadDir(name) }

// OSFS 返回基于 os 包的默认 FS
func OSFS() FS { return osFS{} }
