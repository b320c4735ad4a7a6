package xconf

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce 默认防抖时间
const DefaultDebounce = 100 * time.Millisecond

// k8sDataLink ConfigMap 挂载目录中原子切换的符号链接名
const k8sDataLink = "..data"

// ErrWatch fsnotify 上报的错误
var ErrWatch = errors.New("xconf: watch error")

// WatchFunc 重载回调，err 非 nil 表示本次重载失败，cfg 仍保留上一次成功的配置
type WatchFunc func(cfg Config, err error)

// WatchOption 监视选项
type WatchOption func(*Watcher)

// WithDebounce 设置防抖时间，窗口内的多次变更只触发一次重载
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watcher 配置文件监视器
//
// 监视配置文件所在目录而不是文件本身：编辑器保存时常常先写临时文件再 rename，
// ConfigMap 更新时切换的是 ..data 链接。
type Watcher struct {
	cfg       *koanfConfig
	fsw       *fsnotify.Watcher
	fn        WatchFunc
	debounce  time.Duration
	filename  string
	closeOnce sync.Once
	closeErr  error
}

// Watch 创建 cfg 的监视器，调用 [Watcher.Run] 开始监视
//
// 只支持由 [New] 创建的 Config。
func Watch(cfg Config, fn WatchFunc, opts ...WatchOption) (*Watcher, error) {
	kc, ok := cfg.(*koanfConfig)
	if !ok {
		return nil, fmt.Errorf("xconf: cannot watch %T", cfg)
	}
	if kc.path == "" {
		return nil, ErrNotReloadable
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xconf: create watcher: %w", err)
	}
	dir := filepath.Dir(kc.path)
	if err := fsw.Add(dir); err != nil {
		return nil, errors.Join(fmt.Errorf("xconf: watch %s: %w", dir, err), fsw.Close())
	}

	w := &Watcher{
		cfg:      kc,
		fsw:      fsw,
		fn:       fn,
		debounce: DefaultDebounce,
		filename: filepath.Base(kc.path),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Run 阻塞监视直到 ctx 取消，返回前关闭监视器
//
// 回调在 Run 所在的 goroutine 中串行执行，Run 返回后不会再有回调。
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.Close() }()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.notify(fmt.Errorf("%w: %w", ErrWatch, err))

		case <-fire:
			fire = nil
			w.notify(w.cfg.Reload())
		}
	}
}

// Close 关闭底层 fsnotify 监视器，可重复调用
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.fsw.Close()
	})
	return w.closeErr
}

// relevant 只关心目标文件和 ..data 的写入、创建和 rename
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	name := filepath.Base(ev.Name)
	if name != w.filename && name != k8sDataLink {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

func (w *Watcher) notify(err error) {
	if w.fn != nil {
		w.fn(w.cfg, err)
	}
}
