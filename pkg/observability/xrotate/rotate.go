package xrotate

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/omeyang/xroll/pkg/observability/xmetrics"
)

const (
	componentName = "xrotate"
	opRotate      = "rotate"
	opPrune       = "prune"
)

// rotate 执行一次轮转：关闭 → 封存 → 打开新文件 → 重建指针 → 清理
//
// 返回后 a.file 为 nil 表示没有可写文件，返回的错误包含 [ErrNoWritableFile]。
// 返回错误但 a.file 非 nil 时，Appender 仍可继续写入（原文件或新文件）。
func (a *Appender) rotate(now time.Time, trig Trigger) (err error) {
	_, span := xmetrics.Start(context.Background(), a.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: opRotate,
		Attrs: []xmetrics.Attr{
			xmetrics.String("trigger", trig.String()),
			xmetrics.String("pointer", a.kind.String()),
		},
	})
	var archive string
	defer func() {
		span.End(xmetrics.Result{
			Err:   err,
			Attrs: []xmetrics.Attr{xmetrics.String("archive", archive)},
		})
	}()

	// 封存或打开失败时恢复到轮转前的周期，下次写入会重新尝试
	live := a.path
	prevStart := a.periodStart

	// 1. 关闭：刷新失败时缓冲已被丢弃，轮转继续
	if ferr := a.flush(); ferr != nil {
		a.report(&RotationError{Stage: StageClose, Path: live, Err: ferr})
	}
	if cerr := a.file.Close(); cerr != nil {
		a.report(&RotationError{Stage: StageClose, Path: live, Err: cerr})
	}
	a.detach()

	// 2. 封存：失败时恢复原文件
	archive, next, nextPath, serr := a.ptr.seal(live, now)
	if serr != nil {
		sealErr := &RotationError{Stage: StageSeal, Path: live, Err: serr}
		if rerr := a.reopen(live); rerr != nil {
			return errors.Join(sealErr, &RotationError{Stage: StageOpen, Path: live, Err: rerr}, ErrNoWritableFile)
		}
		a.periodStart = prevStart
		return sealErr
	}
	if next != nil {
		a.attach(next, nextPath, 0, PeriodStart(a.cond.Period, now, a.cond.location()))
	}

	// 3. 打开新文件（封存阶段未创建时），失败时撤销封存
	if next == nil {
		f, path, oerr := a.ptr.create(now)
		if oerr != nil {
			openErr := &RotationError{Stage: StageOpen, Path: a.pointer, Err: oerr}
			restored, uerr := a.ptr.unseal(live, archive)
			if uerr == nil {
				uerr = a.reopen(restored)
			}
			if uerr != nil {
				return errors.Join(openErr, ErrNoWritableFile)
			}
			a.periodStart = prevStart
			archive = ""
			return openErr
		}
		a.attach(f, path, 0, PeriodStart(a.cond.Period, now, a.cond.location()))
	}

	// 4. 重建指针
	if nextPath != "" {
		if lerr := a.ptr.link(nextPath); lerr != nil {
			a.report(&RotationError{Stage: StageLink, Path: a.pointer, Err: lerr})
		}
	}

	// 5. 清理
	if perr := a.prune(filepath.Base(a.path)); perr != nil {
		a.report(perr)
	}
	return nil
}

// prune 按 maxFiles 清理旧归档，live 为需要保留的活动文件名
func (a *Appender) prune(live string) (err error) {
	if a.maxFiles <= 0 {
		return nil
	}
	_, span := xmetrics.Start(context.Background(), a.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: opPrune,
		Attrs:     []xmetrics.Attr{xmetrics.Int("max_files", a.maxFiles)},
	})
	var deleted []string
	defer func() {
		span.End(xmetrics.Result{
			Err:   err,
			Attrs: []xmetrics.Attr{xmetrics.Int("deleted", len(deleted))},
		})
	}()
	deleted, err = pruneArchives(a.fs, a.folder, a.prefix, live, a.maxFiles, false)
	return err
}
