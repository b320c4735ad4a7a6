package main

import (
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/omeyang/xroll/pkg/observability/xrotate"
)

// cmdList 列出数据文件，旧的在前，活动文件以 * 标记
//
// 文件指针模式下活动文件就是 <prefix> 本身，列在最后。
func cmdList(w io.Writer, fsys xrotate.FS, folder, prefix string) error {
	archives, err := xrotate.ListArchives(fsys, folder, prefix)
	if err != nil {
		return err
	}
	live, err := xrotate.ResolveLatest(fsys, folder, prefix)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	live = filepath.Clean(live)

	names := make([]string, 0, len(archives)+1)
	for _, a := range archives {
		names = append(names, a.Name)
	}
	pointer := xrotate.LatestPointerName(folder, prefix)
	if live == filepath.Clean(pointer) {
		names = append(names, prefix)
	}

	for _, name := range names {
		path := filepath.Join(folder, name)
		info, err := fsys.Lstat(path)
		if err != nil {
			// 列举和 stat 之间文件被删除
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		mark := " "
		if path == live {
			mark = "*"
		}
		writef(w, "%s %10s  %s  %s\n", mark, humanize.IBytes(uint64(info.Size())),
			info.ModTime().Format(time.RFC3339), name)
	}
	return nil
}

// cmdPrune 离线执行保留策略，打印删除（或将删除）的文件
func cmdPrune(w io.Writer, fsys xrotate.FS, folder, prefix string, maxFiles int, dryRun bool) error {
	deleted, err := xrotate.Prune(fsys, folder, prefix, maxFiles, dryRun)
	verb := "deleted"
	if dryRun {
		verb = "would delete"
	}
	for _, path := range deleted {
		writef(w, "%s %s\n", verb, path)
	}
	if err != nil {
		return asUsage(err)
	}
	if len(deleted) == 0 {
		writef(w, "nothing to prune\n")
	}
	return nil
}

// cmdNext 打印 now 所在周期的起点和下一个边界
func cmdNext(w io.Writer, period xrotate.Period, now time.Time, loc *time.Location) error {
	if period == xrotate.PeriodNone {
		return usagef("period %q has no boundary", period)
	}
	start := xrotate.PeriodStart(period, now, loc)
	next := xrotate.NextBoundary(period, now, loc)
	writef(w, "period: %s\nstart:  %s\nnext:   %s\nin:     %s\n",
		period, start.Format(time.RFC3339), next.Format(time.RFC3339), next.Sub(now.In(loc)).Round(time.Second))
	return nil
}
