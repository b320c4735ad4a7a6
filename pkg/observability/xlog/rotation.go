package xlog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/omeyang/xroll/pkg/observability/xrotate"
)

// RotationErrorHandler 返回记录轮转错误的 [xrotate.WithOnError] 回调
//
// 每个错误以 Warn 级别记录，带 component、stage 和 path 属性；
// 包含 [xrotate.ErrNoWritableFile] 的错误以 Error 级别记录。
//
// logger 不能写入产生这些错误的同一个 Rotator，否则轮转失败时的日志会再次触发轮转。
func RotationErrorHandler(logger Logger) func(error) {
	if logger == nil {
		return nil
	}
	l := logger.With(Component("xrotate"))
	return func(err error) {
		if err == nil {
			return
		}
		attrs := []slog.Attr{Err(err), Stage(string(xrotate.StageOf(err)))}
		var re *xrotate.RotationError
		if errors.As(err, &re) && re.Path != "" {
			attrs = append(attrs, Path(re.Path))
		}
		if errors.Is(err, xrotate.ErrNoWritableFile) {
			l.Error(context.Background(), "rotation left no writable file", attrs...)
			return
		}
		l.Warn(context.Background(), "rotation step failed", attrs...)
	}
}
