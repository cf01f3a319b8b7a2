package clog

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/ceyewan/autoid/xerrors"
)

// Field 是 slog.Attr 的类型别名
type Field = slog.Attr

// 字段构造函数，直接复用 slog
//
//	logger.Info("node slot acquired", clog.String("key", key), clog.Int64("worker_id", 3))
var (
	String   = slog.String
	Int      = slog.Int
	Int64    = slog.Int64
	Uint64   = slog.Uint64
	Float64  = slog.Float64
	Bool     = slog.Bool
	Time     = slog.Time
	Duration = slog.Duration
	Any      = slog.Any
)

// Error 输出 err_msg；错误链上带 xerrors 错误码时改为 error{msg, code} 分组
//
//	logger.Warn("coordinated allocation failed", clog.Error(err))
//	// err_msg="dial tcp 127.0.0.1:6379: connect: connection refused"
//	// error.msg="[redis_slots_exhausted] idgen: no available node slot" error.code=redis_slots_exhausted
func Error(err error) Field {
	if err == nil {
		return slog.String("", "")
	}
	if code := xerrors.GetCode(err); code != "" {
		return slog.Group("error",
			slog.String("msg", err.Error()),
			slog.String("code", code),
		)
	}
	return slog.String("err_msg", err.Error())
}

// ErrorWithStack 在 Error 的基础上附带错误类型与调用栈，只用于排查罕见故障
func ErrorWithStack(err error) Field {
	if err == nil {
		return slog.String("", "")
	}
	return slog.Group("error",
		slog.String("msg", err.Error()),
		slog.String("type", fmt.Sprintf("%T", err)),
		slog.String("stack", callers(3)),
	)
}

// callers 每帧一行 "file:line func"
func callers(skip int) string {
	pcs := make([]uintptr, 32)
	pcs = pcs[:runtime.Callers(skip, pcs)]
	if len(pcs) == 0 {
		return ""
	}

	var b strings.Builder
	frames := runtime.CallersFrames(pcs)
	for frame, more := frames.Next(); ; frame, more = frames.Next() {
		fmt.Fprintf(&b, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return b.String()
}
