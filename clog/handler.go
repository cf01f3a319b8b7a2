package clog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// clogHandler 封装 slog.Handler，提供动态级别和 Flush 能力。
type clogHandler struct {
	slog.Handler
	levelVar *slog.LevelVar
	closer   io.Closer
}

// newHandler 按 writer -> handler options -> base handler -> wrapper 的顺序构造 handler。
func newHandler(config *Config, options *options) (*clogHandler, error) {
	w, closer, err := resolveWriter(config, options)
	if err != nil {
		return nil, err
	}

	level, _ := ParseLevel(config.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level.slogLevel())

	opts := &slog.HandlerOptions{
		AddSource:   config.AddSource,
		Level:       levelVar,
		ReplaceAttr: newReplaceAttr(config),
	}

	var handler slog.Handler
	if strings.ToLower(config.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &clogHandler{Handler: handler, levelVar: levelVar, closer: closer}, nil
}

// resolveWriter 根据配置创建输出 writer，文件输出时同时返回 closer。
func resolveWriter(config *Config, options *options) (io.Writer, io.Closer, error) {
	switch strings.ToLower(config.Output) {
	case "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	case "buffer":
		if options.buffer != nil {
			return options.buffer, nil, nil
		}
		return nil, nil, fmt.Errorf("buffer output requires clog.WithBuffer")
	default:
		f, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	}
}

// newReplaceAttr 统一处理 Level/Time/Source 字段。
func newReplaceAttr(config *Config) func(groups []string, a slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) > 0 {
			return a
		}
		switch a.Key {
		case slog.LevelKey:
			level, ok := a.Value.Any().(slog.Level)
			if !ok {
				return a
			}
			switch {
			case level <= slog.LevelDebug:
				a.Value = slog.StringValue("DEBUG")
			case level <= slog.LevelInfo:
				a.Value = slog.StringValue("INFO")
			case level <= slog.LevelWarn:
				a.Value = slog.StringValue("WARN")
			case level <= slog.LevelError:
				a.Value = slog.StringValue("ERROR")
			default:
				a.Value = slog.StringValue("FATAL")
			}
		case slog.TimeKey:
			if a.Value.Kind() == slog.KindTime {
				a.Value = slog.StringValue(a.Value.Time().Format(timeFormat))
			}
		case slog.SourceKey:
			if source, ok := a.Value.Any().(*slog.Source); ok {
				return slog.String("caller", fmt.Sprintf("%s:%d", trimSourcePath(source.File, config.SourceRoot), source.Line))
			}
		}
		return a
	}
}

// trimSourcePath 根据 sourceRoot 裁剪调用文件路径。
func trimSourcePath(fileName, sourceRoot string) string {
	if sourceRoot != "" {
		relPath, err := filepath.Rel(sourceRoot, fileName)
		if err == nil && !strings.HasPrefix(relPath, "..") {
			return relPath
		}
	}
	if idx := strings.Index(fileName, "autoid"); idx != -1 {
		return fileName[idx:]
	}
	return fileName
}

// SetLevel 动态调整日志级别。
func (h *clogHandler) SetLevel(level Level) error {
	if _, err := ParseLevel(level.String()); err != nil {
		return err
	}
	h.levelVar.Set(level.slogLevel())
	return nil
}

// Flush 同步文件输出。
func (h *clogHandler) Flush() {
	if f, ok := h.closer.(*os.File); ok {
		_ = f.Sync()
	}
}
