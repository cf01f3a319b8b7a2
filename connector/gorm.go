package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ceyewan/autoid/clog"
	"github.com/ceyewan/autoid/xerrors"
)

const slowSQLThreshold = 200 * time.Millisecond

// openGorm 使用统一的日志适配器打开 GORM，并按需挂载链路追踪插件
func openGorm(dialector gorm.Dialector, log clog.Logger, tracing bool) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(log),
	})
	if err != nil {
		return nil, err
	}
	if tracing {
		if err := db.Use(otelgorm.NewPlugin()); err != nil {
			return nil, xerrors.Wrap(err, "register otelgorm plugin")
		}
	}
	return db, nil
}

// gormLogger 将 GORM 日志适配到 clog
type gormLogger struct {
	logger clog.Logger
	level  logger.LogLevel
}

func newGormLogger(log clog.Logger) logger.Interface {
	return &gormLogger{logger: log, level: logger.Warn}
}

// LogMode 设置日志级别
func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.level = level
	return &newLogger
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Info {
		l.logger.InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Warn {
		l.logger.WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Error {
		l.logger.ErrorContext(ctx, fmt.Sprintf(msg, data...))
	}
}

// Trace 记录 SQL 执行日志。记录不存在不视为错误
func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !xerrors.Is(err, gorm.ErrRecordNotFound) && l.level >= logger.Error:
		l.logger.ErrorContext(ctx, "sql error",
			clog.Duration("duration", elapsed),
			clog.String("sql", sql),
			clog.Int64("rows", rows),
			clog.Error(err),
		)
	case elapsed > slowSQLThreshold && l.level >= logger.Warn:
		l.logger.WarnContext(ctx, "slow sql",
			clog.Duration("duration", elapsed),
			clog.String("sql", sql),
			clog.Int64("rows", rows),
		)
	case l.level >= logger.Info:
		l.logger.DebugContext(ctx, "sql",
			clog.Duration("duration", elapsed),
			clog.String("sql", sql),
			clog.Int64("rows", rows),
		)
	}
}
