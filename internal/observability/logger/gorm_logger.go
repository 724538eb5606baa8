package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// SQLConfig configures statement logging.
type SQLConfig struct {
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration
}

func DefaultSQLConfig() SQLConfig {
	return SQLConfig{
		Level:         gormlogger.Warn,
		SlowThreshold: 200 * time.Millisecond,
	}
}

// SQLLogger sends gorm output through the request-scoped zap logger. Every
// statement is tagged with its operation, its table and whether it takes row locks.
// Record-not-found is never logged; missing items and orders are ordinary 404s.
type SQLLogger struct {
	cfg SQLConfig
}

func NewSQLLogger(cfg SQLConfig) *SQLLogger {
	return &SQLLogger{cfg: cfg}
}

func (l *SQLLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.cfg.Level = level
	return &next
}

func (l *SQLLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.cfg.Level >= gormlogger.Info {
		l.emit(ctx, zapcore.InfoLevel, msg, data)
	}
}

func (l *SQLLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.cfg.Level >= gormlogger.Warn {
		l.emit(ctx, zapcore.WarnLevel, msg, data)
	}
}

func (l *SQLLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.cfg.Level >= gormlogger.Error {
		l.emit(ctx, zapcore.ErrorLevel, msg, data)
	}
}

func (l *SQLLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.cfg.Level <= gormlogger.Silent {
		return
	}
	if errors.Is(err, gormlogger.ErrRecordNotFound) {
		err = nil
	}

	elapsed := time.Since(begin)
	level := zapcore.DebugLevel
	switch {
	case err != nil && l.cfg.Level >= gormlogger.Error:
		level = zapcore.ErrorLevel
	case l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold && l.cfg.Level >= gormlogger.Warn:
		level = zapcore.WarnLevel
	case l.cfg.Level < gormlogger.Info:
		return
	}

	ce := FromContext(ctx).Check(level, "sql")
	if ce == nil {
		return
	}

	sql, rows := fc()
	shape := shapeOf(sql)
	fields := []zap.Field{
		zap.String("component", "gorm"),
		zap.String("sql", strings.TrimSpace(sql)),
		zap.String("operation", shape.operation),
		zap.String("table", shape.table),
		zap.Bool("row_lock", shape.rowLock),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows_affected", rows))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	ce.Write(fields...)
}

// ParamsFilter drops bound values so SKUs and credentials never reach the log.
func (l *SQLLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

func (l *SQLLogger) emit(ctx context.Context, level zapcore.Level, msg string, data []interface{}) {
	ce := FromContext(ctx).Check(level, strings.TrimSpace(fmt.Sprintf(msg, data...)))
	if ce != nil {
		ce.Write(zap.String("component", "gorm"))
	}
}

type statementShape struct {
	operation string
	table     string
	rowLock   bool
}

func shapeOf(sql string) statementShape {
	shape := statementShape{operation: "UNKNOWN"}
	tokens := strings.Fields(strings.ToUpper(sql))
	raw := strings.Fields(sql)

	for i, token := range tokens {
		token = strings.Trim(token, "();")
		switch token {
		case "SELECT", "INSERT", "UPDATE", "DELETE":
			if shape.operation == "UNKNOWN" {
				shape.operation = token
			}
			if token == "UPDATE" && i > 0 && tokens[i-1] == "FOR" {
				shape.rowLock = true
			}
		}
		if shape.table == "" && i+1 < len(raw) {
			switch token {
			case "FROM", "INTO":
				shape.table = tableName(raw[i+1])
			case "UPDATE":
				if i == 0 || tokens[i-1] != "FOR" {
					shape.table = tableName(raw[i+1])
				}
			}
		}
	}
	return shape
}

func tableName(token string) string {
	return strings.ToLower(strings.Trim(token, "\"`();"))
}

var _ gormlogger.Interface = (*SQLLogger)(nil)
