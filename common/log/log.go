package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Logger 日志句柄，通过构造函数注入到各个组件
type Logger struct {
	l *log.Logger
}

var std = New("levelup", "info")

// InitLog 初始化进程默认日志
// logPath 为空时输出到 stdout
func InitLog(appName string, logLevel string, logPath ...string) error {
	// 使用 os.Stdout 而不是 os.Stderr
	// GoLand 控制台会将 stderr 显示为红色，stdout 显示为正常颜色
	var w io.Writer = os.Stdout
	if len(logPath) > 0 && logPath[0] != "" {
		f, err := os.OpenFile(logPath[0], os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		w = f
	}
	std = NewWithWriter(w, appName, logLevel)
	return nil
}

// New 创建输出到 stdout 的日志句柄
func New(prefix string, logLevel string) *Logger {
	return NewWithWriter(os.Stdout, prefix, logLevel)
}

// NewWithWriter 创建日志句柄
func NewWithWriter(w io.Writer, prefix string, logLevel string) *Logger {
	logger := log.New(w)
	logger.SetPrefix(prefix)
	logger.SetReportTimestamp(true)
	logger.SetTimeFormat(time.DateTime)

	// 启用调用者信息（显示文件名和行号）
	logger.SetReportCaller(true)
	logger.SetLevel(parseLevel(logLevel))
	return &Logger{l: logger}
}

// Discard 丢弃所有输出，测试使用
func Discard() *Logger {
	return NewWithWriter(io.Discard, "", "error")
}

// Default 进程默认日志句柄
func Default() *Logger {
	return std
}

func parseLevel(logLevel string) log.Level {
	// 默认为 info 级别
	switch strings.ToLower(logLevel) {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// With 派生带子前缀的日志句柄
func (lg *Logger) With(prefix string) *Logger {
	if lg == nil {
		return Discard()
	}
	p := lg.l.GetPrefix()
	if p != "" {
		prefix = p + "/" + prefix
	}
	return &Logger{l: lg.l.WithPrefix(prefix)}
}

func (lg *Logger) Fatal(format string, args ...any) {
	lg.l.Helper()
	if len(args) == 0 {
		lg.l.Fatal(format)
	} else {
		lg.l.Fatalf(format, args...)
	}
}

func (lg *Logger) Info(format string, args ...any) {
	lg.l.Helper()
	if len(args) == 0 {
		lg.l.Info(format)
	} else {
		lg.l.Infof(format, args...)
	}
}

func (lg *Logger) Warn(format string, args ...any) {
	lg.l.Helper()
	if len(args) == 0 {
		lg.l.Warn(format)
	} else {
		lg.l.Warnf(format, args...)
	}
}

func (lg *Logger) Error(format string, args ...any) {
	lg.l.Helper()
	if len(args) == 0 {
		lg.l.Error(format)
	} else {
		lg.l.Errorf(format, args...)
	}
}

func (lg *Logger) Debug(format string, args ...any) {
	lg.l.Helper()
	if len(args) == 0 {
		lg.l.Debug(format)
	} else {
		lg.l.Debugf(format, args...)
	}
}

func Fatal(format string, args ...any) {
	std.l.Helper()
	std.Fatal(format, args...)
}

func Info(format string, args ...any) {
	std.l.Helper()
	std.Info(format, args...)
}

func Warn(format string, args ...any) {
	std.l.Helper()
	std.Warn(format, args...)
}

func Error(format string, args ...any) {
	std.l.Helper()
	std.Error(format, args...)
}

func Debug(format string, args ...any) {
	std.l.Helper()
	std.Debug(format, args...)
}
