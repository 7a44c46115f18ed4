package log

import (
	"sync/atomic"

	"github.com/hatlonely/rooster/log/logger"
)

type Logger = logger.Logger

var defaultLogger atomic.Value

func init() {
	// 默认向终端输出 text 格式日志
	slog, err := logger.NewSLogWithOptions(&logger.SLogOptions{
		Level:  "info",
		Format: "text",
	})
	if err != nil {
		panic("failed to initialize default logger: " + err.Error())
	}
	SetDefault(slog)
}

// Default 进程级默认日志器
func Default() Logger {
	return defaultLogger.Load().(*holder).logger
}

// SetDefault 替换默认日志器，nil 被忽略
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defaultLogger.Store(&holder{logger: l})
}

// New 根据配置创建日志器
func New(options *logger.SLogOptions) (Logger, error) {
	return logger.NewSLogWithOptions(options)
}

// Discard 丢弃所有日志
func Discard() Logger {
	return logger.Discard()
}

type holder struct {
	logger Logger
}
