package logger

import "gitlab.com/plantguard-2025.net/internal/adapter/logging"

// Logger is the process-wide default used before a service-specific logger
// is wired, e.g. during config loading in main.
var Logger = logging.NewZapLogger()

func Info(msg string, args ...interface{}) {
	Logger.Info(msg, args...)
}

func Error(msg string, args ...interface{}) {
	Logger.Error(msg, args...)
}

func Debug(msg string, args ...interface{}) {
	Logger.Debug(msg, args...)
}

func Warn(msg string, args ...interface{}) {
	Logger.Warn(msg, args...)
}
