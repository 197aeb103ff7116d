package log

import (
	"os"

	tmlog "github.com/tendermint/tendermint/libs/log"
)

var (
	fileWriter *AsyncFileWriter
	logger     tmlog.Logger
)

func init() {
	logger = NewConsoleLogger()
}

func InitLogger(l tmlog.Logger) {
	logger = l
}

// Close flushes and closes the log file opened by NewAsyncFileLogger, if any.
func Close() {
	if fileWriter != nil {
		fileWriter.Stop()
		fileWriter = nil
	}
}

func NewConsoleLogger() tmlog.Logger {
	return tmlog.NewTMLogger(tmlog.NewSyncWriter(os.Stdout))
}

func NewAsyncFileLogger(filePath string, buffSize int64) (tmlog.Logger, error) {
	Close()

	w := NewAsyncFileWriter(filePath, buffSize)
	if err := w.Start(); err != nil {
		return nil, err
	}
	fileWriter = w
	return tmlog.NewTMLogger(w), nil
}

func Debug(msg string, keyvals ...interface{}) {
	logger.Debug(msg, keyvals...)
}

func Info(msg string, keyvals ...interface{}) {
	logger.Info(msg, keyvals...)
}

func Error(msg string, keyvals ...interface{}) {
	logger.Error(msg, keyvals...)
}

func With(keyvals ...interface{}) tmlog.Logger {
	return logger.With(keyvals...)
}
