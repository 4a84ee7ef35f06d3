package log

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig describes the optional rotating log file.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var logger = zap.NewNop().Sugar()
var filenameTrimChars int
var fileWriter *lumberjack.Logger

// interrupt clears the in place status line before a console write and
// returns the function that repaints it.
var interrupt func() (restore func())

// SetInterrupt must be called before any goroutine logs.
func SetInterrupt(f func() (restore func())) {
	interrupt = f
}

func interrupted() func() {
	if interrupt == nil {
		return func() {}
	}
	return interrupt()
}

func GetCallerFileName(withLine bool) string {
	_, filename, line, _ := runtime.Caller(2)
	extension := filepath.Ext(filename)
	if filenameTrimChars > len(filename)-len(extension) {
		filenameTrimChars = 0
	}
	if withLine {
		return fmt.Sprint(filename[filenameTrimChars:len(filename)-len(extension)], "@", line)
	}
	return filename[filenameTrimChars : len(filename)-len(extension)]
}

func Printf(a string, b ...interface{}) {
	defer interrupted()()
	logger.Infof(GetCallerFileName(false)+": "+a, b...)
}

func Print(a ...interface{}) {
	defer interrupted()()
	logger.Info(append([]interface{}{GetCallerFileName(false) + ": "}, a...)...)
}

func Debugf(a string, b ...interface{}) {
	defer interrupted()()
	logger.Debugf(GetCallerFileName(true)+": "+a, b...)
}

func Debug(a ...interface{}) {
	defer interrupted()()
	logger.Debug(append([]interface{}{GetCallerFileName(true) + ": "}, a...)...)
}

func Warnf(a string, b ...interface{}) {
	defer interrupted()()
	logger.Warnf(GetCallerFileName(true)+": "+a, b...)
}

func Errorf(a string, b ...interface{}) {
	defer interrupted()()
	logger.Errorf(GetCallerFileName(true)+": "+a, b...)
}

func Error(a ...interface{}) {
	defer interrupted()()
	logger.Error(append([]interface{}{GetCallerFileName(true) + ": "}, a...)...)
}

func Fatalf(a string, b ...interface{}) {
	logger.Fatalf(GetCallerFileName(true)+": "+a, b...)
}

func Fatal(a ...interface{}) {
	logger.Fatal(append([]interface{}{GetCallerFileName(true) + ": "}, a...)...)
}

// PrintStatusLog writes a status line without the caller prefix.
func PrintStatusLog(a ...interface{}) {
	logger.Info(a...)
}

func Sync() {
	_ = logger.Sync()
	if fileWriter != nil {
		_ = fileWriter.Close()
	}
}

func Init(verbose, quiet bool, file FileConfig) {
	// Example: https://stackoverflow.com/questions/50933936/zap-logger-does-not-print-on-console-rather-print-in-the-log-file/50936341
	pe := zap.NewProductionEncoderConfig()
	pe.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleEncoder := zapcore.NewConsoleEncoder(pe)

	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}
	consoleLevel := level
	if quiet {
		consoleLevel = zap.ErrorLevel
	}

	cores := []zapcore.Core{zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), consoleLevel)}
	if file.Path != "" {
		fileWriter = &lumberjack.Logger{
			Filename:   file.Path,
			MaxSize:    file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
			MaxAge:     file.MaxAgeDays,
			Compress:   file.Compress,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(pe), zapcore.AddSync(fileWriter), level))
	}
	logger = zap.New(zapcore.NewTee(cores...)).Sugar()

	var callerFilename string
	_, callerFilename, _, _ = runtime.Caller(1)
	filenameTrimChars = len(filepath.Dir(callerFilename)) + 1
}
