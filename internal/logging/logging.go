// Package logging 配置全局 logrus 日志
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const TimestampFormat = "2006-01-02 15:04:05"

// Options 日志选项
type Options struct {
	Level string // debug, info, warn, error, fatal, panic
	File  string // 滚动日志文件，为空时只输出到 stderr

	MaxSizeMB  int // 单个文件大小上限，默认 10
	MaxBackups int // 保留的旧文件数量，默认 5
	MaxAgeDays int // 旧文件保留天数，默认 30
}

// Setup 设置日志格式、级别和输出。返回的 io.Closer 在退出时关闭日志文件
func Setup(opts Options) (io.Closer, error) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: TimestampFormat,
	})
	logrus.SetLevel(ParseLevel(opts.Level))

	if opts.File == "" {
		logrus.SetOutput(os.Stderr)
		return io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, err
	}
	file := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    orDefault(opts.MaxSizeMB, 10),
		MaxBackups: orDefault(opts.MaxBackups, 5),
		MaxAge:     orDefault(opts.MaxAgeDays, 30),
		LocalTime:  true,
	}
	logrus.SetOutput(io.MultiWriter(os.Stderr, file))
	logrus.Debugf("日志同时写入文件: %s", opts.File)
	return file, nil
}

// ParseLevel 解析日志级别，未知级别使用 info
func ParseLevel(level string) logrus.Level {
	if level == "" {
		return logrus.InfoLevel
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("未知的日志级别: %s，使用默认级别 info", level)
		return logrus.InfoLevel
	}
	return lvl
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
