package main

import (
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/justa-cai/glite-go/internal/bridge"
	"github.com/justa-cai/glite-go/internal/recorder"
)

// EnableDebug 启用调试功能
func EnableDebug() {
	debugEnabled = true
	logrus.Info("调试功能已启用")
}

// DumpGoroutines 输出所有goroutine的堆栈信息到日志，退出时用于排查残留的ffmpeg等待
func DumpGoroutines() {
	if !debugEnabled {
		return
	}

	logrus.Info("=== 开始转储goroutine堆栈 ===")
	buf := make([]byte, 1<<20)
	stackLen := runtime.Stack(buf, true)

	for _, line := range strings.Split(string(buf[:stackLen]), "\n") {
		if line != "" {
			logrus.Debug(line)
		}
	}
	logrus.Info("=== goroutine堆栈转储结束 ===")
}

// StartSessionMonitor 每5秒记录一次录音状态和宿主连接数
func StartSessionMonitor(ctrl *recorder.Controller, srv *bridge.Server) chan struct{} {
	stopCh := make(chan struct{})

	if !debugEnabled {
		return stopCh
	}

	logrus.Info("启动录音状态监控...")
	ticker := time.NewTicker(5 * time.Second)

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if sess, ok := ctrl.State(); ok {
					logrus.Debugf("录音中: %s, 音源=%s, 时长=%v, 宿主=%d",
						sess.OutputPath, sess.Source, sess.Duration(time.Now()).Round(time.Second), srv.ConnCount())
				} else {
					logrus.Debugf("空闲, 上次录音=%q, 宿主=%d", ctrl.LastOutputPath(), srv.ConnCount())
				}
			case <-stopCh:
				logrus.Info("录音状态监控已停止")
				return
			}
		}
	}()

	return stopCh
}
