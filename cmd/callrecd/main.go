package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/justa-cai/glite-go/internal/audio"
	"github.com/justa-cai/glite-go/internal/bridge"
	"github.com/justa-cai/glite-go/internal/config"
	"github.com/justa-cai/glite-go/internal/logging"
	"github.com/justa-cai/glite-go/internal/notify"
	"github.com/justa-cai/glite-go/internal/notify/tone"
	"github.com/justa-cai/glite-go/internal/recorder"
	"github.com/justa-cai/glite-go/internal/storage"
	"github.com/justa-cai/glite-go/internal/version"
)

var (
	// 命令行参数，设置后覆盖配置文件和环境变量
	configPath  string
	listenAddr  string
	storageRoot string
	ffmpegPath  string
	inputDevice string
	logLevel    string
	logFile     string
	noNotify    bool
	showVersion bool
	// 调试标志
	debugEnabled bool
)

func init() {
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认 ~/.config/glite/config.toml")
	flag.StringVar(&listenAddr, "listen", "", "宿主通道监听地址，例如 127.0.0.1:17700")
	flag.StringVar(&storageRoot, "storage-root", "", "录音固定目录")
	flag.StringVar(&ffmpegPath, "ffmpeg", "", "ffmpeg可执行文件路径")
	flag.StringVar(&inputDevice, "input-device", "", "麦克风设备名称")
	flag.StringVar(&logLevel, "log-level", "", "日志级别 (debug, info, warn, error, fatal, panic)")
	flag.StringVar(&logFile, "log-file", "", "额外写入的日志文件")
	flag.BoolVar(&noNotify, "no-notify", false, "录音时不发送系统通知")
	flag.BoolVar(&showVersion, "version", false, "显示版本信息")
	flag.BoolVar(&debugEnabled, "debug", false, "启用调试功能")

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: logging.TimestampFormat,
	})
}

// applyFlags 只覆盖命令行中明确设置的参数
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.ListenAddr = listenAddr
		case "storage-root":
			cfg.StorageRoot = storageRoot
		case "ffmpeg":
			cfg.FFmpegPath = ffmpegPath
		case "input-device":
			cfg.InputDevice = inputDevice
		case "log-level":
			cfg.LogLevel = logLevel
		case "log-file":
			cfg.LogFile = logFile
		case "no-notify":
			cfg.Notify = !noNotify
		}
	})
	if debugEnabled {
		cfg.LogLevel = "debug"
	}
}

func main() {
	flag.Parse()
	if showVersion {
		fmt.Println(version.Full())
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("加载配置失败: %v", err)
	}
	applyFlags(cfg)

	logCloser, err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		logrus.Fatalf("初始化日志失败: %v", err)
	}
	defer logCloser.Close()

	logrus.Infof("正在启动录音服务 (%s)...", version.Full())
	if cfg.Source != "" {
		logrus.Infof("使用配置文件: %s", cfg.Source)
	}

	store := storage.New(cfg.StorageRoot)
	store.RecordingsDir = cfg.Recordings()
	logrus.Infof("录音目录: %s", store.RecordingsDir)

	audioOpts := audio.Options{FFmpegPath: cfg.FFmpegPath, InputDevice: cfg.InputDevice}
	if err := audio.CheckFFmpeg(cfg.FFmpegPath); err != nil {
		logrus.Warnf("ffmpeg不可用，开始录音时会失败: %v", err)
	} else if err := audio.SupportsSource(audioOpts, audio.SourceVoiceCall); err != nil {
		logrus.Warnf("没有找到系统播放回环设备，录音将只包含麦克风: %v", err)
	}

	var indicator notify.Indicator = notify.Nop{}
	if cfg.Notify {
		opts := notify.DesktopOptions{AppName: cfg.AppID}
		if cfg.NotifyTone {
			opts.Tone = tone.Shared()
		}
		indicator = notify.NewDesktop(opts)
	}

	ctrl, err := recorder.New(recorder.Options{
		OutputDir:   store.RecordingsDir,
		NewRecorder: audio.NewFactory(audioOpts),
		Indicator:   indicator,
	})
	if err != nil {
		logrus.Fatalf("创建录音控制器失败: %v", err)
	}

	b := bridge.New(ctrl, store, storage.NewSettingsNavigator(cfg.AppID, store.Root))
	srv := bridge.NewServer(b, audio.DefaultProfile)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe(cfg.ListenAddr)
	}()

	var monitorStop chan struct{}
	if debugEnabled {
		EnableDebug()
		monitorStop = StartSessionMonitor(ctrl, srv)
	}

	// 捕获中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	code := 0
	select {
	case sig := <-sigChan:
		logrus.Infof("接收到信号: %v, 正在退出...", sig)
	case err := <-serveErr:
		if err != nil {
			logrus.Errorf("宿主通道服务异常退出: %v", err)
			code = 1
		}
	}

	if monitorStop != nil {
		close(monitorStop)
	}
	shutdown(ctrl, srv)
	if code != 0 {
		logCloser.Close()
		os.Exit(code)
	}
}

// shutdown 结束录音并关闭服务，超时后强制退出
func shutdown(ctrl *recorder.Controller, srv *bridge.Server) {
	forcedExit := make(chan struct{})
	go func() {
		select {
		case <-forcedExit:
		case <-time.After(audio.DefaultStopTimeout + 3*time.Second):
			logrus.Warn("清理超时，强制结束进程")
			os.Exit(1)
		}
	}()
	defer close(forcedExit)

	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("退出清理时发生异常: %v", r)
		}
	}()

	// 先结束录音，保证文件写完
	if err := ctrl.Close(); err != nil {
		logrus.Errorf("关闭录音控制器失败: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Warnf("关闭宿主通道服务失败: %v", err)
	}

	DumpGoroutines()
	logrus.Info("录音服务已退出")
}
