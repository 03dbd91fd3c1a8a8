// Package config 读取录音服务配置：默认值、TOML文件、GLITE_* 环境变量
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/justa-cai/glite-go/internal/storage"
)

const (
	DefaultListenAddr = "127.0.0.1:17700"
	DefaultAppID      = "glite"
	envPrefix         = "GLITE_"
)

// Config 运行配置
type Config struct {
	StorageRoot   string // 固定目录
	RecordingsDir string // 录音目录，为空时使用 <StorageRoot>/CallRecordings
	ListenAddr    string // 宿主通道监听地址
	FFmpegPath    string
	InputDevice   string // 麦克风设备，为空时使用系统默认
	AppID         string // 打开应用权限设置时使用
	Notify        bool   // 录音时发送系统通知
	NotifyTone    bool   // 发送通知时播放提示音
	LogLevel      string
	LogFile       string // 额外写入的滚动日志文件，为空时只输出到终端

	// Source 实际读取的配置文件，没有时为空
	Source string
}

type fileConfig struct {
	StorageRoot   string `toml:"storage_root"`
	RecordingsDir string `toml:"recordings_dir"`
	ListenAddr    string `toml:"listen_addr"`
	FFmpegPath    string `toml:"ffmpeg_path"`
	InputDevice   string `toml:"input_device"`
	AppID         string `toml:"app_id"`
	Notify        *bool  `toml:"notify"`
	NotifyTone    *bool  `toml:"notify_tone"`
	LogLevel      string `toml:"log_level"`
	LogFile       string `toml:"log_file"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		StorageRoot: storage.DefaultRoot(),
		ListenAddr:  DefaultListenAddr,
		FFmpegPath:  "ffmpeg",
		AppID:       DefaultAppID,
		Notify:      true,
		NotifyTone:  true,
		LogLevel:    "info",
	}
}

// Load 读取配置。path 为空时查找默认位置，默认位置没有文件不算错误；
// 明确指定的文件不存在时返回错误
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = FilePath()
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		} else {
			cfg.Source = path
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FilePath 默认配置文件位置
func FilePath() string {
	var configDir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configDir = filepath.Join(xdg, "glite")
	} else if home, err := os.UserHomeDir(); err == nil {
		configDir = filepath.Join(home, ".config", "glite")
	} else {
		return ""
	}
	return filepath.Join(configDir, "config.toml")
}

// Recordings 录音目录
func (c *Config) Recordings() string {
	if c.RecordingsDir != "" {
		return c.RecordingsDir
	}
	return filepath.Join(c.StorageRoot, storage.RecordingsSubfolder)
}

func (c *Config) applyFile(path string) error {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("配置文件 %s 包含未知的配置项: %v", path, undecoded)
	}

	setString(&c.StorageRoot, expandTilde(fc.StorageRoot))
	setString(&c.RecordingsDir, expandTilde(fc.RecordingsDir))
	setString(&c.ListenAddr, fc.ListenAddr)
	setString(&c.FFmpegPath, expandTilde(fc.FFmpegPath))
	setString(&c.InputDevice, fc.InputDevice)
	setString(&c.AppID, fc.AppID)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFile, expandTilde(fc.LogFile))
	if fc.Notify != nil {
		c.Notify = *fc.Notify
	}
	if fc.NotifyTone != nil {
		c.NotifyTone = *fc.NotifyTone
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.StorageRoot, expandTilde(os.Getenv(envPrefix+"STORAGE_ROOT")))
	setString(&c.RecordingsDir, expandTilde(os.Getenv(envPrefix+"RECORDINGS_DIR")))
	setString(&c.ListenAddr, os.Getenv(envPrefix+"LISTEN_ADDR"))
	setString(&c.FFmpegPath, expandTilde(os.Getenv(envPrefix+"FFMPEG_PATH")))
	setString(&c.InputDevice, os.Getenv(envPrefix+"INPUT_DEVICE"))
	setString(&c.AppID, os.Getenv(envPrefix+"APP_ID"))
	setString(&c.LogLevel, os.Getenv(envPrefix+"LOG_LEVEL"))
	setString(&c.LogFile, expandTilde(os.Getenv(envPrefix+"LOG_FILE")))

	for name, dst := range map[string]*bool{"NOTIFY": &c.Notify, "NOTIFY_TONE": &c.NotifyTone} {
		v := os.Getenv(envPrefix + name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("环境变量 %s%s 不是有效的布尔值: %q", envPrefix, name, v)
		}
		*dst = b
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func expandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}
