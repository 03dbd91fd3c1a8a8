package audio

import (
	"errors"
	"fmt"
)

// Source 录音音源
type Source int

const (
	SourceVoiceCall Source = iota // 通话双向音频（麦克风 + 系统播放回环）
	SourceMic                     // 仅麦克风
)

// String 返回音源名称
func (s Source) String() string {
	switch s {
	case SourceVoiceCall:
		return "voice_call"
	case SourceMic:
		return "mic"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

const (
	ContainerMPEG4 = "mp4"
	CodecAAC       = "aac"

	DefaultBitRate    = 128000
	DefaultSampleRate = 44100
	DefaultExtension  = "m4a"
)

// Profile 编码参数
type Profile struct {
	Container  string // 容器格式，例如"mp4"
	Codec      string // 音频编码，例如"aac"
	BitRate    int    // 比特率(bit/s)
	SampleRate int    // 采样率
	Channels   int    // 声道数，0表示由音源决定
	Extension  string // 文件扩展名
}

// DefaultProfile MPEG-4/AAC, 128kbit/s, 44.1kHz
var DefaultProfile = Profile{
	Container:  ContainerMPEG4,
	Codec:      CodecAAC,
	BitRate:    DefaultBitRate,
	SampleRate: DefaultSampleRate,
	Extension:  DefaultExtension,
}

// Validate 检查编码参数是否完整
func (p Profile) Validate() error {
	if p.Container == "" || p.Codec == "" {
		return errors.New("未指定容器格式或音频编码")
	}
	if p.BitRate <= 0 || p.SampleRate <= 0 {
		return fmt.Errorf("无效的编码参数: bitrate=%d sample_rate=%d", p.BitRate, p.SampleRate)
	}
	if p.Channels < 0 {
		return fmt.Errorf("无效的声道数: %d", p.Channels)
	}
	return nil
}

var (
	ErrSourceUnsupported = errors.New("当前设备不支持该音源")
	ErrNotPrepared       = errors.New("录音器尚未准备")
	ErrNotRecording      = errors.New("录音器未在录音")
	ErrAlreadyStarted    = errors.New("录音已在进行中")
	ErrReleased          = errors.New("录音器已释放")
	ErrFFmpegNotFound    = errors.New("未找到ffmpeg")
)

// Recorder 录音设备句柄。调用顺序：
// SetAudioSource -> SetProfile -> SetOutputFile -> Prepare -> Start -> Stop -> Release
type Recorder interface {
	// SetAudioSource 选择音源，不支持时返回 ErrSourceUnsupported
	SetAudioSource(src Source) error
	SetProfile(p Profile)
	SetOutputFile(path string)
	// SetOnError 设置录音过程中异步失败的回调
	SetOnError(cb func(err error))
	Prepare() error
	Start() error
	// Stop 停止录音并完成输出文件
	Stop() error
	// Release 释放句柄，可重复调用
	Release() error
}

// Factory 创建新的录音设备句柄
type Factory func() Recorder
