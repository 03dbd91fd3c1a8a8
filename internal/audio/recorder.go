package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultFFmpegPath  = "ffmpeg"
	DefaultStopTimeout = 5 * time.Second
	probeTimeout       = 3 * time.Second
	stderrTailSize     = 4096
)

// Options ffmpeg录音器选项
type Options struct {
	FFmpegPath  string        // ffmpeg可执行文件，默认"ffmpeg"
	InputDevice string        // 麦克风设备名称（可选），为空时使用平台默认设备
	StopTimeout time.Duration // 等待ffmpeg写完文件的最长时间
}

func (o Options) withDefaults() Options {
	if o.FFmpegPath == "" {
		o.FFmpegPath = DefaultFFmpegPath
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = DefaultStopTimeout
	}
	return o
}

// platform 平台相关的ffmpeg输入参数
type platform interface {
	// micInput 麦克风输入参数
	micInput(ffmpeg, device string) ([]string, error)
	// loopbackInput 系统播放回环输入参数，没有回环设备时返回错误
	loopbackInput(ffmpeg string) ([]string, error)
}

// NewFactory 返回创建ffmpeg录音器的工厂
func NewFactory(opts Options) Factory {
	opts = opts.withDefaults()
	return func() Recorder {
		return newFFmpegRecorder(opts, newPlatform())
	}
}

// CheckFFmpeg 检查ffmpeg是否可用
func CheckFFmpeg(path string) error {
	if path == "" {
		path = DefaultFFmpegPath
	}
	if _, err := exec.LookPath(path); err != nil {
		return fmt.Errorf("%w: %s", ErrFFmpegNotFound, path)
	}
	return nil
}

// SupportsSource 检查当前主机能否提供指定音源
func SupportsSource(opts Options, src Source) error {
	r := NewFactory(opts)()
	defer r.Release()
	return r.SetAudioSource(src)
}

// ffmpegRecorder 使用ffmpeg子进程实现的录音句柄
type ffmpegRecorder struct {
	opts     Options
	platform platform

	mu        sync.Mutex
	source    Source
	inputs    [][]string
	profile   Profile
	output    string
	onError   func(error)
	args      []string
	prepared  bool
	recording bool
	stopping  bool
	released  bool
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stderr    *tailBuffer
	exited    chan struct{}
	waitErr   error
}

func newFFmpegRecorder(opts Options, p platform) *ffmpegRecorder {
	return &ffmpegRecorder{
		opts:     opts,
		platform: p,
		profile:  DefaultProfile,
	}
}

func (r *ffmpegRecorder) SetAudioSource(src Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrReleased
	}

	mic, err := r.platform.micInput(r.opts.FFmpegPath, r.opts.InputDevice)
	if err != nil {
		return fmt.Errorf("获取麦克风输入失败: %w", err)
	}

	switch src {
	case SourceMic:
		r.inputs = [][]string{mic}
	case SourceVoiceCall:
		loopback, err := r.platform.loopbackInput(r.opts.FFmpegPath)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSourceUnsupported, err)
		}
		r.inputs = [][]string{mic, loopback}
	default:
		return fmt.Errorf("%w: %s", ErrSourceUnsupported, src)
	}
	r.source = src
	r.prepared = false
	return nil
}

func (r *ffmpegRecorder) SetProfile(p Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profile = p
	r.prepared = false
}

func (r *ffmpegRecorder) SetOutputFile(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.output = path
	r.prepared = false
}

func (r *ffmpegRecorder) SetOnError(cb func(err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = cb
}

// Prepare 校验参数、检查ffmpeg并创建输出文件
func (r *ffmpegRecorder) Prepare() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrReleased
	}
	if r.recording {
		return ErrAlreadyStarted
	}
	if len(r.inputs) == 0 {
		return errors.New("未设置音源")
	}
	if r.output == "" {
		return errors.New("未设置输出文件")
	}
	if err := r.profile.Validate(); err != nil {
		return err
	}
	if err := CheckFFmpeg(r.opts.FFmpegPath); err != nil {
		return err
	}

	f, err := os.OpenFile(r.output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("创建输出文件失败: %w", err)
	}
	f.Close()

	r.args = buildArgs(r.inputs, r.profile, r.output)
	r.prepared = true
	logrus.Debugf("ffmpeg参数: %v", r.args)
	return nil
}

// Start 启动ffmpeg子进程
func (r *ffmpegRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrReleased
	}
	if r.recording {
		return ErrAlreadyStarted
	}
	if !r.prepared {
		return ErrNotPrepared
	}

	cmd := exec.Command(r.opts.FFmpegPath, r.args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("创建ffmpeg输入管道失败: %w", err)
	}
	stderr := newTailBuffer(stderrTailSize)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return fmt.Errorf("启动ffmpeg失败: %w", err)
	}

	r.cmd = cmd
	r.stdin = stdin
	r.stderr = stderr
	r.exited = make(chan struct{})
	r.waitErr = nil
	r.stopping = false
	r.recording = true

	go r.wait(cmd, r.exited)
	logrus.Debugf("ffmpeg已启动, pid=%d, 音源=%s", cmd.Process.Pid, r.source)
	return nil
}

// wait 等待ffmpeg退出，非主动停止时触发错误回调
func (r *ffmpegRecorder) wait(cmd *exec.Cmd, exited chan struct{}) {
	err := cmd.Wait()

	r.mu.Lock()
	r.waitErr = err
	r.recording = false
	stopping := r.stopping
	onError := r.onError
	tail := r.stderr.String()
	r.mu.Unlock()
	close(exited)

	if stopping || onError == nil {
		return
	}
	if err == nil {
		err = errors.New("ffmpeg意外退出")
	}
	if tail != "" {
		err = fmt.Errorf("%w: %s", err, tail)
	}
	onError(err)
}

// Stop 通知ffmpeg结束录音，等待其写完MP4文件
func (r *ffmpegRecorder) Stop() error {
	r.mu.Lock()
	if !r.recording || r.cmd == nil {
		r.mu.Unlock()
		return ErrNotRecording
	}
	r.stopping = true
	cmd := r.cmd
	stdin := r.stdin
	exited := r.exited
	stderr := r.stderr
	r.mu.Unlock()

	// ffmpeg收到q后正常收尾
	if _, err := io.WriteString(stdin, "q"); err != nil {
		logrus.Debugf("向ffmpeg发送退出指令失败: %v", err)
	}
	stdin.Close()

	select {
	case <-exited:
	case <-time.After(r.opts.StopTimeout):
		logrus.Warnf("等待ffmpeg退出超时(%v)，强制结束", r.opts.StopTimeout)
		_ = cmd.Process.Kill()
		<-exited
		return fmt.Errorf("停止录音超时，输出文件可能不完整")
	}

	r.mu.Lock()
	err := r.waitErr
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("ffmpeg退出异常: %w: %s", err, stderr.String())
	}
	return nil
}

// Release 释放句柄，必要时先停止录音
func (r *ffmpegRecorder) Release() error {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return nil
	}
	recording := r.recording
	r.mu.Unlock()

	var err error
	if recording {
		if stopErr := r.Stop(); stopErr != nil && !errors.Is(stopErr, ErrNotRecording) {
			err = stopErr
		}
	}

	r.mu.Lock()
	r.released = true
	r.prepared = false
	r.cmd = nil
	r.stdin = nil
	r.onError = nil
	r.mu.Unlock()
	return err
}

// buildArgs 生成ffmpeg命令行参数
func buildArgs(inputs [][]string, p Profile, output string) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	for _, in := range inputs {
		args = append(args, in...)
	}
	if len(inputs) > 1 {
		args = append(args, "-filter_complex",
			fmt.Sprintf("amix=inputs=%d:duration=longest:dropout_transition=0", len(inputs)))
	}
	args = append(args,
		"-c:a", p.Codec,
		"-b:a", strconv.Itoa(p.BitRate),
		"-ar", strconv.Itoa(p.SampleRate),
	)
	if p.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(p.Channels))
	}
	return append(args, "-f", p.Container, "-y", output)
}

// probe 运行一个短命令并返回合并输出，用于枚举设备
func probe(name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return string(out), err
}

// tailBuffer 只保留最后n个字节的写入内容
type tailBuffer struct {
	mu  sync.Mutex
	n   int
	buf bytes.Buffer
}

func newTailBuffer(n int) *tailBuffer {
	return &tailBuffer{n: n}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if extra := t.buf.Len() - t.n; extra > 0 {
		t.buf.Next(extra)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	if t == nil {
		return ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(bytes.TrimSpace(t.buf.Bytes()))
}
