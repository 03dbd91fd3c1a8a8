// Package recorder 管理通话录音会话的生命周期
package recorder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/justa-cai/glite-go/internal/audio"
	"github.com/justa-cai/glite-go/internal/notify"
)

// ErrClosed 控制器已关闭，不再接受新的录音
var ErrClosed = errors.New("录音控制器已关闭")

// Options 控制器选项
type Options struct {
	OutputDir   string           // 录音文件目录
	NewRecorder audio.Factory    // 创建录音设备句柄
	Indicator   notify.Indicator // 前台提示（可选）
	Profile     audio.Profile    // 编码参数，默认 audio.DefaultProfile
	Clock       func() time.Time // 时间来源，默认 time.Now
}

// Controller 同一时间最多持有一个录音会话。
// Begin、End、Close以及异步错误处理互斥执行。
type Controller struct {
	opts Options

	mu         sync.Mutex
	session    *Session
	handle     audio.Recorder
	release    func(reason string) // 会话创建时注册，所有结束路径都会执行
	lastOutput string
	closed     bool
}

// New 创建录音控制器
func New(opts Options) (*Controller, error) {
	if opts.OutputDir == "" {
		return nil, errors.New("未指定录音目录")
	}
	if opts.NewRecorder == nil {
		return nil, errors.New("未指定录音设备")
	}
	if opts.Indicator == nil {
		opts.Indicator = notify.Nop{}
	}
	if opts.Profile == (audio.Profile{}) {
		opts.Profile = audio.DefaultProfile
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Controller{opts: opts}, nil
}

// Begin 开始一次录音。target为空时使用"unknown"。
// 已在录音时返回 ErrSessionBusy，不影响当前会话。
func (c *Controller) Begin(ctx context.Context, target string) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.session != nil {
		return nil, captureErr(KindSessionBusy, "begin", fmt.Errorf("正在录音: %s", c.session.OutputPath))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	token := SanitizeTarget(target)
	log := logrus.WithField("target", token)

	if err := os.MkdirAll(c.opts.OutputDir, 0o755); err != nil {
		log.Errorf("创建录音目录失败: %v", err)
		return nil, captureErr(fsKind(err, KindDirectory), "mkdir", err)
	}

	now := c.opts.Clock()
	path := filepath.Join(c.opts.OutputDir, FileName(token, now, c.opts.Profile.Extension))
	log = log.WithField("path", path)

	rec := c.opts.NewRecorder()
	if rec == nil {
		return nil, captureErr(KindDeviceUnavailable, "acquire", errors.New("无法获取录音设备"))
	}

	// abort 失败时释放句柄并删除不完整的文件
	abort := func(kind ErrorKind, op string, err error) error {
		if relErr := rec.Release(); relErr != nil {
			log.Warnf("释放录音设备失败: %v", relErr)
		}
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			log.Warnf("删除未完成的录音文件失败: %v", rmErr)
		}
		log.Errorf("开始录音失败(%s): %v", op, err)
		return captureErr(kind, op, err)
	}

	source := audio.SourceVoiceCall
	if err := rec.SetAudioSource(source); err != nil {
		if !errors.Is(err, audio.ErrSourceUnsupported) {
			return nil, abort(KindDeviceUnavailable, "source", err)
		}
		log.Warnf("不支持通话双向音源，改用麦克风: %v", err)
		source = audio.SourceMic
		if err := rec.SetAudioSource(source); err != nil {
			return nil, abort(KindDeviceUnavailable, "source", err)
		}
	}

	rec.SetProfile(c.opts.Profile)
	rec.SetOutputFile(path)
	rec.SetOnError(func(err error) {
		c.handleCaptureError(rec, err)
	})

	if err := rec.Prepare(); err != nil {
		return nil, abort(fsKind(err, KindPrepareFailed), "prepare", err)
	}
	if err := rec.Start(); err != nil {
		return nil, abort(KindStartFailed, "start", err)
	}

	sess := &Session{
		Active:     true,
		OutputPath: path,
		Target:     token,
		StartedAt:  now,
		Source:     source,
	}
	c.session = sess
	c.handle = rec
	c.release = c.newRelease(rec, sess)

	if err := c.opts.Indicator.Show(notify.RecordingNotice); err != nil {
		log.Warnf("显示前台通知失败: %v", err)
	}

	log.WithField("source", source).Info("开始录音")
	snapshot := *sess
	return &snapshot, nil
}

// newRelease 生成会话的释放函数，只会执行一次
func (c *Controller) newRelease(rec audio.Recorder, sess *Session) func(reason string) {
	var once sync.Once
	return func(reason string) {
		once.Do(func() {
			log := logrus.WithFields(logrus.Fields{"path": sess.OutputPath, "reason": reason})
			if err := rec.Stop(); err != nil && !errors.Is(err, audio.ErrNotRecording) {
				log.Error(captureErr(KindStopFailed, "stop", err))
			}
			if err := rec.Release(); err != nil {
				log.Error(captureErr(KindStopFailed, "release", err))
			}
			c.opts.Indicator.Dismiss()
			log.Infof("录音已保存, 时长: %v", sess.Duration(c.opts.Clock()).Round(time.Second))
		})
	}
}

// End 结束当前录音。没有录音时什么都不做。
// 停止和释放失败只记录日志，不会返回错误。
func (c *Controller) End() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLocked("stop")
	return nil
}

// Close 进程退出时调用，结束录音并拒绝之后的 Begin，可重复调用
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLocked("teardown")
	c.closed = true
	return nil
}

func (c *Controller) endLocked(reason string) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("结束录音时发生异常: %v", r)
		}
	}()

	release := c.release
	sess := c.session
	c.release = nil
	c.session = nil
	c.handle = nil

	if sess == nil {
		return
	}
	c.lastOutput = sess.OutputPath
	if release != nil {
		release(reason)
	}
}

// handleCaptureError 录音过程中设备异常退出
func (c *Controller) handleCaptureError(rec audio.Recorder, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle != rec {
		return
	}
	logrus.WithField("path", c.session.OutputPath).Errorf("录音异常中断: %v", err)
	c.endLocked("capture_error")
}

// State 返回当前会话的快照
func (c *Controller) State() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// IsRecording 是否正在录音
func (c *Controller) IsRecording() bool {
	_, ok := c.State()
	return ok
}

// LastOutputPath 最近一次录音的文件路径，仅用于诊断
func (c *Controller) LastOutputPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return c.session.OutputPath
	}
	return c.lastOutput
}

// OutputDir 录音文件目录
func (c *Controller) OutputDir() string {
	return c.opts.OutputDir
}

func fsKind(err error, fallback ErrorKind) ErrorKind {
	if errors.Is(err, fs.ErrPermission) {
		return KindPermissionDenied
	}
	return fallback
}
