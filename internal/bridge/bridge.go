package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/justa-cai/glite-go/internal/protocol"
	"github.com/justa-cai/glite-go/internal/recorder"
)

// Recorder 录音控制器
type Recorder interface {
	Begin(ctx context.Context, target string) (*recorder.Session, error)
	End() error
}

// Folder 录音目录和存储权限
type Folder interface {
	HasAccess() bool
	EnsureFolder() bool
	Path() string
	Exists() bool
}

// AccessRequester 打开存储权限设置界面
type AccessRequester interface {
	RequestAccess()
}

// 控制器之外的错误类别
const (
	KindClosed   = "closed"
	KindInternal = "internal"
)

// Bridge 命令分发
type Bridge struct {
	rec    Recorder
	folder Folder
	access AccessRequester
}

// New 创建命令分发
func New(rec Recorder, folder Folder, access AccessRequester) *Bridge {
	return &Bridge{rec: rec, folder: folder, access: access}
}

// OnAttach 宿主连接时调用，有存储权限就准备好录音目录
func (b *Bridge) OnAttach() {
	if !b.folder.HasAccess() {
		logrus.Debug("没有存储权限，跳过创建录音目录")
		return
	}
	if !b.folder.EnsureFolder() {
		logrus.Warn("宿主连接时创建录音目录失败")
	}
}

// Dispatch 执行一次调用。未知命令返回 not_implemented
func (b *Bridge) Dispatch(ctx context.Context, call protocol.MethodCall) (res protocol.MethodResult) {
	cmd := ParseCommand(call.Channel, call.Method)
	log := logrus.WithFields(logrus.Fields{"id": call.ID, "method": call.Method})

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("处理调用时发生异常: %v", r)
			res = protocol.Failure(call.ID, KindInternal, fmt.Errorf("处理调用时发生异常: %v", r))
		}
		log.WithField("status", res.Status).Debug("调用完成")
	}()

	switch cmd {
	case CommandStartRecording:
		return b.startRecording(ctx, call)
	case CommandStopRecording:
		return b.stopRecording(call)
	case CommandHasStorageAccess:
		return protocol.Success(call.ID, b.folder.HasAccess())
	case CommandRequestStorageAccess:
		b.access.RequestAccess()
		return protocol.Success(call.ID, nil)
	case CommandEnsureOutputFolder:
		return protocol.Success(call.ID, b.folder.EnsureFolder())
	case CommandGetOutputFolderPath:
		return protocol.Success(call.ID, b.folder.Path())
	case CommandFolderExists:
		return protocol.Success(call.ID, b.folder.Exists())
	default:
		log.WithField("channel", call.Channel).Warn("未知的调用")
		return protocol.NotImplemented(call)
	}
}

func (b *Bridge) startRecording(ctx context.Context, call protocol.MethodCall) protocol.MethodResult {
	target, _ := call.StringArg(ArgPhoneNumber)
	if _, err := b.rec.Begin(ctx, target); err != nil {
		logrus.Errorf("无法开始录音: %v", err)
		return protocol.Failure(call.ID, errorKind(err), err)
	}
	return protocol.Success(call.ID, nil)
}

func (b *Bridge) stopRecording(call protocol.MethodCall) protocol.MethodResult {
	if err := b.rec.End(); err != nil {
		logrus.Warnf("结束录音: %v", err)
	}
	return protocol.Success(call.ID, nil)
}

// errorKind 返回宿主可识别的错误类别
func errorKind(err error) string {
	var ce *recorder.CaptureError
	switch {
	case errors.As(err, &ce):
		return ce.Kind.String()
	case errors.Is(err, recorder.ErrClosed):
		return KindClosed
	default:
		return KindInternal
	}
}
