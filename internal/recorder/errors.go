package recorder

import (
	"fmt"
)

// ErrorKind 录音失败的类别
type ErrorKind int

const (
	KindPermissionDenied ErrorKind = iota + 1
	KindDirectory
	KindDeviceUnavailable
	KindPrepareFailed
	KindStartFailed
	KindStopFailed
	KindSessionBusy
)

var kindNames = map[ErrorKind]string{
	KindPermissionDenied:  "permission_denied",
	KindDirectory:         "directory_error",
	KindDeviceUnavailable: "device_unavailable",
	KindPrepareFailed:     "prepare_failed",
	KindStartFailed:       "start_failed",
	KindStopFailed:        "stop_failed",
	KindSessionBusy:       "session_busy",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// 用于 errors.Is 匹配的哨兵错误
var (
	ErrPermissionDenied  = &CaptureError{Kind: KindPermissionDenied}
	ErrDirectory         = &CaptureError{Kind: KindDirectory}
	ErrDeviceUnavailable = &CaptureError{Kind: KindDeviceUnavailable}
	ErrPrepareFailed     = &CaptureError{Kind: KindPrepareFailed}
	ErrStartFailed       = &CaptureError{Kind: KindStartFailed}
	ErrStopFailed        = &CaptureError{Kind: KindStopFailed}
	ErrSessionBusy       = &CaptureError{Kind: KindSessionBusy}
)

// CaptureError 录音会话错误
type CaptureError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *CaptureError) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// Is 按类别匹配
func (e *CaptureError) Is(target error) bool {
	t, ok := target.(*CaptureError)
	return ok && t.Kind == e.Kind
}

func captureErr(kind ErrorKind, op string, err error) *CaptureError {
	return &CaptureError{Kind: kind, Op: op, Err: err}
}
