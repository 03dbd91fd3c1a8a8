package protocol

import (
	"encoding/json"
	"fmt"
)

// 消息类型
const (
	TypeHello  = "hello"
	TypeCall   = "call"
	TypeResult = "result"
)

const (
	Version            = 1
	TransportWebsocket = "websocket"
)

// 宿主通道，沿用原应用的通道名
const (
	ChannelStoragePermission = "storage_permission"
	ChannelCallRecording     = "call_recording"
)

// AudioParams 录音编码参数，服务器在hello中告知
type AudioParams struct {
	Container  string `json:"container"`   // 容器格式，例如"mp4"
	Format     string `json:"format"`      // 音频编码格式，例如"aac"
	BitRate    int    `json:"bit_rate"`    // 码率，例如128000
	SampleRate int    `json:"sample_rate"` // 采样率，例如44100
	Extension  string `json:"extension"`   // 文件扩展名，例如"m4a"
}

// HelloMessage 握手消息。客户端先发送，服务器回复时附带会话ID和音频参数
type HelloMessage struct {
	Type        string       `json:"type"`                   // 消息类型，必须为"hello"
	Version     int          `json:"version"`                // 协议版本号
	Transport   string       `json:"transport"`              // 传输方式，必须为"websocket"
	SessionID   string       `json:"session_id,omitempty"`   // 服务器分配的连接ID
	AudioParams *AudioParams `json:"audio_params,omitempty"` // 可选，录音参数
}

// NewHello 创建客户端hello消息
func NewHello() HelloMessage {
	return HelloMessage{Type: TypeHello, Version: Version, Transport: TransportWebsocket}
}

// MethodCall 宿主发起的一次方法调用
type MethodCall struct {
	Type    string                 `json:"type"`           // 消息类型，必须为"call"
	ID      string                 `json:"id"`             // 请求ID，结果中原样返回
	Channel string                 `json:"channel"`        // 通道名
	Method  string                 `json:"method"`         // 方法名
	Args    map[string]interface{} `json:"args,omitempty"` // 参数
}

// StringArg 读取字符串参数。参数不存在、为null或不是字符串时返回false
func (c MethodCall) StringArg(name string) (string, bool) {
	v, ok := c.Args[name]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Status 调用结果状态
type Status string

const (
	StatusSuccess        Status = "success"
	StatusError          Status = "error"
	StatusNotImplemented Status = "not_implemented"
)

// MethodResult 方法调用的结果
type MethodResult struct {
	Type      string      `json:"type"`                 // 消息类型，必须为"result"
	ID        string      `json:"id"`                   // 对应的请求ID
	Status    Status      `json:"status"`               // 结果状态
	Value     interface{} `json:"value,omitempty"`      // 返回值
	Error     string      `json:"error,omitempty"`      // 错误描述
	ErrorKind string      `json:"error_kind,omitempty"` // 错误类别，例如"start_failed"
}

// Success 成功结果，value可以为nil
func Success(id string, value interface{}) MethodResult {
	return MethodResult{Type: TypeResult, ID: id, Status: StatusSuccess, Value: value}
}

// Failure 失败结果
func Failure(id string, kind string, err error) MethodResult {
	return MethodResult{Type: TypeResult, ID: id, Status: StatusError, Error: err.Error(), ErrorKind: kind}
}

// NotImplemented 未知方法的结果
func NotImplemented(call MethodCall) MethodResult {
	return MethodResult{
		Type:   TypeResult,
		ID:     call.ID,
		Status: StatusNotImplemented,
		Error:  fmt.Sprintf("未实现的方法: %s/%s", call.Channel, call.Method),
	}
}

// Err 把非成功结果转换为错误
func (r MethodResult) Err() error {
	switch r.Status {
	case StatusSuccess:
		return nil
	case StatusNotImplemented:
		return &RemoteError{Status: r.Status, Message: r.Error}
	default:
		return &RemoteError{Status: r.Status, Kind: r.ErrorKind, Message: r.Error}
	}
}

// RemoteError 服务器返回的失败结果
type RemoteError struct {
	Status  Status
	Kind    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s(%s): %s", e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

// MessageType 从JSON数据中提取消息类型，无法解析时返回空字符串
func MessageType(data []byte) string {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return ""
	}
	return head.Type
}
