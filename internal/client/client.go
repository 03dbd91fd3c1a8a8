// Package client 以宿主身份连接录音服务，调用通道方法
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/justa-cai/glite-go/internal/protocol"
)

// 客户端状态常量
const (
	StateIdle       = "idle"       // 未连接
	StateConnecting = "connecting" // 正在连接
	StateOpen       = "open"       // 已完成握手
)

const (
	DefaultURL          = "ws://127.0.0.1:17700/channel"
	DefaultHelloTimeout = 10 * time.Second
	DefaultCallTimeout  = 15 * time.Second
)

// ErrDisconnected 连接已断开，未完成的调用全部失败
var ErrDisconnected = errors.New("与录音服务的连接已断开")

// Client 录音服务客户端
type Client struct {
	protocol protocol.Protocol

	mu            sync.Mutex
	state         string
	clientID      string
	sessionID     string
	audioParams   *protocol.AudioParams
	pending       map[string]chan protocol.MethodResult
	helloReceived chan protocol.HelloMessage

	onDisconnected func(err error)
}

// New 创建一个新的客户端实例
func New(p protocol.Protocol) *Client {
	c := &Client{
		protocol: p,
		state:    StateIdle,
		pending:  make(map[string]chan protocol.MethodResult),
	}
	p.SetOnJSONMessage(c.handleJSONMessage)
	p.SetOnDisconnected(c.handleDisconnected)
	return c
}

// SetClientID 设置客户端ID，为空时连接前自动生成
func (c *Client) SetClientID(clientID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clientID = clientID
}

// SetOnDisconnected 设置连接意外断开的回调
func (c *Client) SetOnDisconnected(callback func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnected = callback
}

// State 获取当前状态
func (c *Client) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID 服务器分配的连接ID
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// AudioParams 服务器告知的录音参数，握手前为nil
func (c *Client) AudioParams() *protocol.AudioParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.audioParams
}

// Open 连接服务器并完成hello握手
func (c *Client) Open(url string) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return errors.New("客户端不在空闲状态，无法重复连接")
	}
	c.state = StateConnecting
	if c.clientID == "" {
		c.clientID = uuid.New().String()
	}
	c.protocol.SetHeader("Client-Id", c.clientID)
	c.protocol.SetHeader("Protocol-Version", fmt.Sprint(protocol.Version))
	c.helloReceived = make(chan protocol.HelloMessage, 1)
	helloReceived := c.helloReceived
	c.mu.Unlock()

	if url == "" {
		url = DefaultURL
	}
	logrus.Debugf("连接录音服务: %s", url)

	if err := c.protocol.Connect(url); err != nil {
		c.setState(StateIdle)
		return fmt.Errorf("连接录音服务失败: %w", err)
	}

	if err := c.protocol.SendJSON(protocol.NewHello()); err != nil {
		c.protocol.Disconnect()
		c.setState(StateIdle)
		return fmt.Errorf("发送hello消息失败: %w", err)
	}

	select {
	case hello := <-helloReceived:
		c.mu.Lock()
		c.state = StateOpen
		c.sessionID = hello.SessionID
		c.audioParams = hello.AudioParams
		c.mu.Unlock()
		logrus.Debugf("握手完成, 会话ID: %s", hello.SessionID)
		return nil
	case <-time.After(DefaultHelloTimeout):
		logrus.Error("等待服务器hello响应超时")
		c.protocol.Disconnect()
		c.setState(StateIdle)
		return errors.New("等待服务器Hello响应超时")
	}
}

// Invoke 调用通道方法并等待结果。
// 服务器返回error或not_implemented时返回 *protocol.RemoteError
func (c *Client) Invoke(ctx context.Context, channel, method string, args map[string]interface{}) (interface{}, error) {
	res, err := c.Call(ctx, channel, method, args)
	if err != nil {
		return nil, err
	}
	return res.Value, res.Err()
}

// Call 与 Invoke 相同，但返回完整的结果消息
func (c *Client) Call(ctx context.Context, channel, method string, args map[string]interface{}) (protocol.MethodResult, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCallTimeout)
		defer cancel()
	}

	call := protocol.MethodCall{
		Type:    protocol.TypeCall,
		ID:      uuid.New().String(),
		Channel: channel,
		Method:  method,
		Args:    args,
	}
	done := make(chan protocol.MethodResult, 1)

	c.mu.Lock()
	if c.state != StateOpen {
		c.mu.Unlock()
		return protocol.MethodResult{}, errors.New("未连接到录音服务")
	}
	c.pending[call.ID] = done
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, call.ID)
		c.mu.Unlock()
	}()

	logrus.Debugf("调用 %s/%s, id=%s", channel, method, call.ID)
	if err := c.protocol.SendJSON(call); err != nil {
		return protocol.MethodResult{}, fmt.Errorf("发送调用失败: %w", err)
	}

	select {
	case res, ok := <-done:
		if !ok {
			return protocol.MethodResult{}, ErrDisconnected
		}
		return res, nil
	case <-ctx.Done():
		return protocol.MethodResult{}, ctx.Err()
	}
}

// Close 断开连接，可重复调用
func (c *Client) Close() error {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("关闭连接时发生异常: %v", r)
		}
	}()

	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	err := c.protocol.Disconnect()
	c.failPending()
	c.setState(StateIdle)
	return err
}

func (c *Client) setState(state string) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// failPending 关闭所有等待中的调用
func (c *Client) failPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// handleDisconnected 连接意外断开
func (c *Client) handleDisconnected(err error) {
	logrus.Warnf("与录音服务的连接断开: %v", err)
	c.failPending()

	c.mu.Lock()
	c.state = StateIdle
	c.sessionID = ""
	onDisconnected := c.onDisconnected
	c.mu.Unlock()

	if onDisconnected != nil {
		onDisconnected(err)
	}
}

// handleJSONMessage 处理JSON消息
func (c *Client) handleJSONMessage(data []byte) {
	if len(data) < 1000 {
		logrus.Debugf("收到消息: %s", string(data))
	}

	switch protocol.MessageType(data) {
	case protocol.TypeHello:
		c.handleHelloMessage(data)
	case protocol.TypeResult:
		c.handleResultMessage(data)
	default:
		logrus.Warnf("收到未知类型的消息: %s", protocol.MessageType(data))
	}
}

// handleHelloMessage 处理服务器hello
func (c *Client) handleHelloMessage(data []byte) {
	var hello protocol.HelloMessage
	if err := json.Unmarshal(data, &hello); err != nil {
		logrus.Errorf("解析Hello消息失败: %v", err)
		return
	}
	if hello.Transport != protocol.TransportWebsocket {
		logrus.Errorf("服务器返回的Hello消息格式不正确: transport=%s", hello.Transport)
		return
	}

	c.mu.Lock()
	ch := c.helloReceived
	c.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- hello:
	default:
	}
}

// handleResultMessage 把结果交给对应的调用
func (c *Client) handleResultMessage(data []byte) {
	var res protocol.MethodResult
	if err := json.Unmarshal(data, &res); err != nil {
		logrus.Errorf("解析结果消息失败: %v", err)
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[res.ID]
	if ok {
		delete(c.pending, res.ID)
	}
	c.mu.Unlock()

	if !ok {
		logrus.Warnf("收到无对应调用的结果: id=%s", res.ID)
		return
	}
	ch <- res
}
