package protocol

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebsocketProtocol 实现了Protocol接口，使用WebSocket作为通信方式
type WebsocketProtocol struct {
	conn             *websocket.Conn
	url              string
	mu               sync.Mutex
	writeMu          sync.Mutex
	connected        bool
	onJSONMessage    func(data []byte)
	onDisconnected   func(err error)
	headers          http.Header
	readTimeout      time.Duration // 0 表示不设置读取超时
	writeTimeout     time.Duration
	handshakeTimeout time.Duration
	stopChan         chan struct{}
}

// NewWebsocketProtocol 创建一个新的WebSocket协议实例
func NewWebsocketProtocol() *WebsocketProtocol {
	return &WebsocketProtocol{
		headers:          make(http.Header),
		writeTimeout:     10 * time.Second,
		handshakeTimeout: 10 * time.Second,
		stopChan:         make(chan struct{}),
	}
}

// SetHeader 设置WebSocket连接的请求头
func (wp *WebsocketProtocol) SetHeader(key, value string) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.headers.Set(key, value)
}

// SetReadTimeout 设置读取超时时间
func (wp *WebsocketProtocol) SetReadTimeout(timeout time.Duration) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.readTimeout = timeout
}

// SetHandshakeTimeout 设置握手超时时间
func (wp *WebsocketProtocol) SetHandshakeTimeout(timeout time.Duration) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.handshakeTimeout = timeout
}

// Connect 实现Protocol接口，连接到WebSocket服务器
func (wp *WebsocketProtocol) Connect(rawURL string) error {
	if err := validateURL(rawURL); err != nil {
		logrus.Errorf("解析WebSocket URL失败: %v", err)
		return err
	}

	wp.mu.Lock()
	if wp.connected {
		wp.mu.Unlock()
		return errors.New("已经连接到服务器")
	}
	wp.url = rawURL
	header := wp.headers.Clone()
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: wp.handshakeTimeout,
	}
	wp.mu.Unlock()

	logrus.Debugf("开始WebSocket连接: %s", rawURL)
	startTime := time.Now()
	conn, resp, err := dialer.Dial(rawURL, header)
	elapsed := time.Since(startTime)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			resp.Body.Close()
			logrus.Errorf("连接WebSocket服务器失败: %v, HTTP状态码: %d, 响应体: %s", err, resp.StatusCode, string(body))
			return fmt.Errorf("连接失败(HTTP %d): %w", resp.StatusCode, err)
		}
		logrus.Errorf("连接WebSocket服务器失败: %v, 用时: %v", err, elapsed)
		return err
	}
	logrus.Debugf("WebSocket连接成功, 用时: %v", elapsed)

	wp.mu.Lock()
	wp.conn = conn
	wp.connected = true
	wp.stopChan = make(chan struct{})
	wp.mu.Unlock()

	go wp.readPump(conn)
	return nil
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("不支持的WebSocket URL格式: %s", rawURL)
	}
	if u.Host == "" {
		return fmt.Errorf("缺少主机地址: %s", rawURL)
	}
	return nil
}

// Disconnect 实现Protocol接口，断开与WebSocket服务器的连接
func (wp *WebsocketProtocol) Disconnect() error {
	wp.mu.Lock()
	if !wp.connected || wp.conn == nil {
		wp.mu.Unlock()
		return nil
	}
	wp.connected = false
	conn := wp.conn
	wp.conn = nil
	select {
	case <-wp.stopChan:
	default:
		close(wp.stopChan)
	}
	wp.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("关闭WebSocket连接时发生异常: %v", r)
		}
	}()

	wp.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	wp.writeMu.Unlock()
	return conn.Close()
}

// SendJSON 实现Protocol接口，发送JSON消息
func (wp *WebsocketProtocol) SendJSON(data interface{}) error {
	wp.mu.Lock()
	conn := wp.conn
	connected := wp.connected
	timeout := wp.writeTimeout
	wp.mu.Unlock()

	if !connected || conn == nil {
		return errors.New("未连接到服务器")
	}

	wp.writeMu.Lock()
	defer wp.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(timeout))
	return conn.WriteJSON(data)
}

// SetOnJSONMessage 实现Protocol接口，设置接收JSON消息的回调
func (wp *WebsocketProtocol) SetOnJSONMessage(callback func(data []byte)) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.onJSONMessage = callback
}

// SetOnDisconnected 实现Protocol接口，设置连接断开的回调
func (wp *WebsocketProtocol) SetOnDisconnected(callback func(err error)) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.onDisconnected = callback
}

// IsConnected 实现Protocol接口，返回当前连接状态
func (wp *WebsocketProtocol) IsConnected() bool {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.connected
}

// readPump 处理从WebSocket接收的消息
func (wp *WebsocketProtocol) readPump(conn *websocket.Conn) {
	var readErr error
	defer func() {
		wp.handleDisconnect(conn, readErr)
	}()

	for {
		wp.mu.Lock()
		timeout := wp.readTimeout
		stop := wp.stopChan
		wp.mu.Unlock()

		select {
		case <-stop:
			return
		default:
		}

		if timeout > 0 {
			conn.SetReadDeadline(time.Now().Add(timeout))
		}
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logrus.Debugf("读取WebSocket消息失败: %v", err)
			}
			readErr = err
			return
		}

		if messageType != websocket.TextMessage {
			logrus.Warnf("忽略非文本消息, 类型: %d", messageType)
			continue
		}
		wp.mu.Lock()
		onJSON := wp.onJSONMessage
		wp.mu.Unlock()
		if onJSON != nil {
			onJSON(message)
		}
	}
}

// handleDisconnect 处理连接断开，主动断开时不会触发回调
func (wp *WebsocketProtocol) handleDisconnect(conn *websocket.Conn, err error) {
	wp.mu.Lock()
	if !wp.connected || wp.conn != conn {
		wp.mu.Unlock()
		return
	}
	wp.connected = false
	wp.conn = nil
	onDisconnected := wp.onDisconnected
	wp.mu.Unlock()

	conn.Close()
	if err == nil {
		err = errors.New("WebSocket读取循环结束")
	}
	if onDisconnected != nil {
		onDisconnected(err)
	}
}
