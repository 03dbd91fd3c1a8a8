package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/justa-cai/glite-go/internal/audio"
	"github.com/justa-cai/glite-go/internal/protocol"
)

// ChannelPath 宿主连接的WebSocket路径
const ChannelPath = "/channel"

const (
	helloTimeout = 10 * time.Second
	writeTimeout = 10 * time.Second
)

// Server 宿主通道服务
type Server struct {
	bridge  *Bridge
	profile audio.Profile

	upgrader websocket.Upgrader
	httpSrv  *http.Server

	mu    sync.Mutex
	conns map[string]*hostConn
}

// NewServer 创建通道服务，profile 在hello中告知宿主
func NewServer(b *Bridge, profile audio.Profile) *Server {
	s := &Server{
		bridge:  b,
		profile: profile,
		conns:   make(map[string]*hostConn),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,

		// 只监听本地地址，不检查Origin
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	return s
}

// Handler 返回挂载了通道路径的 http.Handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(ChannelPath, s.serveChannel)
	return mux
}

// Serve 在 listener 上提供服务，直到 Shutdown
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	s.httpSrv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	srv := s.httpSrv
	s.mu.Unlock()

	logrus.Infof("宿主通道服务已启动: ws://%s%s", l.Addr(), ChannelPath)
	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe 监听 addr 并提供服务
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Shutdown 停止接受新连接并断开所有宿主
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpSrv
	conns := make([]*hostConn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// ConnCount 当前连接的宿主数量
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) serveChannel(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Errorf("升级WebSocket连接失败: %v", err)
		return
	}

	c := &hostConn{id: uuid.New().String(), ws: ws}
	log := logrus.WithFields(logrus.Fields{"conn": c.id, "remote": r.RemoteAddr})
	if id := r.Header.Get("Client-Id"); id != "" {
		log = log.WithField("client", id)
	}

	if err := s.handshake(c); err != nil {
		log.Warnf("握手失败: %v", err)
		c.close()
		return
	}

	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, c.id)
		s.mu.Unlock()
		c.close()
		log.Info("宿主已断开")
	}()

	log.Info("宿主已连接")
	s.bridge.OnAttach()

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debugf("读取消息失败: %v", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			log.Warnf("忽略非文本消息, 类型: %d", messageType)
			continue
		}
		s.handleMessage(r.Context(), c, log, data)
	}
}

// handshake 等待宿主的hello，回复会话ID和录音参数
func (s *Server) handshake(c *hostConn) error {
	c.ws.SetReadDeadline(time.Now().Add(helloTimeout))
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return err
	}
	c.ws.SetReadDeadline(time.Time{})

	var hello protocol.HelloMessage
	if err := json.Unmarshal(data, &hello); err != nil {
		return err
	}
	if hello.Type != protocol.TypeHello {
		return errors.New("第一条消息不是hello")
	}
	if hello.Version != protocol.Version {
		logrus.Warnf("宿主协议版本不一致: %d", hello.Version)
	}

	return c.send(protocol.HelloMessage{
		Type:      protocol.TypeHello,
		Version:   protocol.Version,
		Transport: protocol.TransportWebsocket,
		SessionID: c.id,
		AudioParams: &protocol.AudioParams{
			Container:  s.profile.Container,
			Format:     s.profile.Codec,
			BitRate:    s.profile.BitRate,
			SampleRate: s.profile.SampleRate,
			Extension:  s.profile.Extension,
		},
	})
}

func (s *Server) handleMessage(ctx context.Context, c *hostConn, log *logrus.Entry, data []byte) {
	switch protocol.MessageType(data) {
	case protocol.TypeCall:
	case protocol.TypeHello:
		log.Debug("忽略重复的hello")
		return
	default:
		log.Warnf("收到未知类型的消息: %s", protocol.MessageType(data))
		return
	}

	var call protocol.MethodCall
	if err := json.Unmarshal(data, &call); err != nil {
		log.Errorf("解析调用消息失败: %v", err)
		return
	}

	log.WithFields(logrus.Fields{"id": call.ID, "channel": call.Channel, "method": call.Method}).Info("收到调用")
	res := s.bridge.Dispatch(ctx, call)
	if err := c.send(res); err != nil {
		log.Errorf("发送结果失败: %v", err)
	}
}

// hostConn 一个宿主连接，写操作串行执行
type hostConn struct {
	id string
	ws *websocket.Conn

	writeMu sync.Mutex
	once    sync.Once
}

func (c *hostConn) send(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(v)
}

func (c *hostConn) close() {
	c.once.Do(func() {
		c.writeMu.Lock()
		c.ws.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
		c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
		c.writeMu.Unlock()
		c.ws.Close()
	})
}
