package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultPongWait 观察者在该时间内没有任何回应（含 pong）即视为断开；
// 服务端按其 9/10 的周期发送 ping
const DefaultPongWait = 60 * time.Second

// ClientConn 观察者连接的轻量包装；Enqueue 与 Close 只在主循环中调用
type ClientConn struct {
	ws       *websocket.Conn
	send     chan []byte
	closed   bool
	pongWait time.Duration
}

func NewClientConn(ws *websocket.Conn, pongWait time.Duration) *ClientConn {
	return &ClientConn{
		ws:       ws,
		send:     make(chan []byte, 64),
		pongWait: pongWait,
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Enqueue(b []byte) {
	if c.closed {
		return
	}
	select {
	case c.send <- b:
	default:
		// 观察者太慢：丢弃本次快照，避免阻塞主循环
	}
}

// Close 关闭发送队列，写协程随之关闭底层连接
func (c *ClientConn) Close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期 ping 以维持读超时
func (c *ClientConn) writePump(send <-chan []byte) {
	ping := time.NewTicker(c.pongWait * 9 / 10)
	defer func() {
		ping.Stop()
		c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-send:
			if !ok {
				_ = c.ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopped"),
					time.Now().Add(time.Second))
				return
			}
			c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

// readPump 观察者不发送业务数据，只用于感知断开并处理 pong
func (c *ClientConn) readPump(s *Server) {
	defer c.ws.Close()
	// 读泵退出时，请求主循环移除该观察者
	defer func() {
		_ = s.exec(context.Background(), func() {
			delete(s.watchers, c)
			c.Close()
		})
	}()
	c.ws.SetReadLimit(1 << 10)
	c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(c.pongWait)); return nil })

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 调试用的只读接口：允许所有来源
		return true
	},
}

// HandleWS 观察者接入：连接后立即收到一次完整快照，之后每次注册表变化推送一次
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("upgrade error: %v", err)
		return
	}

	client := NewClientConn(ws, s.pongWait)
	err = s.exec(r.Context(), func() {
		s.watchers[client] = struct{}{}
		client.Enqueue(s.stateJSON())
	})
	if err != nil {
		_ = ws.Close()
		return
	}
	Log.Infof("observer %s attached", ws.RemoteAddr())

	go client.writePump(client.send)
	go client.readPump(s)
}
