package server

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/pkg/errors"

	"statesync/protocol"
)

// ErrStopped 主循环已退出
var ErrStopped = errors.New("server stopped")

// Server 权威状态服务：注册表只由 Run 所在的协程访问，
// 传输层、管理接口、观察者都通过通道把请求交给它串行执行
type Server struct {
	cfg     Config
	reg     *Registry
	disp    *Dispatcher
	metrics *Metrics

	inbox chan *Datagram
	ctl   chan func()
	ready chan struct{}
	done  chan struct{}

	transport Transport
	playerTTL time.Duration
	sweeper   *time.Ticker
	watchers  map[*ClientConn]struct{}
	pongWait  time.Duration
}

// New 创建服务，但不绑定端口；端口在 Run 中绑定
func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reg := NewRegistry()
	metrics := &Metrics{}
	disp := NewDispatcher(reg, metrics)
	disp.AutoRegister = cfg.AutoRegister
	return &Server{
		cfg:       cfg,
		reg:       reg,
		disp:      disp,
		metrics:   metrics,
		inbox:     make(chan *Datagram),
		ctl:       make(chan func()),
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
		playerTTL: cfg.PlayerTTL,
		watchers:  make(map[*ClientConn]struct{}),
		pongWait:  DefaultPongWait,
	}, nil
}

func (s *Server) Metrics() *Metrics { return s.metrics }

// Ready 在端口绑定成功后关闭
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr 返回实际监听地址，仅在 Ready 之后有效
func (s *Server) Addr() net.Addr {
	select {
	case <-s.ready:
		return s.transport.Addr()
	default:
		return nil
	}
}

func (s *Server) listen() (Transport, error) {
	switch s.cfg.Transport {
	case TransportGnet:
		return listenGnet(s.cfg.Addr)
	default:
		return listenUDP(s.cfg.Addr, s.cfg.BufferSize)
	}
}

// Run 绑定端口并运行主循环，直到 ctx 结束（返回 nil）或传输层出错。
// 每个数据报都在这里完整地解码、分发、回包之后才处理下一个
func (s *Server) Run(ctx context.Context) error {
	defer close(s.done)

	t, err := s.listen()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	errc := make(chan error, 1)
	go func() { errc <- t.Serve(ctx, s.inbox) }()
	defer func() {
		cancel()
		<-errc
		s.closeWatchers()
	}()

	// 等传输层真正绑定后才对外宣告就绪
	select {
	case <-t.Bound():
	case err := <-errc:
		errc <- err
		if err == nil {
			err = errors.New("transport stopped before binding")
		}
		return err
	case <-ctx.Done():
		return nil
	}
	s.transport = t
	close(s.ready)
	Log.Infof("listening on %s (transport=%s, ttl=%v, autoRegister=%t)",
		t.Addr(), s.cfg.Transport, s.playerTTL, s.disp.AutoRegister)

	s.sweeper = time.NewTicker(s.sweepInterval())
	defer s.sweeper.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			errc <- err
			if err == nil {
				err = errors.New("transport stopped unexpectedly")
			}
			return err
		case d := <-s.inbox:
			s.handle(d)
		case fn := <-s.ctl:
			fn()
		case now := <-s.sweeper.C:
			s.sweep(now)
		}
	}
}

// handle 处理单个数据报；回包失败只影响这一次交互
func (s *Server) handle(d *Datagram) {
	start := time.Now()
	reply, changed := s.disp.Handle(d.Payload, d.From)
	s.metrics.AddDispatch(time.Since(start).Nanoseconds())

	if err := d.Respond(reply); err != nil {
		s.metrics.IncSendFailure()
		Log.Warnf("reply to %s failed: %v", d.From, err)
	} else if reply != nil {
		s.metrics.IncReplySent()
	}
	if changed {
		s.broadcast()
	}
}

// exec 把 fn 交给主循环执行并等待完成
func (s *Server) exec(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case s.ctl <- func() { fn(); close(done) }:
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// Players 通过主循环读取当前注册表快照
func (s *Server) Players(ctx context.Context) ([]protocol.PlayerState, error) {
	var states []protocol.PlayerState
	err := s.exec(ctx, func() { states = s.reg.States() })
	return states, err
}

// stateMessage 观察者收到的 JSON 消息
type stateMessage struct {
	Type    string       `json:"type"`
	Players []PlayerView `json:"players"`
}

func (s *Server) stateJSON() []byte {
	b, _ := json.Marshal(stateMessage{Type: "state", Players: viewsOf(s.reg.States())})
	return b
}

// broadcast 将当前注册表推送给所有观察者（满则丢弃，不阻塞主循环）
func (s *Server) broadcast() {
	if len(s.watchers) == 0 {
		return
	}
	b := s.stateJSON()
	for c := range s.watchers {
		c.Enqueue(b)
	}
}

func (s *Server) closeWatchers() {
	for c := range s.watchers {
		c.Close()
		delete(s.watchers, c)
	}
}
