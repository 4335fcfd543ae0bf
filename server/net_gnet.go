package server

import (
	"context"
	"net"
	"time"

	"github.com/panjf2000/gnet"
	"github.com/pkg/errors"
)

const gnetStopPoll = 100 * time.Millisecond

// gnetTransport 基于 gnet 事件循环（单 loop）。React 把数据报交给主循环，
// 等它处理完（含回包）再返回，保持逐个串行
type gnetTransport struct {
	*gnet.EventServer

	protoAddr string
	addr      net.Addr
	bound     chan struct{}

	ctx   context.Context
	inbox chan<- *Datagram
}

func listenGnet(addr string) (*gnetTransport, error) {
	ua, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve udp %s", addr)
	}
	return &gnetTransport{
		EventServer: &gnet.EventServer{},
		protoAddr:   "udp://" + ua.String(),
		addr:        ua,
		bound:       make(chan struct{}),
	}, nil
}

// Addr 在 Bound 之后返回 gnet 实际绑定的地址（端口 0 已被替换）
func (t *gnetTransport) Addr() net.Addr { return t.addr }

func (t *gnetTransport) Bound() <-chan struct{} { return t.bound }

func (t *gnetTransport) Serve(ctx context.Context, inbox chan<- *Datagram) error {
	t.ctx, t.inbox = ctx, inbox
	err := gnet.Serve(t, t.protoAddr,
		gnet.WithMulticore(false),
		gnet.WithTicker(true),
		gnet.WithLogger(Log),
	)
	if err != nil && ctx.Err() == nil {
		return errors.Wrapf(err, "gnet serve %s", t.protoAddr)
	}
	return nil
}

func (t *gnetTransport) OnInitComplete(srv gnet.Server) (action gnet.Action) {
	if srv.Addr != nil {
		t.addr = srv.Addr
	}
	close(t.bound)
	Log.Infof("gnet udp loop listening on %s", t.addr)
	return
}

// Tick 轮询 ctx，结束时关闭 gnet
func (t *gnetTransport) Tick() (delay time.Duration, action gnet.Action) {
	delay = gnetStopPoll
	if t.ctx.Err() != nil {
		action = gnet.Shutdown
	}
	return
}

func (t *gnetTransport) React(frame []byte, c gnet.Conn) (out []byte, action gnet.Action) {
	from := c.RemoteAddr()
	handled := make(chan struct{})
	d := &Datagram{
		// gnet 会复用 frame 的底层缓冲
		Payload: append([]byte(nil), frame...),
		From:    from,
		Respond: func(b []byte) error {
			defer close(handled)
			if b == nil {
				return nil
			}
			return errors.Wrapf(c.SendTo(b), "gnet send to %s", from)
		},
	}
	select {
	case t.inbox <- d:
	case <-t.ctx.Done():
		return nil, gnet.Shutdown
	}
	select {
	case <-handled:
	case <-t.ctx.Done():
		return nil, gnet.Shutdown
	}
	return nil, gnet.None
}
