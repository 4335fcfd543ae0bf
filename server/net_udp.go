package server

import (
	"context"
	"net"

	"github.com/pkg/errors"
)

// udpTransport 基于标准库 PacketConn：单个读协程收包，回包由主循环写出
type udpTransport struct {
	conn    net.PacketConn
	bufSize int
}

func listenUDP(addr string, bufSize int) (*udpTransport, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen udp %s", addr)
	}
	return &udpTransport{conn: conn, bufSize: bufSize}, nil
}

func (t *udpTransport) Addr() net.Addr { return t.conn.LocalAddr() }

var boundNow = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// Bound 端口在 listenUDP 中已绑定
func (t *udpTransport) Bound() <-chan struct{} { return boundNow }

func (t *udpTransport) Serve(ctx context.Context, inbox chan<- *Datagram) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = t.conn.Close()
	}()

	buf := make([]byte, t.bufSize)
	for {
		n, from, err := t.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "udp receive")
		}
		d := &Datagram{
			Payload: append([]byte(nil), buf[:n]...),
			From:    from,
			Respond: t.replyTo(from),
		}
		select {
		case inbox <- d:
		case <-ctx.Done():
			return nil
		}
	}
}

func (t *udpTransport) replyTo(to net.Addr) func([]byte) error {
	return func(reply []byte) error {
		if reply == nil {
			return nil
		}
		_, err := t.conn.WriteTo(reply, to)
		return errors.Wrapf(err, "udp send to %s", to)
	}
}
