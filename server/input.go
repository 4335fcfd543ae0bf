package server

import (
	"context"
	"net"
)

// Datagram 传输层收到的一个数据报，投递给主循环处理
type Datagram struct {
	Payload []byte
	From    net.Addr

	// Respond 由主循环对每个数据报恰好调用一次；reply 为 nil 表示无需回包
	Respond func(reply []byte) error
}

// Transport 数据报来源。Serve 阻塞直到 ctx 结束（返回 nil）或接收失败；
// Bound 在端口绑定完成后关闭，此后 Addr 返回实际监听地址
type Transport interface {
	Addr() net.Addr
	Bound() <-chan struct{}
	Serve(ctx context.Context, inbox chan<- *Datagram) error
}
