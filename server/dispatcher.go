package server

import (
	"net"
	"time"

	"statesync/protocol"
)

// Dispatcher 将解码后的报文应用到注册表，必要时生成回包。
// 与 Registry 一样只在主循环协程中使用。
type Dispatcher struct {
	reg     *Registry
	metrics *Metrics
	now     func() time.Time

	// AutoRegister 为 true 时，未 Connect 的 ID 发来 PlayerUpdate 会被自动登记；
	// 为 false 时该更新被拒绝且不回包
	AutoRegister bool
}

func NewDispatcher(reg *Registry, metrics *Metrics) *Dispatcher {
	return &Dispatcher{
		reg:          reg,
		metrics:      metrics,
		now:          time.Now,
		AutoRegister: true,
	}
}

// Handle 解码并分发一个数据报。解码失败时丢弃，不影响注册表，也不回包。
// changed 表示注册表是否发生了变化
func (d *Dispatcher) Handle(payload []byte, from net.Addr) (reply []byte, changed bool) {
	d.metrics.IncReceived()
	pkt, err := protocol.Decode(payload)
	if err != nil {
		d.metrics.IncDecodeError()
		Log.Debugf("drop datagram from %s (%d bytes): %v", from, len(payload), err)
		return nil, false
	}
	return d.Dispatch(pkt, from)
}

// Dispatch 对所有分支都是全函数，不会失败
func (d *Dispatcher) Dispatch(pkt protocol.Packet, from net.Addr) (reply []byte, changed bool) {
	defer func() { d.metrics.SetPlayers(d.reg.Len()) }()

	switch p := pkt.(type) {
	case protocol.Connect:
		changed = d.reg.Connect(p.ID, d.now())
		Log.Infof("%s connected with id %s", from, p.ID)
		return nil, changed

	case protocol.Disconnect:
		changed = d.reg.Disconnect(p.ID)
		Log.Infof("%s disconnected (id %s, present=%t)", from, p.ID, changed)
		return nil, changed

	case protocol.Message:
		Log.Infof("message from %s: %q", from, p.Text)
		return nil, false

	case protocol.PlayerUpdate:
		if !d.reg.Update(p.PlayerState, d.now(), d.AutoRegister) {
			d.metrics.IncRejected()
			Log.Debugf("reject update from %s: unknown id %s", from, p.ID)
			return nil, false
		}
		return protocol.EncodePlayers(d.reg.States()), true

	case protocol.ListRequest:
		return protocol.EncodeIDs(d.reg.IDs()), false

	default:
		Log.Warnf("unsupported packet %T from %s", pkt, from)
		return nil, false
	}
}
