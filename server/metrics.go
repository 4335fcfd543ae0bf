package server

import (
	"sync/atomic"
)

// Metrics 记录运行期的关键指标；由主循环写入，HTTP 协程读取
type Metrics struct {
	PacketsReceived int64 // 收到的数据报数
	DecodeErrors    int64 // 解码失败被丢弃的数据报数
	Rejected        int64 // 严格模式下因未知 ID 被拒绝的更新数
	RepliesSent     int64 // 成功发出的回包数
	SendFailures    int64 // 回包发送失败数
	Expired         int64 // 因超时被剔除的玩家数
	Players         int64 // 当前在线玩家数
	TotalDispatchNs int64 // 分发累计耗时（纳秒）
}

func (m *Metrics) IncReceived() { atomic.AddInt64(&m.PacketsReceived, 1) }
func (m *Metrics) IncDecodeError() { atomic.AddInt64(&m.DecodeErrors, 1) }
func (m *Metrics) IncRejected() { atomic.AddInt64(&m.Rejected, 1) }
func (m *Metrics) IncReplySent() { atomic.AddInt64(&m.RepliesSent, 1) }
func (m *Metrics) IncSendFailure() { atomic.AddInt64(&m.SendFailures, 1) }
func (m *Metrics) AddExpired(n int) { atomic.AddInt64(&m.Expired, int64(n)) }
func (m *Metrics) SetPlayers(n int) { atomic.StoreInt64(&m.Players, int64(n)) }
func (m *Metrics) AddDispatch(ns int64) { atomic.AddInt64(&m.TotalDispatchNs, ns) }

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	received := atomic.LoadInt64(&m.PacketsReceived)
	total := atomic.LoadInt64(&m.TotalDispatchNs)
	var avgMs float64
	if received > 0 {
		avgMs = float64(total) / float64(received) / 1e6
	}
	return map[string]any{
		"packets_received": received,
		"decode_errors":    atomic.LoadInt64(&m.DecodeErrors),
		"rejected":         atomic.LoadInt64(&m.Rejected),
		"replies_sent":     atomic.LoadInt64(&m.RepliesSent),
		"send_failures":    atomic.LoadInt64(&m.SendFailures),
		"expired":          atomic.LoadInt64(&m.Expired),
		"players":          atomic.LoadInt64(&m.Players),
		"avg_dispatch_ms":  avgMs,
	}
}
