package server

import "time"

const (
	// DefaultSweepInterval TTL 关闭时的扫描周期
	DefaultSweepInterval = time.Second
	// MinSweepInterval 自动推导的扫描周期下限
	MinSweepInterval = 100 * time.Millisecond
)

// sweepInterval 显式配置优先；否则取 TTL/2（不低于 MinSweepInterval），TTL 关闭时取默认值
func (s *Server) sweepInterval() time.Duration {
	if s.cfg.SweepInterval > 0 {
		return s.cfg.SweepInterval
	}
	if s.playerTTL <= 0 {
		return DefaultSweepInterval
	}
	if d := s.playerTTL / 2; d > MinSweepInterval {
		return d
	}
	return MinSweepInterval
}

// resetSweep 在 TTL 热更新后调整扫描周期，只在主循环中调用
func (s *Server) resetSweep() {
	if s.sweeper != nil {
		s.sweeper.Reset(s.sweepInterval())
	}
}

// sweep 在主循环中执行：剔除超过 TTL 未上报的玩家
func (s *Server) sweep(now time.Time) {
	if s.playerTTL <= 0 {
		return
	}
	expired := s.reg.Expire(now, s.playerTTL)
	if len(expired) == 0 {
		return
	}
	for _, id := range expired {
		Log.Infof("player %s expired after %v without updates", id, s.playerTTL)
	}
	s.metrics.AddExpired(len(expired))
	s.metrics.SetPlayers(s.reg.Len())
	s.broadcast()
}
