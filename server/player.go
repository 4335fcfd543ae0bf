package server

import (
	"time"

	"statesync/protocol"
)

// player 注册表中的一条记录（服务端权威状态）
type player struct {
	state    protocol.PlayerState
	lastSeen time.Time // 最近一次 Connect / PlayerUpdate 的时间，用于过期剔除
}

// PlayerView 为管理接口与观察者推送使用的 JSON 视图
type PlayerView struct {
	ID string  `json:"id"`
	X  float32 `json:"x"`
	Y  float32 `json:"y"`
}

func viewsOf(states []protocol.PlayerState) []PlayerView {
	views := make([]PlayerView, 0, len(states))
	for _, s := range states {
		views = append(views, PlayerView{ID: s.ID.String(), X: s.X, Y: s.Y})
	}
	return views
}
