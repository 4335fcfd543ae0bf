package server

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"

	"statesync/protocol"
)

// Registry 玩家 ID 到状态的权威映射。
// 不加锁：只允许 Server 的主循环协程访问。
type Registry struct {
	players map[uuid.UUID]*player
}

func NewRegistry() *Registry {
	return &Registry{players: make(map[uuid.UUID]*player)}
}

// Connect 登记玩家，初始位置 (0,0)；重复 Connect 只刷新 lastSeen，位置不变。
// 返回是否新建了记录
func (r *Registry) Connect(id uuid.UUID, now time.Time) bool {
	if p, ok := r.players[id]; ok {
		p.lastSeen = now
		return false
	}
	r.players[id] = &player{state: protocol.PlayerState{ID: id}, lastSeen: now}
	return true
}

// Disconnect 移除玩家，不存在时为空操作
func (r *Registry) Disconnect(id uuid.UUID) bool {
	if _, ok := r.players[id]; !ok {
		return false
	}
	delete(r.players, id)
	return true
}

// Update 覆盖玩家位置（后写者胜）。ID 未知且 create 为 false 时拒绝并返回 false
func (r *Registry) Update(s protocol.PlayerState, now time.Time, create bool) bool {
	p, ok := r.players[s.ID]
	if !ok {
		if !create {
			return false
		}
		p = &player{}
		r.players[s.ID] = p
	}
	p.state = s
	p.lastSeen = now
	return true
}

func (r *Registry) Get(id uuid.UUID) (protocol.PlayerState, bool) {
	p, ok := r.players[id]
	if !ok {
		return protocol.PlayerState{}, false
	}
	return p.state, true
}

func (r *Registry) Len() int { return len(r.players) }

// States 返回所有玩家状态，按 ID 字节序排列
func (r *Registry) States() []protocol.PlayerState {
	states := make([]protocol.PlayerState, 0, len(r.players))
	for _, p := range r.players {
		states = append(states, p.state)
	}
	sort.Slice(states, func(i, j int) bool {
		return bytes.Compare(states[i].ID[:], states[j].ID[:]) < 0
	})
	return states
}

// IDs 返回所有玩家 ID，按字节序排列
func (r *Registry) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}

// Expire 剔除 lastSeen 早于 now-ttl 的玩家，返回被剔除的 ID
func (r *Registry) Expire(now time.Time, ttl time.Duration) []uuid.UUID {
	if ttl <= 0 {
		return nil
	}
	var expired []uuid.UUID
	for id, p := range r.players {
		if now.Sub(p.lastSeen) > ttl {
			expired = append(expired, id)
			delete(r.players, id)
		}
	}
	return expired
}
