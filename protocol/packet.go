package protocol

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind 为报文的判别标签（线上以 u32 小端编码）
type Kind uint32

const (
	KindConnect Kind = iota
	KindDisconnect
	KindMessage
	KindPlayerUpdate
	KindListRequest
)

func (k Kind) String() string {
	switch k {
	case KindConnect:
		return "connect"
	case KindDisconnect:
		return "disconnect"
	case KindMessage:
		return "message"
	case KindPlayerUpdate:
		return "player"
	case KindListRequest:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// PlayerState 单个玩家的平面坐标，ID 由客户端生成
type PlayerState struct {
	ID uuid.UUID
	X  float32
	Y  float32
}

// Packet 客户端与服务端之间交换的报文，每个数据报恰好一个变体
type Packet interface {
	Kind() Kind
	packet()
}

// Connect 玩家加入
type Connect struct {
	ID uuid.UUID
}

// Disconnect 玩家离开
type Disconnect struct {
	ID uuid.UUID
}

// Message 自由文本，仅用于诊断
type Message struct {
	Text string
}

// PlayerUpdate 玩家位置上报
type PlayerUpdate struct {
	PlayerState
}

// ListRequest 请求当前在线玩家 ID 列表
type ListRequest struct{}

func (Connect) Kind() Kind { return KindConnect }
func (Disconnect) Kind() Kind { return KindDisconnect }
func (Message) Kind() Kind { return KindMessage }
func (PlayerUpdate) Kind() Kind { return KindPlayerUpdate }
func (ListRequest) Kind() Kind { return KindListRequest }

func (Connect) packet() {}
func (Disconnect) packet() {}
func (Message) packet() {}
func (PlayerUpdate) packet() {}
func (ListRequest) packet() {}
