package protocol

import (
	"encoding/binary"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// 线上格式与已部署客户端的序列化器保持一致：
//   tag   u32 LE
//   id    u64 LE 长度(恒为 16) + 16 字节
//   text  u64 LE 长度 + UTF-8 字节
//   state id + f32 LE x + f32 LE y
//   seq   u64 LE 元素个数 + 元素
const (
	idSize    = 8 + 16
	stateSize = idSize + 4 + 4
)

// Encode 编码单个报文，不会失败。指针变体按其指向的值编码；
// Message 中的非法 UTF-8 字节被替换为 U+FFFD，保证 Decode 能读回
func Encode(p Packet) []byte {
	p = deref(p)
	b := binary.LittleEndian.AppendUint32(nil, uint32(p.Kind()))
	switch v := p.(type) {
	case Connect:
		b = appendID(b, v.ID)
	case Disconnect:
		b = appendID(b, v.ID)
	case Message:
		text := v.Text
		if !utf8.ValidString(text) {
			text = strings.ToValidUTF8(text, string(utf8.RuneError))
		}
		b = binary.LittleEndian.AppendUint64(b, uint64(len(text)))
		b = append(b, text...)
	case PlayerUpdate:
		b = appendState(b, v.PlayerState)
	case ListRequest:
	}
	return b
}

// deref 把 *Connect 等指针变体还原为值；nil 指针按零值处理
func deref(p Packet) Packet {
	switch v := p.(type) {
	case *Connect:
		if v == nil {
			return Connect{}
		}
		return *v
	case *Disconnect:
		if v == nil {
			return Disconnect{}
		}
		return *v
	case *Message:
		if v == nil {
			return Message{}
		}
		return *v
	case *PlayerUpdate:
		if v == nil {
			return PlayerUpdate{}
		}
		return *v
	case *ListRequest:
		return ListRequest{}
	}
	return p
}

// EncodePlayers 编码玩家状态列表（PlayerUpdate 的回包）
func EncodePlayers(states []PlayerState) []byte {
	b := make([]byte, 0, 8+len(states)*stateSize)
	b = binary.LittleEndian.AppendUint64(b, uint64(len(states)))
	for _, s := range states {
		b = appendState(b, s)
	}
	return b
}

// EncodeIDs 编码玩家 ID 列表（ListRequest 的回包）
func EncodeIDs(ids []uuid.UUID) []byte {
	b := make([]byte, 0, 8+len(ids)*idSize)
	b = binary.LittleEndian.AppendUint64(b, uint64(len(ids)))
	for _, id := range ids {
		b = appendID(b, id)
	}
	return b
}

// Decode 解码单个报文。标签未知、截断或有多余字节时返回 *DecodeError
func Decode(data []byte) (Packet, error) {
	r := reader{buf: data}
	tag, err := r.u32()
	if err != nil {
		return nil, err
	}
	var p Packet
	switch Kind(tag) {
	case KindConnect:
		id, err := r.id()
		if err != nil {
			return nil, err
		}
		p = Connect{ID: id}
	case KindDisconnect:
		id, err := r.id()
		if err != nil {
			return nil, err
		}
		p = Disconnect{ID: id}
	case KindMessage:
		text, err := r.text()
		if err != nil {
			return nil, err
		}
		p = Message{Text: text}
	case KindPlayerUpdate:
		s, err := r.state()
		if err != nil {
			return nil, err
		}
		p = PlayerUpdate{PlayerState: s}
	case KindListRequest:
		p = ListRequest{}
	default:
		return nil, &DecodeError{Offset: 0, Err: ErrUnknownTag}
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return p, nil
}

// DecodePlayers 解码 EncodePlayers 的输出（客户端侧使用）
func DecodePlayers(data []byte) ([]PlayerState, error) {
	r := reader{buf: data}
	n, err := r.length(stateSize)
	if err != nil {
		return nil, err
	}
	states := make([]PlayerState, 0, n)
	for i := 0; i < n; i++ {
		s, err := r.state()
		if err != nil {
			return nil, err
		}
		states = append(states, s)
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return states, nil
}

// DecodeIDs 解码 EncodeIDs 的输出（客户端侧使用）
func DecodeIDs(data []byte) ([]uuid.UUID, error) {
	r := reader{buf: data}
	n, err := r.length(idSize)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		id, err := r.id()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return ids, nil
}

func appendID(b []byte, id uuid.UUID) []byte {
	b = binary.LittleEndian.AppendUint64(b, uint64(len(id)))
	return append(b, id[:]...)
}

func appendState(b []byte, s PlayerState) []byte {
	b = appendID(b, s.ID)
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(s.X))
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(s.Y))
}

// reader 顺序读取，越界一律返回 ErrTruncated，不会 panic
type reader struct {
	buf []byte
	off int
}

func (r *reader) fail(err error) error {
	return &DecodeError{Offset: r.off, Err: err}
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, r.fail(ErrTruncated)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) f32() (float32, error) {
	v, err := r.u32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// length 读取长度前缀，并确认剩余字节足够容纳 elem 大小的 n 个元素
func (r *reader) length(elem int) (int, error) {
	start := r.off
	n, err := r.u64()
	if err != nil {
		return 0, err
	}
	if n > uint64(r.remaining()/elem) {
		r.off = start
		return 0, r.fail(ErrTruncated)
	}
	return int(n), nil
}

func (r *reader) id() (uuid.UUID, error) {
	var id uuid.UUID
	start := r.off
	n, err := r.u64()
	if err != nil {
		return id, err
	}
	if n != uint64(len(id)) {
		r.off = start
		return id, r.fail(ErrBadIDLength)
	}
	b, err := r.take(len(id))
	if err != nil {
		return id, err
	}
	copy(id[:], b)
	return id, nil
}

func (r *reader) text() (string, error) {
	n, err := r.length(1)
	if err != nil {
		return "", err
	}
	start := r.off
	b, err := r.take(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		r.off = start
		return "", r.fail(ErrInvalidText)
	}
	return string(b), nil
}

func (r *reader) state() (PlayerState, error) {
	var s PlayerState
	var err error
	if s.ID, err = r.id(); err != nil {
		return s, err
	}
	if s.X, err = r.f32(); err != nil {
		return s, err
	}
	if s.Y, err = r.f32(); err != nil {
		return s, err
	}
	return s, nil
}

func (r *reader) done() error {
	if r.remaining() != 0 {
		return r.fail(ErrTrailingBytes)
	}
	return nil
}
