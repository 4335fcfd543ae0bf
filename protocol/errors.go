package protocol

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrTruncated     = errors.New("truncated datagram")
	ErrUnknownTag    = errors.New("unknown packet tag")
	ErrTrailingBytes = errors.New("trailing bytes after packet")
	ErrBadIDLength   = errors.New("identifier is not 16 bytes")
	ErrInvalidText   = errors.New("text is not valid utf-8")
)

// DecodeError 解码失败；Err 为上面的哨兵错误之一
type DecodeError struct {
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("protocol: decode at offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
