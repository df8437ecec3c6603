package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/danmechanic/glucid/internal/protocol/lucid"
)

const recordTimeout = 2 * time.Second

// Exchange 一次交互的完整记录
type Exchange struct {
	ID       uuid.UUID
	Port     string
	Address  byte
	Command  string
	Opcode   byte
	Request  []byte
	Response []byte
	Attempts int
	Err      error
	Duration time.Duration
	At       time.Time
}

// Recorder 交互日志落库（可选）
type Recorder interface {
	RecordExchange(ctx context.Context, ex Exchange) error
}

// Result 将错误归类为指标与日志使用的结果标签
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoResponse):
		return "no_response"
	case errors.Is(err, lucid.ErrAddressMismatch):
		return "address_mismatch"
	case errors.Is(err, lucid.ErrFrameNotFound),
		errors.Is(err, lucid.ErrBadManufacturer),
		errors.Is(err, lucid.ErrBadModel),
		errors.Is(err, lucid.ErrNotAResponse):
		return "bad_frame"
	case errors.Is(err, lucid.ErrInvalidArgument):
		return "bad_argument"
	default:
		return "transport_error"
	}
}
