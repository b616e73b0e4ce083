// Package net is the optional TCP gateway in front of a sim.World. It is
// ambient, host-facing surface, separate from the deterministic
// simulation core, giving hosts a real front door instead of a bare
// Go API.
package net

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/google/uuid"

	"github.com/lobsim/femto/internal/common"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short")
)

type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
	LogBook
)

type ReportMessageType uint8

const (
	ExecutionReport ReportMessageType = iota
	AckReport
	RejectReport
	ErrorReport
)

type Message interface {
	GetType() MessageType
}

// Message format constants. The gateway routes by AssetIdx and tracks
// orders by the core's uint64 id rather than by ticker string and uuid,
// keeping the fixed header compact despite carrying more fields
// (OrderType, TIF).
const (
	BaseMessageHeaderLen = 2
	// AssetIdx(2) + OrderType(1) + TIF(1) + Side(1) + Price(8) + Qty(8) + UsernameLen(1)
	NewOrderMessageHeaderLen = 2 + 1 + 1 + 1 + 8 + 8 + 1
	// AssetIdx(2) + Side(1) + OrderID(8) + Price(8)
	CancelOrderMessageHeaderLen = 2 + 1 + 8 + 8
)

type BaseMessage struct {
	TypeOf MessageType
}

func (m BaseMessage) GetType() MessageType { return m.TypeOf }

func ParseMessage(msg []byte) (Message, error) {
	if len(msg) < BaseMessageHeaderLen {
		return nil, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	body := msg[2:]
	switch typeOf {
	case NewOrder:
		return parseNewOrder(body)
	case CancelOrder:
		return parseCancelOrder(body)
	case LogBook:
		return BaseMessage{TypeOf: LogBook}, nil
	default:
		return nil, ErrInvalidMessageType
	}
}

type NewOrderMessage struct {
	BaseMessage
	AssetIdx    int
	OrderType   common.OrderType
	TIF         common.TimeInForce
	Side        common.Side
	LimitPrice  float64
	Quantity    float64
	UsernameLen uint8
	Username    string
}

// Order builds the core Order this message describes, assigning a fresh
// client-facing uuid (the core's own id is assigned later by World.NewOrder).
func (m *NewOrderMessage) Order() *common.Order {
	return &common.Order{
		ClientOrderID: uuid.New().String(),
		Type:          m.OrderType,
		TIF:           m.TIF,
		Side:          m.Side,
		Price:         m.LimitPrice,
		Qty:           m.Quantity,
		Owner:         m.Username,
	}
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	if len(msg) < NewOrderMessageHeaderLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	m := NewOrderMessage{BaseMessage: BaseMessage{TypeOf: NewOrder}}
	m.AssetIdx = int(binary.BigEndian.Uint16(msg[0:2]))
	m.OrderType = common.OrderType(msg[2])
	m.TIF = common.TimeInForce(msg[3])
	m.Side = common.Side(msg[4])
	m.LimitPrice = math.Float64frombits(binary.BigEndian.Uint64(msg[5:13]))
	m.Quantity = math.Float64frombits(binary.BigEndian.Uint64(msg[13:21]))
	m.UsernameLen = msg[21]

	expected := NewOrderMessageHeaderLen + int(m.UsernameLen)
	if len(msg) < expected {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	m.Username = string(msg[22:expected])
	return m, nil
}

type CancelOrderMessage struct {
	BaseMessage
	AssetIdx int
	Side     common.Side
	OrderID  uint64
	Price    float64
}

func parseCancelOrder(msg []byte) (CancelOrderMessage, error) {
	if len(msg) < CancelOrderMessageHeaderLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	m := CancelOrderMessage{BaseMessage: BaseMessage{TypeOf: CancelOrder}}
	m.AssetIdx = int(binary.BigEndian.Uint16(msg[0:2]))
	m.Side = common.Side(msg[2])
	m.OrderID = binary.BigEndian.Uint64(msg[3:11])
	m.Price = math.Float64frombits(binary.BigEndian.Uint64(msg[11:19]))
	return m, nil
}

// Report is the wire form of a fill/ack/reject delivered back to a
// client connection.
type Report struct {
	MessageType ReportMessageType
	AssetIdx    int
	Side        common.Side
	OrderID     uint64
	Quantity    float64
	Price       float64
	ErrStrLen   uint32
	Err         string
}

const reportFixedHeaderLen = 1 + 2 + 1 + 8 + 8 + 8 + 4

func (r *Report) Serialize() []byte {
	buf := make([]byte, reportFixedHeaderLen+len(r.Err))
	buf[0] = byte(r.MessageType)
	binary.BigEndian.PutUint16(buf[1:3], uint16(r.AssetIdx))
	buf[3] = byte(r.Side)
	binary.BigEndian.PutUint64(buf[4:12], r.OrderID)
	binary.BigEndian.PutUint64(buf[12:20], math.Float64bits(r.Quantity))
	binary.BigEndian.PutUint64(buf[20:28], math.Float64bits(r.Price))
	binary.BigEndian.PutUint32(buf[28:32], r.ErrStrLen)
	if r.ErrStrLen > 0 {
		copy(buf[32:], r.Err)
	}
	return buf
}
