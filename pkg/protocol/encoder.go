package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/joripage/matching-core/pkg/buffer"
)

// Encodable is a command record with a fixed layout.
type Encodable interface {
	Command() Command
	EncodedSize() int
	// EncodeTo writes the record at buf[offset:] and returns the number of
	// bytes written. It panics if buf is too short, like binary.PutUint64.
	EncodeTo(buf []byte, offset int) int
}

type PlaceOrder struct {
	UID              uint64
	OrderID          uint64
	Price            int64
	ReservedBidPrice int64
	Size             int64
	UserCookie       int32
	Action           Action
	Type             OrderType
}

type CancelOrder struct {
	UID     uint64
	OrderID uint64
}

type ReduceOrder struct {
	UID     uint64
	OrderID uint64
	Size    int64
}

type MoveOrder struct {
	UID     uint64
	OrderID uint64
	Price   int64
}

type L2Query struct {
	Limit int32
}

func (PlaceOrder) Command() Command  { return CommandPlaceOrder }
func (CancelOrder) Command() Command { return CommandCancelOrder }
func (ReduceOrder) Command() Command { return CommandReduceOrder }
func (MoveOrder) Command() Command   { return CommandMoveOrder }
func (L2Query) Command() Command     { return QueryL2 }

func (PlaceOrder) EncodedSize() int  { return PlaceRecordSize }
func (CancelOrder) EncodedSize() int { return CancelRecordSize }
func (ReduceOrder) EncodedSize() int { return ReduceRecordSize }
func (MoveOrder) EncodedSize() int   { return MoveRecordSize }
func (L2Query) EncodedSize() int     { return L2QueryRecordSize }

func (c PlaceOrder) EncodeTo(buf []byte, offset int) int {
	b := buf[offset : offset+PlaceRecordSize]
	binary.LittleEndian.PutUint64(b[PlaceOffsetUID:], c.UID)
	binary.LittleEndian.PutUint64(b[PlaceOffsetOrderID:], c.OrderID)
	binary.LittleEndian.PutUint64(b[PlaceOffsetPrice:], uint64(c.Price))
	binary.LittleEndian.PutUint64(b[PlaceOffsetReservedBidPrice:], uint64(c.ReservedBidPrice))
	binary.LittleEndian.PutUint64(b[PlaceOffsetSize:], uint64(c.Size))
	binary.LittleEndian.PutUint32(b[PlaceOffsetUserCookie:], uint32(c.UserCookie))
	b[PlaceOffsetAction] = byte(c.Action)
	b[PlaceOffsetType] = byte(c.Type)
	return PlaceRecordSize
}

func (c CancelOrder) EncodeTo(buf []byte, offset int) int {
	b := buf[offset : offset+CancelRecordSize]
	binary.LittleEndian.PutUint64(b[CancelOffsetUID:], c.UID)
	binary.LittleEndian.PutUint64(b[CancelOffsetOrderID:], c.OrderID)
	return CancelRecordSize
}

func (c ReduceOrder) EncodeTo(buf []byte, offset int) int {
	b := buf[offset : offset+ReduceRecordSize]
	binary.LittleEndian.PutUint64(b[ReduceOffsetUID:], c.UID)
	binary.LittleEndian.PutUint64(b[ReduceOffsetOrderID:], c.OrderID)
	binary.LittleEndian.PutUint64(b[ReduceOffsetSize:], uint64(c.Size))
	return ReduceRecordSize
}

func (c MoveOrder) EncodeTo(buf []byte, offset int) int {
	b := buf[offset : offset+MoveRecordSize]
	binary.LittleEndian.PutUint64(b[MoveOffsetUID:], c.UID)
	binary.LittleEndian.PutUint64(b[MoveOffsetOrderID:], c.OrderID)
	binary.LittleEndian.PutUint64(b[MoveOffsetPrice:], uint64(c.Price))
	return MoveRecordSize
}

func (c L2Query) EncodeTo(buf []byte, offset int) int {
	binary.LittleEndian.PutUint32(buf[offset+L2OffsetLimit:], uint32(c.Limit))
	return L2QueryRecordSize
}

// Append writes the record at the writer cursor.
func Append(w *buffer.Writer, cmd Encodable) {
	cmd.EncodeTo(w.Reserve(cmd.EncodedSize()), 0)
}

// Encode returns the record in a fresh slice.
func Encode(cmd Encodable) []byte {
	b := make([]byte, cmd.EncodedSize())
	cmd.EncodeTo(b, 0)
	return b
}

// Frame returns tag(1) followed by the record, the unit consumed by the
// processor and carried on the commands topic.
func Frame(cmd Encodable) []byte {
	b := make([]byte, TagSize+cmd.EncodedSize())
	b[0] = byte(cmd.Command())
	cmd.EncodeTo(b, TagSize)
	return b
}

// ReadPlaceOrder decodes a place record at offset.
func ReadPlaceOrder(r *buffer.Reader, offset int) (PlaceOrder, error) {
	cmd := PlaceOrder{
		UID:              r.GetUint64(offset + PlaceOffsetUID),
		OrderID:          r.GetUint64(offset + PlaceOffsetOrderID),
		Price:            r.GetLong(offset + PlaceOffsetPrice),
		ReservedBidPrice: r.GetLong(offset + PlaceOffsetReservedBidPrice),
		Size:             r.GetLong(offset + PlaceOffsetSize),
		UserCookie:       r.GetInt(offset + PlaceOffsetUserCookie),
		Action:           Action(r.GetUint8(offset + PlaceOffsetAction)),
		Type:             OrderType(r.GetUint8(offset + PlaceOffsetType)),
	}
	if err := r.Err(); err != nil {
		return PlaceOrder{}, err
	}
	if cmd.Action != Ask && cmd.Action != Bid {
		return PlaceOrder{}, fmt.Errorf("%w: %d", ErrUnknownAction, cmd.Action)
	}
	return cmd, nil
}

func ReadCancelOrder(r *buffer.Reader, offset int) (CancelOrder, error) {
	cmd := CancelOrder{
		UID:     r.GetUint64(offset + CancelOffsetUID),
		OrderID: r.GetUint64(offset + CancelOffsetOrderID),
	}
	return cmd, r.Err()
}

func ReadReduceOrder(r *buffer.Reader, offset int) (ReduceOrder, error) {
	cmd := ReduceOrder{
		UID:     r.GetUint64(offset + ReduceOffsetUID),
		OrderID: r.GetUint64(offset + ReduceOffsetOrderID),
		Size:    r.GetLong(offset + ReduceOffsetSize),
	}
	return cmd, r.Err()
}

func ReadMoveOrder(r *buffer.Reader, offset int) (MoveOrder, error) {
	cmd := MoveOrder{
		UID:     r.GetUint64(offset + MoveOffsetUID),
		OrderID: r.GetUint64(offset + MoveOffsetOrderID),
		Price:   r.GetLong(offset + MoveOffsetPrice),
	}
	return cmd, r.Err()
}

func ReadL2Query(r *buffer.Reader, offset int) (L2Query, error) {
	return L2Query{Limit: r.GetInt(offset + L2OffsetLimit)}, r.Err()
}
