package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

const (
	// IntSize is the width of every integer in the data file.
	IntSize = 4
	// CodeWidth is the width of the bike code field.
	CodeWidth = 8
	// ClientWidth is the width of the client code field.
	ClientWidth = 8
	// CounterSize is the encoded size of one station counter.
	CounterSize = IntSize
	// RecordSize is the encoded size of one bike record.
	RecordSize = IntSize + CodeWidth + IntSize + ClientWidth + IntSize + IntSize

	// RentedStation marks a record whose bike is held by a client.
	RentedStation = -1
)

// field offsets within a record
const (
	offCRC     = 0
	offCode    = offCRC + IntSize
	offStation = offCode + CodeWidth
	offClient  = offStation + IntSize
	offHour    = offClient + ClientWidth
	offMinute  = offHour + IntSize
)

var (
	// ErrMalformedRecord is returned when bytes cannot be decoded into a record or counter.
	ErrMalformedRecord = errors.New("malformed record")
)

// Bike is the in-memory form of one bike record
type Bike struct {
	Code    string
	Station int32
	Client  string
	Hour    int32
	Minute  int32
}

// Rented reports whether the bike is currently held by a client.
func (b *Bike) Rented() bool {
	return b.Station == RentedStation
}

// ParkedAt reports whether the bike is parked at the given 0-based station.
func (b *Bike) ParkedAt(station int) bool {
	return b.Station >= 0 && int(b.Station) == station
}

// HeldBy reports whether the bike is rented by client.
func (b *Bike) HeldBy(client string) bool {
	return b.Rented() && b.Client == client
}

// RecordCodec handles serialization and deserialization of bike records
type RecordCodec struct{}

// NewRecordCodec creates a new record codec instance
func NewRecordCodec() *RecordCodec {
	return &RecordCodec{}
}

// Encode serializes a bike into a RecordSize byte slice
func (c *RecordCodec) Encode(b *Bike) []byte {
	buf := make([]byte, RecordSize)
	c.EncodeTo(buf, b)
	return buf
}

// EncodeTo serializes a bike into buf, which must be at least RecordSize long.
func (c *RecordCodec) EncodeTo(buf []byte, b *Bike) {
	copy(buf[offCode:offStation], PadText(b.Code, CodeWidth))
	binary.LittleEndian.PutUint32(buf[offStation:], uint32(b.Station))
	copy(buf[offClient:offHour], PadText(b.Client, ClientWidth))
	binary.LittleEndian.PutUint32(buf[offHour:], uint32(b.Hour))
	binary.LittleEndian.PutUint32(buf[offMinute:], uint32(b.Minute))
	binary.LittleEndian.PutUint32(buf[offCRC:], checksum(buf[:RecordSize]))
}

// Decode deserializes a binary record into a Bike
func (c *RecordCodec) Decode(data []byte) (*Bike, error) {
	if len(data) < RecordSize {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrMalformedRecord, len(data), RecordSize)
	}
	data = data[:RecordSize]

	stored := binary.LittleEndian.Uint32(data[offCRC:])
	if sum := checksum(data); stored != sum {
		return nil, fmt.Errorf("%w: CRC32 mismatch: %d != %d", ErrMalformedRecord, stored, sum)
	}

	b := &Bike{
		Code:    trimText(data[offCode:offStation]),
		Station: int32(binary.LittleEndian.Uint32(data[offStation:])),
		Client:  trimText(data[offClient:offHour]),
		Hour:    int32(binary.LittleEndian.Uint32(data[offHour:])),
		Minute:  int32(binary.LittleEndian.Uint32(data[offMinute:])),
	}

	if err := Validate(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Validate checks the field ranges and the state rule of a bike: a rented
// bike names its holder, a parked bike names no one.
func Validate(b *Bike) error {
	if b.Station < RentedStation {
		return fmt.Errorf("%w: station %d", ErrMalformedRecord, b.Station)
	}
	if b.Hour < 0 || b.Hour > 23 || b.Minute < 0 || b.Minute > 59 {
		return fmt.Errorf("%w: time %02d:%02d", ErrMalformedRecord, b.Hour, b.Minute)
	}
	if b.Rented() && b.Client == "" {
		return fmt.Errorf("%w: bike %s is rented without a client", ErrMalformedRecord, b.Code)
	}
	if !b.Rented() && b.Client != "" {
		return fmt.Errorf("%w: bike %s is parked but names client %q", ErrMalformedRecord, b.Code, b.Client)
	}
	return nil
}

// EncodeCounter serializes a station counter
func EncodeCounter(v int32) []byte {
	buf := make([]byte, CounterSize)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return buf
}

// DecodeCounter deserializes a station counter
func DecodeCounter(data []byte) (int32, error) {
	if len(data) < CounterSize {
		return 0, fmt.Errorf("%w: counter is %d bytes, want %d", ErrMalformedRecord, len(data), CounterSize)
	}
	return int32(binary.LittleEndian.Uint32(data)), nil
}

// PadText left-aligns s in a space padded field of the given width, truncating if needed.
func PadText(s string, width int) []byte {
	out := bytes.Repeat([]byte{' '}, width)
	copy(out, s)
	return out
}

func trimText(b []byte) string {
	return string(bytes.TrimRight(b, " "))
}

// checksum covers every byte after the CRC field
func checksum(record []byte) uint32 {
	return crc32.ChecksumIEEE(record[offCode:RecordSize])
}
