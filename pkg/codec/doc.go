// Package codec provides the fixed-width binary encoding used by the bicis data file.
//
// The data file holds two kinds of values: station counters and bike records.
// Both are fixed width so that every value can be addressed by byte offset and
// rewritten in place.
//
// # Counter Format
//
// A station counter is a single signed 32-bit little-endian integer (4 bytes).
//
// # Record Format
//
// A bike record is 32 bytes:
//
//	[CRC32(4)][Code(8)][Station(4)][Client(8)][Hour(4)][Minute(4)]
//
// Fields:
//   - CRC32: IEEE checksum over the 28 bytes that follow it (little-endian)
//   - Code: bike identifier, left-aligned and space padded, truncated at 8 bytes
//   - Station: signed 32-bit; >= 0 is the 0-based station the bike is parked at,
//     -1 means the bike is rented
//   - Client: holder code, left-aligned and space padded; all spaces when parked
//   - Hour, Minute: signed 32-bit time of the last state transition
//
// Decoding trims the padding from text fields. A record whose checksum does not
// match, whose hour and minute are out of range, or whose client field
// contradicts its state (rented with no client, parked with one) is reported
// as ErrMalformedRecord.
//
// # Usage
//
//	c := codec.NewRecordCodec()
//	buf := c.Encode(&codec.Bike{Code: "B000", Station: 0})
//	bike, err := c.Decode(buf)
//	if err != nil {
//	    return err
//	}
//
// RecordCodec holds no state and is safe for concurrent use.
package codec
