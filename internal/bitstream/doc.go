// Package bitstream provides bit-addressable random access over a capture file.
//
// A capture is read through the [Stream] interface, which has two encodings:
//
//   - [Packed]: every file bit is one stream bit, most significant bit first
//   - [Expanded]: every file byte is one stream bit (zero is clear, anything else is set)
//
// Both encodings return identical bits for the same logical bit sequence, so
// callers only depend on the four cursor operations of [Stream].
//
// # Example
//
//	s, err := bitstream.Open("capture.bin", bitstream.EncodingPacked, false)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//	s.SeekBit(1024)
//	bits, err := s.ReadBit(8)
//
// # Thread Safety
//
// Streams are NOT thread-safe. The cursor is owned by one operation at a time.
package bitstream
