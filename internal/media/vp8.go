package media

import (
	"encoding/binary"
	"fmt"
)

// VP8 frame layout constants (RFC 6386 §9.1). Every frame starts with a
// 3-byte frame tag; keyframes continue with a 3-byte sync code and 2+2 bytes
// of scaled dimensions.
const (
	FrameTagSize       = 3
	KeyframeHeaderSize = 10

	maxPartitionSize = 1<<19 - 1 // first_partition_size is 19 bits
	maxDimension     = 1<<14 - 1 // width/height are 14 bits
)

// Keyframe sync code bytes following the frame tag.
var keyframeSyncCode = [3]byte{0x9d, 0x01, 0x2a}

// Frame is the parsed VP8 frame tag, plus dimensions for keyframes.
type Frame struct {
	KeyFrame           bool
	Version            uint8
	ShowFrame          bool
	FirstPartitionSize int

	// Keyframe only.
	Width  int
	Height int
}

// EncodeFrameTag serializes the 3-byte frame tag. The tag is a little-endian
// 24-bit value: bit 0 frame type (0 = keyframe), bits 1–3 version, bit 4
// show_frame, bits 5–23 first_partition_size.
func EncodeFrameTag(keyFrame bool, version uint8, partitionSize int) ([]byte, error) {
	if partitionSize < 0 || partitionSize > maxPartitionSize {
		return nil, fmt.Errorf("partition size out of range: %d", partitionSize)
	}
	if version > 7 {
		return nil, fmt.Errorf("version out of range: %d", version)
	}

	tag := uint32(partitionSize) << 5
	tag |= 1 << 4 // show_frame
	tag |= uint32(version&0x7) << 1
	if !keyFrame {
		tag |= 1
	}

	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, tag)
	return buf[:FrameTagSize], nil
}

// EncodeKeyframeHeader serializes the 10-byte keyframe prefix: frame tag,
// sync code, and the 14-bit width and height (scale bits zero).
func EncodeKeyframeHeader(width, height, partitionSize int) ([]byte, error) {
	if width < 1 || width > maxDimension || height < 1 || height > maxDimension {
		return nil, fmt.Errorf("dimensions out of range: %dx%d", width, height)
	}

	tag, err := EncodeFrameTag(true, 0, partitionSize)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, KeyframeHeaderSize)
	copy(buf, tag)
	copy(buf[FrameTagSize:], keyframeSyncCode[:])
	binary.LittleEndian.PutUint16(buf[6:8], uint16(width))
	binary.LittleEndian.PutUint16(buf[8:10], uint16(height))
	return buf, nil
}

// ParseFrame deserializes the frame tag at the start of a VP8 frame. For
// keyframes it validates the sync code and extracts the dimensions.
func ParseFrame(data []byte) (Frame, error) {
	if len(data) < FrameTagSize {
		return Frame{}, fmt.Errorf("frame too short: %d bytes (need at least %d)", len(data), FrameTagSize)
	}

	tag := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16
	f := Frame{
		KeyFrame:           tag&1 == 0,
		Version:            uint8(tag >> 1 & 0x7),
		ShowFrame:          tag>>4&1 == 1,
		FirstPartitionSize: int(tag >> 5),
	}

	if !f.KeyFrame {
		return f, nil
	}

	if len(data) < KeyframeHeaderSize {
		return Frame{}, fmt.Errorf("keyframe too short: %d bytes (need at least %d)", len(data), KeyframeHeaderSize)
	}
	if data[3] != keyframeSyncCode[0] || data[4] != keyframeSyncCode[1] || data[5] != keyframeSyncCode[2] {
		return Frame{}, fmt.Errorf("bad keyframe sync code: %02x %02x %02x", data[3], data[4], data[5])
	}

	f.Width = int(binary.LittleEndian.Uint16(data[6:8]) & 0x3fff)
	f.Height = int(binary.LittleEndian.Uint16(data[8:10]) & 0x3fff)
	return f, nil
}
