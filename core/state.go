package slidewin

import (
	"encoding/binary"
	"errors"
	"math"
)

// The canonical window geometry is the only cross-session state the
// detection stages own. It is packed into a small little-endian binary
// packet persisted alongside the trained classifier, and must be restored
// before inference so training and inference windows share the exact same
// shape.

const geometryMagic = "SLWINGEO"

// GeometrySize is the packed size of a geometry packet, in bytes.
const GeometrySize = 8 + 8 + 4 + 4

// PackGeometry serializes the canonical window geometry.
func PackGeometry(aspectRatio float64, windowWidth, windowHeight int) []byte {
	packet := make([]byte, GeometrySize)
	copy(packet[:8], geometryMagic)
	binary.LittleEndian.PutUint64(packet[8:], math.Float64bits(aspectRatio))
	binary.LittleEndian.PutUint32(packet[16:], uint32(windowWidth))
	binary.LittleEndian.PutUint32(packet[20:], uint32(windowHeight))
	return packet
}

// UnpackGeometry restores the canonical window geometry from a packet
// produced by PackGeometry.
func UnpackGeometry(packet []byte) (aspectRatio float64, windowWidth, windowHeight int, err error) {
	if len(packet) < GeometrySize {
		return 0, 0, 0, errors.New("slidewin: geometry packet too short")
	}
	if string(packet[:8]) != geometryMagic {
		return 0, 0, 0, errors.New("slidewin: not a geometry packet")
	}
	aspectRatio = math.Float64frombits(binary.LittleEndian.Uint64(packet[8:]))
	windowWidth = int(binary.LittleEndian.Uint32(packet[16:]))
	windowHeight = int(binary.LittleEndian.Uint32(packet[20:]))
	if aspectRatio <= 0 || math.IsNaN(aspectRatio) || windowWidth <= 0 || windowHeight <= 0 {
		return 0, 0, 0, errors.New("slidewin: geometry packet holds invalid values")
	}
	return aspectRatio, windowWidth, windowHeight, nil
}
