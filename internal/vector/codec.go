package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

const float32Size = 4

// Encode serializes v as little-endian float32 values.
func Encode(v []float32) []byte {
	out := make([]byte, len(v)*float32Size)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*float32Size:], math.Float32bits(f))
	}
	return out
}

// Decode parses little-endian float32 values. The byte length must equal dimensions*4.
func Decode(b []byte, dimensions int) ([]float32, error) {
	if len(b) != dimensions*float32Size {
		return nil, fmt.Errorf("%w: blob has %d bytes, expected %d", ErrDimensionMismatch, len(b), dimensions*float32Size)
	}
	out := make([]float32, dimensions)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*float32Size:]))
	}
	return out, nil
}
