package store

import (
	"encoding/binary"
	"math"
)

// encodeVector serializes a float32 slice to little-endian bytes.
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector deserializes little-endian bytes to a float32 slice.
func decodeVector(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// l2Distance is the Euclidean distance between equal-length vectors.
func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// scoreFromDistance maps a distance to (0, 1]; identical vectors score 1.
func scoreFromDistance(d float64) float64 {
	return 1 / (1 + d)
}
