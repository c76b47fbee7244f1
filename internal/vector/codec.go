package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Float32SliceToBytes encodes a vector as a little-endian uint32 length
// followed by the float32 components. This is the BLOB layout of the SQLite
// item store.
func Float32SliceToBytes(floats []float32) ([]byte, error) {
	if uint64(len(floats)) > math.MaxUint32 {
		return nil, fmt.Errorf("vector too long to encode: %d components", len(floats))
	}

	buf := make([]byte, 4+4*len(floats))
	binary.LittleEndian.PutUint32(buf, uint32(len(floats)))
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[4+4*i:], math.Float32bits(f))
	}
	return buf, nil
}

// BytesToFloat32Slice decodes a vector written by Float32SliceToBytes.
func BytesToFloat32Slice(data []byte) ([]float32, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("failed to read vector length: %d bytes", len(data))
	}

	length := int(binary.LittleEndian.Uint32(data))
	if len(data)-4 != 4*length {
		return nil, fmt.Errorf("failed to read vector values: want %d bytes, have %d", 4*length, len(data)-4)
	}

	floats := make([]float32, length)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4+4*i:]))
	}
	return floats, nil
}
