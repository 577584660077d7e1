package params

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrTruncatedState is returned when a state chunk does not end on a value
// boundary.
var ErrTruncatedState = errors.New("truncated state")

const valueSize = 8

// MarshalState appends the values to dst as little-endian float64s.
func MarshalState(dst []byte, values []float64) []byte {
	for _, v := range values {
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(v))
	}
	return dst
}

// UnmarshalState decodes as many complete values as the chunk contains. If
// trailing bytes remain, the decoded values are returned together with
// ErrTruncatedState.
func UnmarshalState(data []byte) ([]float64, error) {
	n := len(data) / valueSize
	values := make([]float64, n)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*valueSize:]))
	}
	if rest := len(data) % valueSize; rest != 0 {
		return values, fmt.Errorf("%w: %d trailing bytes after %d values", ErrTruncatedState, rest, n)
	}
	return values, nil
}
