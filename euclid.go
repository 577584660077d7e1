package beat

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSteps is returned by Euclid when the number of steps is less
	// than one.
	ErrInvalidSteps = errors.New("steps must be at least 1")
	// ErrPulsesExceedSteps is returned by Euclid when more pulses than steps
	// are requested. It happens transiently when the Loop and Beats
	// parameters of a lane are edited independently.
	ErrPulsesExceedSteps = errors.New("pulses exceed steps")
)

// Euclid returns a maximally even rhythm of length steps with exactly pulses
// onsets, built with the Bjorklund construction. The result is phase
// normalized: the first onset is always at index 0.
func Euclid(steps, pulses int) ([]bool, error) {
	return AppendEuclid(nil, steps, pulses)
}

// AppendEuclid is like Euclid, but appends the rhythm to dst, so that callers
// holding a buffer of sufficient capacity can reuse it.
func AppendEuclid(dst []bool, steps, pulses int) ([]bool, error) {
	if steps < 1 {
		return dst, fmt.Errorf("euclid(%d, %d): %w", steps, pulses, ErrInvalidSteps)
	}
	if pulses < 0 {
		pulses = 0
	}
	if pulses > steps {
		return dst, fmt.Errorf("euclid(%d, %d): %w", steps, pulses, ErrPulsesExceedSteps)
	}
	start := len(dst)
	if pulses == 0 {
		for i := 0; i < steps; i++ {
			dst = append(dst, false)
		}
		return dst, nil
	}
	counts := make([]int, 0, steps)
	remainders := make([]int, 1, steps+1)
	remainders[0] = pulses
	divisor := steps - pulses
	level := 0
	for {
		counts = append(counts, divisor/remainders[level])
		remainders = append(remainders, divisor%remainders[level])
		divisor = remainders[level]
		level++
		if remainders[level] < 2 {
			break
		}
	}
	counts = append(counts, divisor)
	var build func(l int)
	build = func(l int) {
		switch l {
		case -1:
			dst = append(dst, false)
		case -2:
			dst = append(dst, true)
		default:
			for i := 0; i < counts[l]; i++ {
				build(l - 1)
			}
			if remainders[l] != 0 {
				build(l - 2)
			}
		}
	}
	build(level)
	rotateToFirstOnset(dst[start:])
	return dst, nil
}

func rotateToFirstOnset(s []bool) {
	for i, v := range s {
		if v {
			rotateLeft(s, i)
			return
		}
	}
}

// rotateLeft rotates s in place so that s[k] becomes s[0].
func rotateLeft(s []bool, k int) {
	if len(s) == 0 {
		return
	}
	k %= len(s)
	if k < 0 {
		k += len(s)
	}
	if k == 0 {
		return
	}
	reverse(s[:k])
	reverse(s[k:])
	reverse(s)
}

// rotateRight rotates s in place so that s[0] becomes s[k].
func rotateRight(s []bool, k int) {
	if len(s) == 0 {
		return
	}
	k %= len(s)
	if k < 0 {
		k += len(s)
	}
	rotateLeft(s, len(s)-k)
}

func reverse(s []bool) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
