// Package simd implements the element-wise numeric kernels behind the bulk
// column operations.
//
// When the CPU reports wide vector units the kernels process blocks of
// Lanes elements per iteration, unrolled so the compiler keeps the block in
// registers; the remainder and CPUs without those units use the scalar
// loop. Both paths produce identical results.
package simd

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// Lanes is the block width of the wide kernels.
const Lanes = 8

// Number is the set of primitive element types the kernels operate on.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

var (
	// ErrElementSize is returned when a value type can not be viewed as a
	// whole number of primitive lanes.
	ErrElementSize = errors.New("simd: element size is not a multiple of the primitive width")
	// ErrLength is raised when operands of a kernel differ in length.
	ErrLength = errors.New("simd: operand lengths differ")
)

var wide = cpu.X86.HasAVX2 || cpu.ARM64.HasASIMD

// Wide reports whether the wide kernels are selected on this CPU.
func Wide() bool {
	return wide
}

// Check reports whether values of T can be viewed as lanes of P.
func Check[P Number, T any]() error {
	var (
		v T
		p P
	)
	size, width := unsafe.Sizeof(v), unsafe.Sizeof(p)
	if size == 0 || size%width != 0 {
		return fmt.Errorf("%w: %T is %d bytes, %T is %d", ErrElementSize, v, size, p, width)
	}
	if unsafe.Alignof(v)%unsafe.Alignof(p) != 0 {
		return fmt.Errorf("%w: %T is aligned to %d bytes, %T needs %d",
			ErrElementSize, v, unsafe.Alignof(v), p, unsafe.Alignof(p))
	}
	return nil
}

// Cast views s as a slice of P lanes sharing its memory. T must hold no
// pointers.
func Cast[P Number, T any](s []T) ([]P, error) {
	if err := Check[P, T](); err != nil {
		return nil, err
	}
	if len(s) == 0 {
		return nil, nil
	}
	var (
		v T
		p P
	)
	n := len(s) * int(unsafe.Sizeof(v)/unsafe.Sizeof(p))
	return unsafe.Slice((*P)(unsafe.Pointer(unsafe.SliceData(s))), n), nil
}

func sameLength(n int, others ...int) {
	for _, m := range others {
		if m != n {
			panic(fmt.Errorf("%w: %d and %d", ErrLength, n, m))
		}
	}
}

// AddUniform adds v to every element of dst.
func AddUniform[T Number](dst []T, v T) {
	i := 0
	if wide {
		for ; i+Lanes <= len(dst); i += Lanes {
			d := dst[i : i+Lanes : i+Lanes]
			d[0] += v
			d[1] += v
			d[2] += v
			d[3] += v
			d[4] += v
			d[5] += v
			d[6] += v
			d[7] += v
		}
	}
	for ; i < len(dst); i++ {
		dst[i] += v
	}
}

// Add adds a to dst element-wise.
func Add[T Number](dst, a []T) {
	sameLength(len(dst), len(a))
	i := 0
	if wide {
		for ; i+Lanes <= len(dst); i += Lanes {
			d := dst[i : i+Lanes : i+Lanes]
			s := a[i : i+Lanes : i+Lanes]
			d[0] += s[0]
			d[1] += s[1]
			d[2] += s[2]
			d[3] += s[3]
			d[4] += s[4]
			d[5] += s[5]
			d[6] += s[6]
			d[7] += s[7]
		}
	}
	for ; i < len(dst); i++ {
		dst[i] += a[i]
	}
}

// Add2 stores a + b into dst element-wise.
func Add2[T Number](dst, a, b []T) {
	sameLength(len(dst), len(a), len(b))
	i := 0
	if wide {
		for ; i+Lanes <= len(dst); i += Lanes {
			d := dst[i : i+Lanes : i+Lanes]
			x := a[i : i+Lanes : i+Lanes]
			y := b[i : i+Lanes : i+Lanes]
			d[0] = x[0] + y[0]
			d[1] = x[1] + y[1]
			d[2] = x[2] + y[2]
			d[3] = x[3] + y[3]
			d[4] = x[4] + y[4]
			d[5] = x[5] + y[5]
			d[6] = x[6] + y[6]
			d[7] = x[7] + y[7]
		}
	}
	for ; i < len(dst); i++ {
		dst[i] = a[i] + b[i]
	}
}

// Add3 stores a + b + c into dst element-wise.
func Add3[T Number](dst, a, b, c []T) {
	sameLength(len(dst), len(a), len(b), len(c))
	i := 0
	if wide {
		for ; i+Lanes <= len(dst); i += Lanes {
			d := dst[i : i+Lanes : i+Lanes]
			x := a[i : i+Lanes : i+Lanes]
			y := b[i : i+Lanes : i+Lanes]
			z := c[i : i+Lanes : i+Lanes]
			d[0] = x[0] + y[0] + z[0]
			d[1] = x[1] + y[1] + z[1]
			d[2] = x[2] + y[2] + z[2]
			d[3] = x[3] + y[3] + z[3]
			d[4] = x[4] + y[4] + z[4]
			d[5] = x[5] + y[5] + z[5]
			d[6] = x[6] + y[6] + z[6]
			d[7] = x[7] + y[7] + z[7]
		}
	}
	for ; i < len(dst); i++ {
		dst[i] = a[i] + b[i] + c[i]
	}
}
