package kura

import (
	"fmt"

	"github.com/edwinsyarief/kura/internal/simd"
)

// The bulk operations view unmanaged component columns as flat slices of a
// primitive type P, so a Vec3 column of float32 is three float32 lanes per
// row. Layout problems are reported before any column is touched.

// AddUniform adds v to every P lane of every A column of s.
func AddUniform[P simd.Number, A any](s *Stream1[A], v P) error {
	if err := checkBulk[P, A](s.streamCore, "add uniform"); err != nil {
		return err
	}
	return s.Raw(func(_ []Entity, a []A) {
		lanes, _ := simd.Cast[P](a)
		simd.AddUniform(lanes, v)
	})
}

// AddInto adds every B to the A of the same row, lane by lane.
func AddInto[P simd.Number, A, B any](s *Stream2[A, B]) error {
	if err := checkBulk[P, A](s.streamCore, "add"); err != nil {
		return err
	}
	if err := checkOperand[P, A, B](); err != nil {
		return err
	}
	return s.Raw(func(_ []Entity, a []A, b []B) {
		dst, _ := simd.Cast[P](a)
		src, _ := simd.Cast[P](b)
		simd.Add(dst, src)
	})
}

// SumInto stores B + C into the A of every row, lane by lane.
func SumInto[P simd.Number, A, B, C any](s *Stream3[A, B, C]) error {
	if err := checkBulk[P, A](s.streamCore, "sum"); err != nil {
		return err
	}
	if err := checkOperand[P, A, B](); err != nil {
		return err
	}
	if err := checkOperand[P, A, C](); err != nil {
		return err
	}
	return s.Raw(func(_ []Entity, a []A, b []B, c []C) {
		dst, _ := simd.Cast[P](a)
		x, _ := simd.Cast[P](b)
		y, _ := simd.Cast[P](c)
		simd.Add2(dst, x, y)
	})
}

// AccumulateInto adds B + C to the A of every row, lane by lane.
func AccumulateInto[P simd.Number, A, B, C any](s *Stream3[A, B, C]) error {
	if err := checkBulk[P, A](s.streamCore, "accumulate"); err != nil {
		return err
	}
	if err := checkOperand[P, A, B](); err != nil {
		return err
	}
	if err := checkOperand[P, A, C](); err != nil {
		return err
	}
	return s.Raw(func(_ []Entity, a []A, b []B, c []C) {
		dst, _ := simd.Cast[P](a)
		x, _ := simd.Cast[P](b)
		y, _ := simd.Cast[P](c)
		simd.Add3(dst, dst, x, y)
	})
}

func checkBulk[P simd.Number, A any](s streamCore, op string) error {
	if err := s.checkWrite(op); err != nil {
		return err
	}
	id := TypeFor[A]()
	if !typeInfoOf(id).unmanaged {
		return &Error{Op: op, Type: id, Err: ErrManagedType}
	}
	if err := simd.Check[P, A](); err != nil {
		return &Error{Op: op, Type: id, Err: err}
	}
	return nil
}

// checkOperand verifies that B has the lane layout of the destination A.
func checkOperand[P simd.Number, A, B any]() error {
	a, b := typeInfoOf(TypeFor[A]()), typeInfoOf(TypeFor[B]())
	if !b.unmanaged {
		return &Error{Op: "bulk", Type: b.id, Err: ErrManagedType}
	}
	if err := simd.Check[P, B](); err != nil {
		return &Error{Op: "bulk", Type: b.id, Err: err}
	}
	if a.size != b.size {
		return &Error{Op: "bulk", Type: b.id,
			Err: fmt.Errorf("%w: %s is %d bytes, %s is %d", simd.ErrElementSize, a.name, a.size, b.name, b.size)}
	}
	return nil
}
