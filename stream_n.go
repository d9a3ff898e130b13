package kura

import "iter"

// Row2 holds the components of one row of a Stream2.
type Row2[A, B any] struct {
	A *A
	B *B
}

// Stream2 iterates two component columns of every entity a query matches.
// With wildcard matches, each row is visited once per column combination.
type Stream2[A, B any] struct {
	streamCore
}

// NewStream2 returns the stream over A selected by m0 and B selected by m1.
func NewStream2[A, B any](w *World, m0, m1 Matcher, terms ...Term) *Stream2[A, B] {
	shape := []TypeExpr{Expr[A](m0), Expr[B](m1)}
	return cachedStream(w, shape, terms, func(c streamCore) *Stream2[A, B] {
		return &Stream2[A, B]{c}
	})
}

// Subset returns a copy of s restricted to tables matching at least one of
// terms.
func (s *Stream2[A, B]) Subset(terms ...Term) *Stream2[A, B] {
	return &Stream2[A, B]{s.withSubset(terms)}
}

// Exclude returns a copy of s skipping tables matching any of terms.
func (s *Stream2[A, B]) Exclude(terms ...Term) *Stream2[A, B] {
	return &Stream2[A, B]{s.withExclude(terms)}
}

// For calls fn for every row sequentially.
func (s *Stream2[A, B]) For(fn func(e Entity, a *A, b *B)) error {
	return s.each(func(t *Table, cols []storage) {
		a := cols[0].(*column[A]).data
		b := cols[1].(*column[B]).data
		for i, e := range t.entities {
			fn(e, &a[i], &b[i])
		}
	})
}

// Iterate returns a lazy sequence over every row. Like Stream1.Iterate it
// takes no read-scope and is for single-goroutine use.
func (s *Stream2[A, B]) Iterate() iter.Seq2[Entity, Row2[A, B]] {
	return func(yield func(Entity, Row2[A, B]) bool) {
		for t, cols := range s.enumerate() {
			version := t.Version()
			a := cols[0].(*column[A]).data
			b := cols[1].(*column[B]).data
			for i := range t.Count() {
				checkVersion(t, version)
				if !yield(t.entities[i], Row2[A, B]{&a[i], &b[i]}) {
					return
				}
			}
			checkVersion(t, version)
		}
	}
}

// Raw calls fn once per table with the whole columns.
func (s *Stream2[A, B]) Raw(fn func(es []Entity, a []A, b []B)) error {
	if err := s.checkWrite("raw"); err != nil {
		return err
	}
	return s.each(func(t *Table, cols []storage) {
		if t.Count() > 0 {
			fn(t.entities, cols[0].(*column[A]).data, cols[1].(*column[B]).data)
		}
	})
}

// Job calls fn for every row from parallel chunks.
func (s *Stream2[A, B]) Job(fn func(e Entity, a *A, b *B), opts ...JobOption) error {
	if err := s.checkWrite("job"); err != nil {
		return err
	}
	w := s.world()
	return w.scoped(func() error {
		return w.dispatch(s.work(func(t *Table, cols []storage) func(lo, hi int) {
			es := t.entities
			a := cols[0].(*column[A]).data
			b := cols[1].(*column[B]).data
			return func(lo, hi int) {
				for i := lo; i < hi; i++ {
					fn(es[i], &a[i], &b[i])
				}
			}
		}), opts)
	})
}

// Blit overwrites every A column selected by m with value.
func (s *Stream2[A, B]) Blit(value A, m Matcher) error {
	return blit(s.streamCore, value, m)
}

// Row3 holds the components of one row of a Stream3.
type Row3[A, B, C any] struct {
	A *A
	B *B
	C *C
}

// Stream3 iterates three component columns of every entity a query
// matches.
type Stream3[A, B, C any] struct {
	streamCore
}

// NewStream3 returns the stream over A, B and C selected by m0, m1 and m2.
func NewStream3[A, B, C any](w *World, m0, m1, m2 Matcher, terms ...Term) *Stream3[A, B, C] {
	shape := []TypeExpr{Expr[A](m0), Expr[B](m1), Expr[C](m2)}
	return cachedStream(w, shape, terms, func(c streamCore) *Stream3[A, B, C] {
		return &Stream3[A, B, C]{c}
	})
}

// Subset returns a copy of s restricted to tables matching at least one of
// terms.
func (s *Stream3[A, B, C]) Subset(terms ...Term) *Stream3[A, B, C] {
	return &Stream3[A, B, C]{s.withSubset(terms)}
}

// Exclude returns a copy of s skipping tables matching any of terms.
func (s *Stream3[A, B, C]) Exclude(terms ...Term) *Stream3[A, B, C] {
	return &Stream3[A, B, C]{s.withExclude(terms)}
}

// For calls fn for every row sequentially.
func (s *Stream3[A, B, C]) For(fn func(e Entity, a *A, b *B, c *C)) error {
	return s.each(func(t *Table, cols []storage) {
		a := cols[0].(*column[A]).data
		b := cols[1].(*column[B]).data
		c := cols[2].(*column[C]).data
		for i, e := range t.entities {
			fn(e, &a[i], &b[i], &c[i])
		}
	})
}

// Iterate returns a lazy sequence over every row. Single-goroutine use
// only.
func (s *Stream3[A, B, C]) Iterate() iter.Seq2[Entity, Row3[A, B, C]] {
	return func(yield func(Entity, Row3[A, B, C]) bool) {
		for t, cols := range s.enumerate() {
			version := t.Version()
			a := cols[0].(*column[A]).data
			b := cols[1].(*column[B]).data
			c := cols[2].(*column[C]).data
			for i := range t.Count() {
				checkVersion(t, version)
				if !yield(t.entities[i], Row3[A, B, C]{&a[i], &b[i], &c[i]}) {
					return
				}
			}
			checkVersion(t, version)
		}
	}
}

// Raw calls fn once per table with the whole columns.
func (s *Stream3[A, B, C]) Raw(fn func(es []Entity, a []A, b []B, c []C)) error {
	if err := s.checkWrite("raw"); err != nil {
		return err
	}
	return s.each(func(t *Table, cols []storage) {
		if t.Count() > 0 {
			fn(t.entities, cols[0].(*column[A]).data, cols[1].(*column[B]).data, cols[2].(*column[C]).data)
		}
	})
}

// Job calls fn for every row from parallel chunks.
func (s *Stream3[A, B, C]) Job(fn func(e Entity, a *A, b *B, c *C), opts ...JobOption) error {
	if err := s.checkWrite("job"); err != nil {
		return err
	}
	w := s.world()
	return w.scoped(func() error {
		return w.dispatch(s.work(func(t *Table, cols []storage) func(lo, hi int) {
			es := t.entities
			a := cols[0].(*column[A]).data
			b := cols[1].(*column[B]).data
			c := cols[2].(*column[C]).data
			return func(lo, hi int) {
				for i := lo; i < hi; i++ {
					fn(es[i], &a[i], &b[i], &c[i])
				}
			}
		}), opts)
	})
}

// Blit overwrites every A column selected by m with value.
func (s *Stream3[A, B, C]) Blit(value A, m Matcher) error {
	return blit(s.streamCore, value, m)
}
