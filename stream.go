package kura

import (
	"iter"
	"slices"
)

// streamCore is the type-independent part of a stream: the query, the
// ordered shape of the requested columns and the optional table filters.
type streamCore struct {
	query   *Query
	shape   []TypeExpr
	subset  []TypeExpr
	exclude []TypeExpr
}

func newStreamCore(w *World, shape []TypeExpr, terms []Term) streamCore {
	all := slices.Clone(terms)
	for _, expr := range shape {
		all = append(all, Term{expr: expr, kind: termHas})
	}
	return streamCore{query: w.Query(all...), shape: shape}
}

// cachedStream returns the stream of w for (query, shape), building it on
// first use.
func cachedStream[S any](w *World, shape []TypeExpr, terms []Term, build func(streamCore) S) S {
	core := newStreamCore(w, shape, terms)
	key := core.query.key + string(appendExprs([]byte{byte(len(shape))}, shape))
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.streams[key].(S); ok {
		return s
	}
	s := build(core)
	w.streams[key] = s
	return s
}

func (s streamCore) world() *World {
	return s.query.world
}

func (s streamCore) withSubset(terms []Term) streamCore {
	for _, t := range terms {
		s.subset = append(slices.Clip(s.subset), t.expr)
	}
	return s
}

func (s streamCore) withExclude(terms []Term) streamCore {
	for _, t := range terms {
		s.exclude = append(slices.Clip(s.exclude), t.expr)
	}
	return s
}

// Query returns the query the stream iterates.
func (s streamCore) Query() *Query {
	return s.query
}

// tables returns the matched tables that pass the subset and exclude
// filters.
func (s streamCore) tables() []*Table {
	out := make([]*Table, 0, len(s.query.tables))
	for _, t := range s.query.tables {
		if len(s.subset) > 0 && !slices.ContainsFunc(s.subset, t.matches) {
			continue
		}
		if slices.ContainsFunc(s.exclude, t.matches) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Count returns the number of entities in the filtered tables.
func (s streamCore) Count() int {
	w := s.world()
	w.mu.RLock()
	defer w.mu.RUnlock()
	n := 0
	for _, t := range s.tables() {
		n += t.Count()
	}
	return n
}

// Despawn despawns every entity in the filtered tables.
func (s streamCore) Despawn() error {
	w := s.world()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return opError("despawn", None, ErrWorldClosed)
	}
	var snapshot []Entity
	for _, t := range s.tables() {
		snapshot = append(snapshot, t.entities...)
	}
	if w.readers > 0 {
		w.deferred.enqueue(operation{typ: opDespawn, entities: snapshot})
		return nil
	}
	for _, e := range snapshot {
		if err := w.despawnLocked(e); err != nil {
			return err
		}
	}
	return nil
}

func (s streamCore) checkWrite(op string) error {
	for _, expr := range s.shape {
		if expr.Match.IsWildcard() {
			return &Error{Op: op, Type: expr.Type, Err: ErrWildcardWrite}
		}
	}
	return nil
}

// each calls fn for every filtered table and column combination inside a
// read-scope.
func (s streamCore) each(fn func(t *Table, cols []storage)) error {
	return s.world().scoped(func() error {
		for _, t := range s.tables() {
			for cols := range t.crossJoin(s.shape) {
				fn(t, cols)
			}
		}
		return nil
	})
}

// enumerate yields every filtered table and column combination without a
// read-scope. Callers guard each step with checkVersion.
func (s streamCore) enumerate() iter.Seq2[*Table, []storage] {
	return func(yield func(*Table, []storage) bool) {
		w := s.world()
		w.mu.RLock()
		tables := s.tables()
		w.mu.RUnlock()
		for _, t := range tables {
			for cols := range t.crossJoin(s.shape) {
				if !yield(t, cols) {
					return
				}
			}
		}
	}
}

func checkVersion(t *Table, version uint64) {
	if t.Version() != version {
		panic(&Error{Op: "enumerate " + t.String(), Err: ErrCollectionModified})
	}
}

// work collects the job items of every filtered table and combination.
func (s streamCore) work(bind func(t *Table, cols []storage) func(lo, hi int)) []workItem {
	var items []workItem
	for _, t := range s.tables() {
		if t.Count() == 0 {
			continue
		}
		for cols := range t.crossJoin(s.shape) {
			items = append(items, workItem{run: bind(t, cols), rows: t.Count()})
		}
	}
	return items
}

// blit overwrites every column of type T selected by m in the filtered
// tables.
func blit[T any](s streamCore, value T, m Matcher) error {
	expr := Expr[T](m)
	return s.world().scoped(func() error {
		for _, t := range s.tables() {
			for i, ck := range t.signature {
				if ck.Type == expr.Type && expr.Match.Matches(ck.Key) {
					fillColumn(t, i, value)
				}
			}
		}
		return nil
	})
}

// Stream1 iterates one component column of every entity a query matches.
type Stream1[A any] struct {
	streamCore
}

// NewStream1 returns the stream over A selected by m0 and the entities
// matching terms. Streams are cached per world: asking again with the same
// type, matcher and terms returns the same instance.
//
// Parameters:
//   - w: The world to stream.
//   - m0: Selects which A columns are walked. Plain, Relation(e) and
//     Link(p) pick one column; Any, AnyRelation and AnyLink visit each
//     matching column of an entity in turn.
//   - terms: Extra filters every visited entity must satisfy.
//
// Returns:
//   - The cached *Stream1[A].
func NewStream1[A any](w *World, m0 Matcher, terms ...Term) *Stream1[A] {
	shape := []TypeExpr{Expr[A](m0)}
	return cachedStream(w, shape, terms, func(c streamCore) *Stream1[A] {
		return &Stream1[A]{c}
	})
}

// Subset returns a copy of s restricted to tables matching at least one of
// terms. Only the type and match of each term are used.
func (s *Stream1[A]) Subset(terms ...Term) *Stream1[A] {
	return &Stream1[A]{s.withSubset(terms)}
}

// Exclude returns a copy of s skipping tables matching any of terms.
func (s *Stream1[A]) Exclude(terms ...Term) *Stream1[A] {
	return &Stream1[A]{s.withExclude(terms)}
}

// For calls fn for every row sequentially. Structural changes made by fn
// are applied after the last row; their errors are returned.
func (s *Stream1[A]) For(fn func(e Entity, a *A)) error {
	return s.each(func(t *Table, cols []storage) {
		a := cols[0].(*column[A]).data
		for i, e := range t.entities {
			fn(e, &a[i])
		}
	})
}

// Iterate returns a lazy sequence over every row. Structural changes made
// while iterating are applied immediately, and the next step panics with
// ErrCollectionModified when they touched the table being walked.
//
// Iterate takes no read-scope. It is meant for the goroutine that owns the
// world; while another goroutine may change it, use For, Raw or Job.
func (s *Stream1[A]) Iterate() iter.Seq2[Entity, *A] {
	return func(yield func(Entity, *A) bool) {
		for t, cols := range s.enumerate() {
			version := t.Version()
			a := cols[0].(*column[A]).data
			for i := range t.Count() {
				checkVersion(t, version)
				if !yield(t.entities[i], &a[i]) {
					return
				}
			}
			checkVersion(t, version)
		}
	}
}

// Raw calls fn once per table with the whole entity and component columns.
// The slices must not be retained past fn.
func (s *Stream1[A]) Raw(fn func(es []Entity, a []A)) error {
	if err := s.checkWrite("raw"); err != nil {
		return err
	}
	return s.each(func(t *Table, cols []storage) {
		if t.Count() > 0 {
			fn(t.entities, cols[0].(*column[A]).data)
		}
	})
}

// Job calls fn for every row from parallel chunks and waits for all of
// them. It fails with ErrWildcardWrite before running anything when the
// stream has a wildcard match.
//
// The whole job runs inside one read-scope: fn may call Spawn, Despawn and
// the other structural operations, which are queued and applied after the
// last chunk. fn runs on several goroutines at once and must only touch
// the row it is handed.
//
// Parameters:
//   - fn: Called once per row with the entity and its A component.
//   - opts: ChunkSize fixes the rows per chunk; Parallelism bounds the
//     chunks running at once. By default chunks are sized from the row
//     count and Config.Concurrency.
//
// Returns:
//   - nil, or the first chunk failure (ErrJobPanic wrapping the recovered
//     value) joined with the errors of the queued operations.
func (s *Stream1[A]) Job(fn func(e Entity, a *A), opts ...JobOption) error {
	if err := s.checkWrite("job"); err != nil {
		return err
	}
	w := s.world()
	return w.scoped(func() error {
		return w.dispatch(s.work(func(t *Table, cols []storage) func(lo, hi int) {
			es, a := t.entities, cols[0].(*column[A]).data
			return func(lo, hi int) {
				for i := lo; i < hi; i++ {
					fn(es[i], &a[i])
				}
			}
		}), opts)
	})
}

// Blit overwrites every A column selected by m with value.
func (s *Stream1[A]) Blit(value A, m Matcher) error {
	return blit(s.streamCore, value, m)
}
