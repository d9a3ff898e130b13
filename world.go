package kura

import (
	"errors"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/edwinsyarief/kura/internal/simd"
)

// entityMeta locates an entity. table is nil while a deferred spawn has not
// been applied yet.
type entityMeta struct {
	table *Table
	row   int
}

// World owns the entities, the tables grouping them by signature, and the
// queries and streams compiled against them.
//
// Structural changes (spawn, despawn, adding or removing components) take
// the world lock. While a read-scope is open, either by a stream protocol or
// by Lock, structural changes are queued and applied in order when the last
// scope closes.
type World struct {
	logger     *zap.Logger
	bySig      map[string]*Table
	queries    map[string]*Query
	streams    map[string]any
	root       *Table
	tables     []*Table
	metas      []entityMeta // indexed by Entity.ID
	deferred   opQueue
	bus        EventBus
	identities identityPool
	name       string
	cfg        Config
	stats      worldStats
	readers    int
	mu         sync.RWMutex
	id         uint16
	closed     bool
}

// TableCreated is published on the world event bus whenever a new table is
// created. Handlers run while the world write lock is held: they must not
// change the world structurally, and must not call anything that reads it
// either (Alive, GetComponent, Query, Count and the streams all take the
// lock and would deadlock). Inspect ev.Table directly instead.
type TableCreated struct {
	Table *Table
}

// NewWorld creates a World configured by opts and registers it under a
// fresh world id, which every Entity it spawns carries. Options are applied
// in order on top of DefaultConfig; WithConfig replaces the whole Config,
// so later options still override single fields.
//
// Parameters:
//   - opts: Functional options such as WithName, WithInitialCapacity,
//     WithConcurrency, WithLogger or WithConfig.
//
// Returns:
//   - A ready World holding only the empty root table. Call Close when done
//     so the world id can be released.
//
// It panics with ErrInvalidConfig when the resulting configuration does not
// validate, and with ErrWorldExhausted when every world id is taken.
func NewWorld(opts ...Option) *World {
	w := &World{
		cfg:     DefaultConfig(),
		bySig:   make(map[string]*Table),
		queries: make(map[string]*Query),
		streams: make(map[string]any),
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.cfg.Validate(); err != nil {
		panic(err)
	}
	if w.logger == nil {
		w.logger = newLogger(w.cfg.LogLevel)
	}
	w.name = w.cfg.Name
	id, floor := registerWorld(w)
	w.id = id
	w.logger = w.logger.With(zap.String("world", w.name))
	w.identities.init(w.id, floor, w.cfg.InitialCapacity)
	w.metas = make([]entityMeta, 0, w.cfg.InitialCapacity)
	w.root = w.tableFor(nil)
	w.logger.Info("world created",
		zap.Uint16("id", w.id), zap.Int("initial_capacity", w.cfg.InitialCapacity),
		zap.Int("concurrency", w.cfg.Concurrency), zap.Bool("wide_kernels", simd.Wide()))
	return w
}

// Name returns the name the world was configured with.
func (w *World) Name() string {
	return w.name
}

// ID returns the world id carried by every Entity spawned in w.
func (w *World) ID() uint16 {
	return w.id
}

// Logger returns the world logger.
func (w *World) Logger() *zap.Logger {
	return w.logger
}

// Close releases the world id. A later world may reuse the id, but its
// entities are minted above every generation w issued. Entities of a closed world are never alive
// and structural operations fail with ErrWorldClosed.
func (w *World) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	unregisterWorld(w.id, w.identities.peak)
	w.logger.Info("world closed")
	_ = w.logger.Sync()
}

// Alive reports whether e is alive in w.
func (w *World) Alive(e Entity) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return !w.closed && w.identities.alive(e)
}

// Count returns the number of entities stored in tables.
func (w *World) Count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n := 0
	for _, t := range w.tables {
		n += t.Count()
	}
	return n
}

// Tables returns every table of the world in creation order.
func (w *World) Tables() []*Table {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.tables)
}

// Spawn creates an entity holding comps.
func (w *World) Spawn(comps ...Component) (Entity, error) {
	es, err := w.SpawnN(1, comps...)
	if err != nil {
		return None, err
	}
	return es[0], nil
}

// SpawnN creates n entities holding the same comps. Recycled identities are
// used before new ones are minted.
func (w *World) SpawnN(n int, comps ...Component) ([]Entity, error) {
	if n <= 0 {
		return nil, nil
	}
	for i, c := range comps {
		for _, prev := range comps[:i] {
			if prev.ck == c.ck {
				return nil, componentError("spawn", None, c.ck, ErrComponentExists)
			}
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, opError("spawn", None, ErrWorldClosed)
	}
	for _, c := range comps {
		if err := w.checkTarget("spawn", None, c.ck); err != nil {
			return nil, err
		}
	}

	es := w.identities.spawnN(n)
	for _, e := range es {
		w.placeMeta(e, entityMeta{})
	}
	if w.readers > 0 {
		w.deferred.enqueue(operation{typ: opSpawn, entities: es, comps: slices.Clone(comps)})
		return es, nil
	}
	if err := w.materializeLocked(es, comps); err != nil {
		return nil, err
	}
	return es, nil
}

// materializeLocked stores already allocated entities in the table of comps.
func (w *World) materializeLocked(es []Entity, comps []Component) error {
	live := es[:0:0]
	for _, e := range es {
		if w.identities.alive(e) && w.metas[e.ID].table == nil {
			live = append(live, e)
		}
	}
	for _, c := range comps {
		if err := w.checkTarget("spawn", None, c.ck); err != nil {
			// The identities are already handed out; store them without
			// the relation so they stay consistent.
			w.place(live, w.root, nil)
			return err
		}
	}
	cks := make([]columnKey, len(comps))
	for i, c := range comps {
		cks[i] = c.ck
	}
	w.place(live, w.tableFor(newSignature(cks...)), comps)
	return nil
}

func (w *World) place(es []Entity, t *Table, comps []Component) {
	first := t.appendRows(es, comps)
	for i, e := range es {
		w.metas[e.ID] = entityMeta{table: t, row: first + i}
	}
}

func (w *World) placeMeta(e Entity, m entityMeta) {
	if int(e.ID) >= len(w.metas) {
		w.metas = append(w.metas, make([]entityMeta, int(e.ID)+1-len(w.metas))...)
	}
	w.metas[e.ID] = m
}

// Despawn removes e and every relation component targeting it.
func (w *World) Despawn(e Entity) error {
	return w.structural(operation{typ: opDespawn, entities: []Entity{e}},
		func() error {
			if !w.identities.alive(e) {
				return opError("despawn", e, ErrEntityNotAlive)
			}
			return nil
		},
		func() error { return w.despawnLocked(e) })
}

func (w *World) despawnLocked(e Entity) error {
	if !w.identities.alive(e) {
		return opError("despawn", e, ErrEntityNotAlive)
	}
	next := e.successor()
	if meta := w.metas[e.ID]; meta.table != nil {
		w.removeRow(meta.table, meta.row)
	}
	w.metas[e.ID] = entityMeta{}
	w.identities.recycle(next)
	w.unrelate(e)
	return nil
}

func (w *World) removeRow(t *Table, row int) {
	if moved, ok := t.removeRow(row); ok {
		w.metas[moved.ID].row = row
	}
}

// unrelate strips every relation component targeting e from its holders.
func (w *World) unrelate(target Entity) {
	key := Relation(target)
	for _, t := range slices.Clone(w.tables) {
		var stale []columnKey
		for _, ck := range t.signature {
			if ck.Key == key {
				stale = append(stale, ck)
			}
		}
		if len(stale) == 0 || t.Count() == 0 {
			continue
		}
		w.moveAll(t, w.tableFor(t.signature.without(stale...)))
	}
}

// moveAll migrates every row of src into dst.
func (w *World) moveAll(src, dst *Table) int {
	first := src.migrateAll(dst)
	for i, e := range dst.entities[first:] {
		w.metas[e.ID] = entityMeta{table: dst, row: first + i}
	}
	return first
}

// move migrates the row of e into dst and returns the new row.
func (w *World) move(e Entity, dst *Table) int {
	meta := w.metas[e.ID]
	row, moved, ok := meta.table.migrate(meta.row, dst)
	if ok {
		w.metas[moved.ID].row = meta.row
	}
	w.metas[e.ID] = entityMeta{table: dst, row: row}
	return row
}

// tableOf returns the table holding e, materializing a deferred spawn in
// the root table on demand.
func (w *World) tableOf(e Entity) *Table {
	meta := w.metas[e.ID]
	if meta.table == nil {
		w.place([]Entity{e}, w.root, nil)
		meta = w.metas[e.ID]
	}
	return meta.table
}

// checkTarget verifies that a relation key points at a live entity.
func (w *World) checkTarget(op string, e Entity, ck columnKey) error {
	if target, ok := ck.Key.Target(); ok && !w.identities.alive(target) {
		return componentError(op, e, ck, ErrEntityNotAlive)
	}
	return nil
}

func (w *World) addLocked(e Entity, c Component, mode AddPolicy) error {
	if !w.identities.alive(e) {
		return componentError("add", e, c.ck, ErrEntityNotAlive)
	}
	if err := w.checkTarget("add", e, c.ck); err != nil {
		return err
	}
	src := w.tableOf(e)
	if col := src.column(c.ck); col != nil {
		switch mode {
		case AddStrict:
			return componentError("add", e, c.ck, ErrComponentExists)
		case AddReplace:
			c.write(col, w.metas[e.ID].row)
		}
		return nil
	}
	row := w.move(e, w.tableFor(src.signature.with(c.ck)))
	c.write(w.metas[e.ID].table.column(c.ck), row)
	return nil
}

func (w *World) removeLocked(e Entity, ck columnKey) error {
	if !w.identities.alive(e) {
		return componentError("remove", e, ck, ErrEntityNotAlive)
	}
	src := w.tableOf(e)
	if !src.signature.contains(ck) {
		return componentError("remove", e, ck, ErrComponentMissing)
	}
	w.move(e, w.tableFor(src.signature.without(ck)))
	return nil
}

// structural runs fn under the world lock, or queues op when a read-scope
// is open. validate runs in both cases before anything changes.
func (w *World) structural(op operation, validate func() error, fn func() error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return opError(op.typ.String(), None, ErrWorldClosed)
	}
	if validate != nil {
		if err := validate(); err != nil {
			return err
		}
	}
	if w.readers > 0 {
		w.deferred.enqueue(op)
		return nil
	}
	return fn()
}

// tableFor returns the table of sig, creating it when missing.
func (w *World) tableFor(sig Signature) *Table {
	id := sig.id()
	if t, ok := w.bySig[id]; ok {
		return t
	}
	capacity := 0
	if len(sig) == 0 {
		capacity = w.cfg.InitialCapacity
	}
	t := newTable(w, len(w.tables), sig, capacity)
	w.tables = append(w.tables, t)
	w.bySig[id] = t
	w.logger.Debug("table created", zap.Int("table", t.index), zap.Stringer("signature", sig))
	Publish(&w.bus, TableCreated{Table: t})
	return t
}

// Lock opens a read-scope. Structural changes made until the returned lock
// is released are applied, in order, when the last scope closes.
func (w *World) Lock() *WorldLock {
	w.enter()
	return &WorldLock{world: w}
}

// WorldLock is an open read-scope.
type WorldLock struct {
	world    *World
	released bool
}

// Unlock closes the scope. When it was the last open scope, deferred
// operations are applied and their joined errors returned.
func (l *WorldLock) Unlock() error {
	if l.released {
		return nil
	}
	l.released = true
	return l.world.leave()
}

func (w *World) enter() {
	w.mu.Lock()
	w.readers++
	w.mu.Unlock()
}

func (w *World) leave() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.readers--
	if w.readers > 0 || w.deferred.len() == 0 {
		return nil
	}
	if w.closed {
		w.deferred.drain()
		return opError("catch up", None, ErrWorldClosed)
	}
	return w.catchUp()
}

// scoped runs fn inside a read-scope and joins the catch-up error with the
// error of fn. The scope is closed even when fn panics.
func (w *World) scoped(fn func() error) (err error) {
	w.enter()
	defer func() {
		err = errors.Join(err, w.leave())
	}()
	return fn()
}
