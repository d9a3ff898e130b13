package kura

import "slices"

// AddPolicy decides what adding a component an entity already holds does.
type AddPolicy uint8

const (
	// AddStrict fails with ErrComponentExists.
	AddStrict AddPolicy = iota
	// AddPreserve keeps the value the entity holds.
	AddPreserve
	// AddReplace overwrites the value the entity holds.
	AddReplace
)

// RemovePolicy decides what removing a component an entity does not hold
// does.
type RemovePolicy uint8

const (
	// RemoveStrict fails with ErrComponentMissing.
	RemoveStrict RemovePolicy = iota
	// RemoveAllow skips the entity.
	RemoveAllow
)

// Batch collects component additions and removals applied to every entity a
// query matches in one Submit. Entities of a table move together, so a batch
// costs one migration per table rather than one per entity.
type Batch struct {
	query   *Query
	adds    []Component
	removes []columnKey
	add     AddPolicy
	remove  RemovePolicy
}

// Batch starts a batch over the entities matched by q.
func (q *Query) Batch(add AddPolicy, remove RemovePolicy) *Batch {
	return &Batch{query: q, add: add, remove: remove}
}

// Add schedules comps to be added to every target entity.
func (b *Batch) Add(comps ...Component) *Batch {
	b.adds = append(b.adds, comps...)
	return b
}

// BatchRemove schedules the removal of the T stored under key.
func BatchRemove[T any](b *Batch, key Key) *Batch {
	b.removes = append(b.removes, columnKey{Type: TypeFor[T](), Key: key})
	return b
}

// Submit applies the batch to the entities the query matches now. Every
// target table is validated before any entity moves, so a policy violation
// leaves the world unchanged. Inside a read-scope the batch is deferred
// with the target entities captured at this call.
func (b *Batch) Submit() error {
	w := b.query.world
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return opError("batch", None, ErrWorldClosed)
	}
	for i, c := range b.adds {
		if slices.Contains(b.removes, c.ck) || slices.ContainsFunc(b.adds[:i], func(p Component) bool { return p.ck == c.ck }) {
			return componentError("batch", None, c.ck, ErrComponentExists)
		}
		if err := w.checkTarget("batch", None, c.ck); err != nil {
			return err
		}
	}
	targets := b.query.entities()
	if w.readers > 0 {
		frozen := &Batch{
			query:   b.query,
			adds:    slices.Clone(b.adds),
			removes: slices.Clone(b.removes),
			add:     b.add,
			remove:  b.remove,
		}
		w.deferred.enqueue(operation{typ: opBatch, entities: targets, batch: frozen})
		return nil
	}
	return b.applyLocked(targets)
}

// batchGroup is the part of a batch landing in one source table.
type batchGroup struct {
	src      *Table
	dst      Signature
	entities []Entity
	write    []bool // per add: whether the value is written
}

func (b *Batch) applyLocked(targets []Entity) error {
	w := b.query.world
	var groups []*batchGroup
	bySrc := make(map[*Table]*batchGroup)
	for _, e := range targets {
		if !w.identities.alive(e) {
			continue
		}
		src := w.tableOf(e)
		g, ok := bySrc[src]
		if !ok {
			g = &batchGroup{src: src}
			bySrc[src] = g
			groups = append(groups, g)
		}
		g.entities = append(g.entities, e)
	}

	for _, g := range groups {
		sig := g.src.signature
		for _, ck := range b.removes {
			if !sig.contains(ck) {
				if b.remove == RemoveStrict {
					return componentError("batch remove", g.entities[0], ck, ErrComponentMissing)
				}
				continue
			}
			sig = sig.without(ck)
		}
		g.write = make([]bool, len(b.adds))
		var added []columnKey
		for i, c := range b.adds {
			if sig.contains(c.ck) {
				switch b.add {
				case AddStrict:
					return componentError("batch add", g.entities[0], c.ck, ErrComponentExists)
				case AddReplace:
					g.write[i] = true
				}
				continue
			}
			added = append(added, c.ck)
			g.write[i] = true
		}
		g.dst = sig.with(added...)
	}

	for _, g := range groups {
		dst := w.tableFor(g.dst)
		if dst != g.src {
			if len(g.entities) == g.src.Count() {
				w.moveAll(g.src, dst)
			} else {
				for _, e := range g.entities {
					w.move(e, dst)
				}
			}
		}
		for i, c := range b.adds {
			if !g.write[i] {
				continue
			}
			col := dst.column(c.ck)
			for _, e := range g.entities {
				c.write(col, w.metas[e.ID].row)
			}
		}
	}
	return nil
}
