package kura

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type operationType int

const (
	opSpawn operationType = iota
	opDespawn
	opAddComponent
	opRemoveComponent
	opBatch
)

func (t operationType) String() string {
	switch t {
	case opSpawn:
		return "spawn"
	case opDespawn:
		return "despawn"
	case opAddComponent:
		return "add"
	case opRemoveComponent:
		return "remove"
	case opBatch:
		return "batch"
	}
	return "unknown"
}

// operation is a structural change recorded while a read-scope is open.
type operation struct {
	entities []Entity
	comps    []Component
	batch    *Batch
	ck       columnKey
	typ      operationType
	mode     AddPolicy
}

// opQueue keeps deferred operations in submission order.
type opQueue struct {
	ops []operation
}

func (q *opQueue) enqueue(op operation) {
	q.ops = append(q.ops, op)
}

func (q *opQueue) len() int {
	return len(q.ops)
}

func (q *opQueue) drain() []operation {
	ops := q.ops
	q.ops = nil
	return ops
}

// catchUp applies every deferred operation in order. The caller holds the
// world lock and no read-scope is open. Every operation is attempted; the
// failures are joined.
func (w *World) catchUp() error {
	var errs []error
	applied := 0
	for _, op := range w.deferred.drain() {
		if err := w.applyOperation(op); err != nil {
			errs = append(errs, fmt.Errorf("deferred %s: %w", op.typ, err))
		}
		applied++
	}
	err := errors.Join(errs...)
	if err != nil {
		w.logger.Warn("deferred operations failed",
			zap.Int("applied", applied), zap.Int("failed", len(errs)), zap.Error(err))
	} else {
		w.logger.Debug("deferred operations applied", zap.Int("applied", applied))
	}
	return err
}

func (w *World) applyOperation(op operation) error {
	switch op.typ {
	case opSpawn:
		return w.materializeLocked(op.entities, op.comps)
	case opDespawn:
		var errs []error
		for _, e := range op.entities {
			if err := w.despawnLocked(e); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	case opAddComponent:
		return w.addLocked(op.entities[0], op.comps[0], op.mode)
	case opRemoveComponent:
		return w.removeLocked(op.entities[0], op.ck)
	case opBatch:
		return op.batch.applyLocked(op.entities)
	}
	return nil
}
