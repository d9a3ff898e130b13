package kura_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edwinsyarief/kura"
)

// batchWorld holds 3 entities with Position only and 2 with Position and
// Velocity{X: 5}.
func batchWorld(t *testing.T) (*kura.World, []kura.Entity, []kura.Entity) {
	t.Helper()
	w := kura.NewWorld()
	t.Cleanup(w.Close)
	bare, err := w.SpawnN(3, kura.Value(Position{}))
	require.NoError(t, err)
	moving, err := w.SpawnN(2, kura.Value(Position{}), kura.Value(Velocity{X: 5}))
	require.NoError(t, err)
	return w, bare, moving
}

func velocityOf(t *testing.T, w *kura.World, e kura.Entity) float64 {
	t.Helper()
	v, err := kura.GetComponent[Velocity](w, e, kura.Plain)
	require.NoError(t, err)
	return v.X
}

// go test -run ^TestBatchAddStrict$ . -count 1
func TestBatchAddStrict(t *testing.T) {
	w, bare, moving := batchWorld(t)

	q := w.Query(kura.Has[Position](kura.Plain))
	err := q.Batch(kura.AddStrict, kura.RemoveStrict).Add(kura.Value(Velocity{X: 1})).Submit()
	require.ErrorIs(t, err, kura.ErrComponentExists)
	// Nothing moved.
	for _, e := range bare {
		require.False(t, kura.HasComponent[Velocity](w, e, kura.Plain))
	}
	for _, e := range moving {
		require.Equal(t, 5.0, velocityOf(t, w, e))
	}

	q = w.Query(kura.Has[Position](kura.Plain), kura.Not[Velocity](kura.Plain))
	require.NoError(t, q.Batch(kura.AddStrict, kura.RemoveStrict).
		Add(kura.Value(Velocity{X: 1}), kura.Value(Tag{})).Submit())
	for _, e := range bare {
		require.Equal(t, 1.0, velocityOf(t, w, e))
		require.True(t, kura.HasComponent[Tag](w, e, kura.Plain))
	}
	require.Zero(t, q.Count())
}

// go test -run ^TestBatchAddPreserve$ . -count 1
func TestBatchAddPreserve(t *testing.T) {
	w, bare, moving := batchWorld(t)

	q := w.Query(kura.Has[Position](kura.Plain))
	require.NoError(t, q.Batch(kura.AddPreserve, kura.RemoveStrict).Add(kura.Value(Velocity{X: 1})).Submit())
	for _, e := range bare {
		require.Equal(t, 1.0, velocityOf(t, w, e))
	}
	for _, e := range moving {
		require.Equal(t, 5.0, velocityOf(t, w, e))
	}
}

// go test -run ^TestBatchAddReplace$ . -count 1
func TestBatchAddReplace(t *testing.T) {
	w, bare, moving := batchWorld(t)

	q := w.Query(kura.Has[Position](kura.Plain))
	require.NoError(t, q.Batch(kura.AddReplace, kura.RemoveStrict).Add(kura.Value(Velocity{X: 1})).Submit())
	for _, e := range append(bare, moving...) {
		require.Equal(t, 1.0, velocityOf(t, w, e))
	}
	require.Equal(t, 5, w.Query(kura.Has[Velocity](kura.Plain)).Count())
}

// go test -run ^TestBatchRemove$ . -count 1
func TestBatchRemove(t *testing.T) {
	w, bare, moving := batchWorld(t)
	q := w.Query(kura.Has[Position](kura.Plain))

	b := kura.BatchRemove[Velocity](q.Batch(kura.AddStrict, kura.RemoveStrict), kura.Plain)
	require.ErrorIs(t, b.Submit(), kura.ErrComponentMissing)
	for _, e := range moving {
		require.True(t, kura.HasComponent[Velocity](w, e, kura.Plain))
	}

	b = kura.BatchRemove[Velocity](q.Batch(kura.AddStrict, kura.RemoveAllow), kura.Plain)
	require.NoError(t, b.Submit())
	for _, e := range append(bare, moving...) {
		require.False(t, kura.HasComponent[Velocity](w, e, kura.Plain))
		require.True(t, w.Alive(e))
	}
}

// go test -run ^TestBatchRejectsConflicts$ . -count 1
func TestBatchRejectsConflicts(t *testing.T) {
	w, _, _ := batchWorld(t)
	q := w.Query(kura.Has[Position](kura.Plain))

	b := q.Batch(kura.AddReplace, kura.RemoveAllow).Add(kura.Value(Velocity{}), kura.Value(Velocity{}))
	require.ErrorIs(t, b.Submit(), kura.ErrComponentExists)

	b = kura.BatchRemove[Velocity](q.Batch(kura.AddReplace, kura.RemoveAllow).Add(kura.Value(Velocity{})), kura.Plain)
	require.ErrorIs(t, b.Submit(), kura.ErrComponentExists)

	dead, _ := w.Spawn()
	require.NoError(t, w.Despawn(dead))
	b = q.Batch(kura.AddStrict, kura.RemoveAllow).Add(kura.Keyed(Likes{}, kura.Relation(dead)))
	require.ErrorIs(t, b.Submit(), kura.ErrEntityNotAlive)
}

// go test -run ^TestBatchDeferred$ . -count 1
func TestBatchDeferred(t *testing.T) {
	w, bare, _ := batchWorld(t)
	q := w.Query(kura.Has[Position](kura.Plain), kura.Not[Velocity](kura.Plain))

	l := w.Lock()
	b := q.Batch(kura.AddStrict, kura.RemoveStrict).Add(kura.Value(Velocity{X: 3}))
	require.NoError(t, b.Submit())
	// Spawned after Submit: not a target.
	late, err := w.Spawn(kura.Value(Position{}))
	require.NoError(t, err)
	// Reusing the builder does not change the queued batch.
	b.Add(kura.Value(Tag{}))
	require.NoError(t, l.Unlock())

	for _, e := range bare {
		require.Equal(t, 3.0, velocityOf(t, w, e))
		require.False(t, kura.HasComponent[Tag](w, e, kura.Plain))
	}
	require.False(t, kura.HasComponent[Velocity](w, late, kura.Plain))
}
