package kura_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edwinsyarief/kura"
)

type Damageable interface {
	Damage(n int)
}

type Armor struct{ Points int }

func (a Armor) Damage(int) {}

type Shield struct{ Points int }

func (s Shield) Damage(int) {}

// go test -run ^TestQueryIsCached$ . -count 1
func TestQueryIsCached(t *testing.T) {
	w := kura.NewWorld()
	defer w.Close()

	q1 := w.Query(kura.Has[Position](kura.Plain), kura.Has[Velocity](kura.Plain), kura.Not[Tag](kura.Any))
	q2 := w.Query(kura.Not[Tag](kura.Any), kura.Has[Velocity](kura.Plain), kura.Has[Position](kura.Plain), kura.Has[Velocity](kura.Plain))
	require.Same(t, q1, q2)
	require.Same(t, w, q1.World())

	q3 := w.Query(kura.Has[Position](kura.Plain), kura.Has[Velocity](kura.Any))
	require.NotSame(t, q1, q3)
	require.Equal(t, 2, w.Stats().Queries)
}

// go test -run ^TestQueryCacheGrowsWithTables$ . -count 1
func TestQueryCacheGrowsWithTables(t *testing.T) {
	w := kura.NewWorld()
	defer w.Close()

	_, _ = w.SpawnN(3, kura.Value(Position{}))
	q := w.Query(kura.Has[Position](kura.Plain))
	require.Len(t, q.Tables(), 1)
	require.Equal(t, 3, q.Count())

	_, _ = w.SpawnN(2, kura.Value(Position{}), kura.Value(Velocity{}))
	_, _ = w.SpawnN(4, kura.Value(Velocity{}))
	require.Len(t, q.Tables(), 2)
	require.Equal(t, 5, q.Count())
	require.Len(t, q.Entities(), 5)
}

// go test -run ^TestQueryTerms$ . -count 1
func TestQueryTerms(t *testing.T) {
	w := kura.NewWorld()
	defer w.Close()

	p, _ := w.SpawnN(1, kura.Value(Position{}))
	pv, _ := w.SpawnN(2, kura.Value(Position{}), kura.Value(Velocity{}))
	pt, _ := w.SpawnN(3, kura.Value(Position{}), kura.Value(Tag{}))
	h, _ := w.SpawnN(4, kura.Value(Health{}))

	require.Equal(t, 6, w.Query(kura.Has[Position](kura.Plain)).Count())
	require.Equal(t, 3, w.Query(kura.Has[Position](kura.Plain), kura.Not[Tag](kura.Plain)).Count())
	require.Equal(t, 6, w.Query(kura.AnyOf[Velocity](kura.Plain), kura.AnyOf[Health](kura.Plain)).Count())
	require.Equal(t, 2, w.Query(kura.Has[Position](kura.Plain), kura.AnyOf[Velocity](kura.Plain), kura.AnyOf[Health](kura.Plain)).Count())
	require.Equal(t, 10, w.Query().Count())

	q := w.Query(kura.Has[Position](kura.Plain), kura.Not[Velocity](kura.Any))
	require.True(t, q.Contains(p[0]))
	require.True(t, q.Contains(pt[0]))
	require.False(t, q.Contains(pv[0]))
	require.False(t, q.Contains(h[0]))
	require.False(t, q.Contains(kura.None))
}

// go test -run ^TestQueryWildcardKeys$ . -count 1
func TestQueryWildcardKeys(t *testing.T) {
	w := kura.NewWorld()
	defer w.Close()

	target, _ := w.Spawn()
	owner := &Owner{}
	e, err := w.Spawn(
		kura.Value(Health{HP: 1}),
		kura.Keyed(Health{HP: 2}, kura.Relation(target)),
		kura.Keyed(Health{HP: 3}, kura.Link(owner)))
	require.NoError(t, err)

	count := func(m kura.Matcher) (rows int) {
		require.NoError(t, kura.NewStream1[Health](w, m).For(func(got kura.Entity, _ *Health) {
			require.Equal(t, e, got)
			rows++
		}))
		return rows
	}
	require.Equal(t, 3, count(kura.Any))
	require.Equal(t, 1, count(kura.Plain))
	require.Equal(t, 1, count(kura.AnyRelation))
	require.Equal(t, 1, count(kura.AnyLink))
	require.Equal(t, 1, count(kura.Relation(target)))
	require.Equal(t, 1, count(kura.Exactly(kura.Link(owner))))
	require.Equal(t, 0, count(kura.Relation(e)))

	// Count reports entities, not column combinations.
	require.Equal(t, 1, kura.NewStream1[Health](w, kura.Any).Count())
	require.Equal(t, 1, w.Query(kura.Has[Health](kura.AnyRelation)).Count())
	require.Equal(t, 1, w.Query(kura.HasAny(kura.Relation(target))).Count())
	require.Equal(t, 0, w.Query(kura.Has[Health](kura.Any), kura.Not[Health](kura.AnyLink)).Count())
}

// go test -run ^TestQueryWildcardKeysAcrossEntities$ . -count 1
func TestQueryWildcardKeysAcrossEntities(t *testing.T) {
	w := kura.NewWorld()
	defer w.Close()

	target, _ := w.Spawn()
	plain, _ := w.Spawn(kura.Value(Health{HP: 1}))
	related, _ := w.Spawn(kura.Keyed(Health{HP: 2}, kura.Relation(target)))
	linked, _ := w.Spawn(kura.Keyed(Health{HP: 3}, kura.Link(&Owner{})))

	entitiesOf := func(m kura.Matcher) []kura.Entity {
		var es []kura.Entity
		require.NoError(t, kura.NewStream1[Health](w, m).For(func(e kura.Entity, _ *Health) {
			es = append(es, e)
		}))
		return es
	}
	require.ElementsMatch(t, []kura.Entity{plain, related, linked}, entitiesOf(kura.Any))
	require.Equal(t, []kura.Entity{plain}, entitiesOf(kura.Plain))
	require.Equal(t, []kura.Entity{related}, entitiesOf(kura.AnyRelation))
	require.Equal(t, []kura.Entity{linked}, entitiesOf(kura.AnyLink))

	require.Equal(t, 3, w.Query(kura.Has[Health](kura.Any)).Count())
	require.Equal(t, 1, w.Query(kura.Has[Health](kura.Plain)).Count())
	require.Equal(t, 1, w.Query(kura.Has[Health](kura.AnyRelation)).Count())
	require.Equal(t, 3, kura.NewStream1[Health](w, kura.Any).Count())
}

// go test -run ^TestQueryInterfaceTerms$ . -count 1
func TestQueryInterfaceTerms(t *testing.T) {
	w := kura.NewWorld()
	defer w.Close()

	_, _ = w.SpawnN(2, kura.Value(Armor{Points: 1}))
	_, _ = w.SpawnN(3, kura.Value(Position{}))
	q := w.Query(kura.Has[Damageable](kura.Any))
	require.Equal(t, 2, q.Count())

	// Shield registers after the query compiled.
	_, _ = w.SpawnN(4, kura.Value(Shield{Points: 1}), kura.Value(Position{}))
	require.Equal(t, 6, q.Count())
	require.Equal(t, 3, w.Query(kura.Has[Position](kura.Plain), kura.Not[Damageable](kura.Any)).Count())

	e, _ := w.Spawn(kura.Value(Armor{}))
	require.True(t, kura.HasComponent[Damageable](w, e, kura.Plain))
	require.False(t, kura.HasComponent[Shield](w, e, kura.Plain))
}

// go test -run ^TestQueryTruncate$ . -count 1
func TestQueryTruncate(t *testing.T) {
	w := kura.NewWorld()
	defer w.Close()

	first, _ := w.SpawnN(10, kura.Value(Position{}))
	second, _ := w.SpawnN(5, kura.Value(Position{}), kura.Value(Velocity{}))
	other, _ := w.SpawnN(2, kura.Value(Health{}))

	q := w.Query(kura.Has[Position](kura.Plain))
	require.NoError(t, q.Truncate(7))
	require.Equal(t, 7, q.Count())
	for i, e := range first {
		require.Equal(t, i < 7, w.Alive(e))
	}
	for _, e := range second {
		require.False(t, w.Alive(e))
	}
	for _, e := range other {
		require.True(t, w.Alive(e))
	}

	require.NoError(t, q.Truncate(100))
	require.Equal(t, 7, q.Count())
	require.NoError(t, q.Truncate(-1))
	require.Zero(t, q.Count())

	// Truncated identities are recycled.
	again, _ := w.Spawn(kura.Value(Tag{}))
	require.Equal(t, uint16(2), again.Generation)
}

// go test -run ^TestQueryTruncateDeferred$ . -count 1
func TestQueryTruncateDeferred(t *testing.T) {
	w := kura.NewWorld()
	defer w.Close()

	_, _ = w.SpawnN(6, kura.Value(Position{}))
	q := w.Query(kura.Has[Position](kura.Plain))
	l := w.Lock()
	require.NoError(t, q.Truncate(2))
	require.Equal(t, 6, q.Count())
	require.NoError(t, l.Unlock())
	require.Equal(t, 2, q.Count())
}

// go test -run ^TestQueryDespawn$ . -count 1
func TestQueryDespawn(t *testing.T) {
	w := kura.NewWorld()
	defer w.Close()

	target, _ := w.Spawn(kura.Value(Tag{}))
	es, _ := w.SpawnN(8, kura.Value(Position{}))
	holder, _ := w.Spawn(kura.Value(Health{}), kura.Keyed(Likes{}, kura.Relation(target)))

	require.NoError(t, w.Query(kura.Has[Tag](kura.Plain)).Despawn())
	require.False(t, w.Alive(target))
	require.Empty(t, kura.Relations[Likes](w, holder))

	q := w.Query(kura.Has[Position](kura.Plain))
	require.NoError(t, q.Despawn())
	require.Zero(t, q.Count())
	for _, e := range es {
		require.False(t, w.Alive(e))
	}
	require.True(t, w.Alive(holder))
}
