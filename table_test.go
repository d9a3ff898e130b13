package kura

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testHealth struct{ HP int }

func plainKey[T any]() columnKey {
	return columnKey{Type: TypeFor[T](), Key: Plain}
}

func entities(ids ...uint32) []Entity {
	out := make([]Entity, len(ids))
	for i, id := range ids {
		out[i] = Entity{ID: id, Generation: 1}
	}
	return out
}

func healthColumn(t *Table) []testHealth {
	return t.column(plainKey[testHealth]()).(*column[testHealth]).data
}

// go test -run ^TestTableSwapRemove$ . -count 1
func TestTableSwapRemove(t *testing.T) {
	tbl := newTable(nil, 0, newSignature(plainKey[testHealth]()), 0)
	for i := range 5 {
		tbl.appendRows(entities(uint32(i)), []Component{Value(testHealth{HP: i})})
	}
	require.Equal(t, 5, tbl.Count())
	v := tbl.Version()

	moved, ok := tbl.removeRow(2)
	require.True(t, ok)
	require.Equal(t, uint32(4), moved.ID)
	require.Equal(t, []testHealth{{0}, {1}, {4}, {3}}, healthColumn(tbl))
	require.Equal(t, entities(0, 1, 4, 3), tbl.Entities())
	require.Greater(t, tbl.Version(), v)

	_, ok = tbl.removeRow(3)
	require.False(t, ok, "removing the last row moves nothing")
	require.Equal(t, 3, tbl.Count())

	require.Panics(t, func() { tbl.removeRow(3) })
	require.Panics(t, func() { tbl.removeRow(-1) })
}

// go test -run ^TestTableMigrate$ . -count 1
func TestTableMigrate(t *testing.T) {
	src := newTable(nil, 0, newSignature(plainKey[testHealth]()), 0)
	dst := newTable(nil, 1, newSignature(plainKey[testHealth](), plainKey[testPosition]()), 0)
	src.appendRows(entities(1, 2), []Component{Value(testHealth{HP: 7})})

	row, moved, ok := src.migrate(0, dst)
	require.Equal(t, 0, row)
	require.True(t, ok)
	require.Equal(t, uint32(2), moved.ID)
	require.Equal(t, []testHealth{{7}}, healthColumn(dst))
	pos := dst.column(plainKey[testPosition]()).(*column[testPosition]).data
	require.Equal(t, []testPosition{{}}, pos)

	first := src.migrateAll(dst)
	require.Equal(t, 1, first)
	require.Equal(t, 0, src.Count())
	require.Equal(t, entities(1, 2), dst.Entities())
}

// go test -run ^TestTableTruncate$ . -count 1
func TestTableTruncate(t *testing.T) {
	tbl := newTable(nil, 0, newSignature(plainKey[testHealth]()), 0)
	tbl.appendRows(entities(1, 2, 3, 4), nil)

	require.Nil(t, tbl.truncate(10))
	dropped := tbl.truncate(1)
	require.Equal(t, entities(2, 3, 4), dropped)
	require.Equal(t, 1, tbl.Count())
	require.Len(t, healthColumn(tbl), 1)
}

// go test -run ^TestTableCrossJoin$ . -count 1
func TestTableCrossJoin(t *testing.T) {
	a, b := Entity{ID: 100, Generation: 1}, Entity{ID: 200, Generation: 1}
	hp := TypeFor[testHealth]()
	pos := TypeFor[testPosition]()
	sig := newSignature(
		columnKey{Type: hp, Key: Plain},
		columnKey{Type: hp, Key: Relation(a)},
		columnKey{Type: hp, Key: Relation(b)},
		columnKey{Type: pos, Key: Plain},
	)
	tbl := newTable(nil, 0, sig, 0)

	count := func(shape ...TypeExpr) int {
		n := 0
		for range tbl.crossJoin(shape) {
			n++
		}
		return n
	}

	require.Equal(t, 3, count(TypeExpr{Type: hp, Match: Any}))
	require.Equal(t, 2, count(TypeExpr{Type: hp, Match: AnyRelation}))
	require.Equal(t, 1, count(TypeExpr{Type: hp, Match: Plain.match()}))
	require.Equal(t, 0, count(TypeExpr{Type: hp, Match: AnyLink}))
	require.Equal(t, 6, count(TypeExpr{Type: hp, Match: Any}, TypeExpr{Type: pos, Match: Any}, TypeExpr{Type: hp, Match: AnyRelation}))

	// Odometer order: the last expression varies fastest.
	var order [][2]Key
	for combo := range tbl.crossJoin([]TypeExpr{{Type: hp, Match: AnyRelation}, {Type: hp, Match: AnyRelation}}) {
		order = append(order, [2]Key{combo[0].columnKey().Key, combo[1].columnKey().Key})
	}
	require.Equal(t, [][2]Key{
		{Relation(a), Relation(a)},
		{Relation(a), Relation(b)},
		{Relation(b), Relation(a)},
		{Relation(b), Relation(b)},
	}, order)
}

// go test -run ^TestSignatureCanonical$ . -count 1
func TestSignatureCanonical(t *testing.T) {
	hp, pos := plainKey[testHealth](), plainKey[testPosition]()
	s1 := newSignature(pos, hp, pos)
	s2 := newSignature(hp, pos)
	require.Equal(t, s1.id(), s2.id())
	require.Len(t, s1, 2)

	s3 := s2.without(pos)
	require.Equal(t, newSignature(hp).id(), s3.id())
	require.True(t, s2.contains(pos))
	require.False(t, s3.contains(pos))
	require.Equal(t, s2.id(), s3.with(pos).id())
}
