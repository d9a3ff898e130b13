package kura

// storage is the type-erased view of a column that tables use to move rows
// between each other without knowing the component type.
type storage interface {
	columnKey() columnKey
	len() int
	// grow appends n zero values.
	grow(n int)
	// appendFrom appends row of src, which must store the same type.
	appendFrom(src storage, row int)
	// appendAll appends every row of src, which must store the same type.
	appendAll(src storage)
	// swapRemove moves the last value into row and shrinks by one.
	swapRemove(row int)
	// truncate drops every row from n on.
	truncate(n int)
}

// column is the dense storage of one (type, key) pair in a table.
type column[T any] struct {
	data []T
	key  columnKey
}

func newColumn[T any](id TypeID, k Key) *column[T] {
	return &column[T]{key: columnKey{Type: id, Key: k}}
}

func (c *column[T]) columnKey() columnKey { return c.key }

func (c *column[T]) len() int { return len(c.data) }

func (c *column[T]) grow(n int) {
	c.data = append(c.data, make([]T, n)...)
}

func (c *column[T]) appendFrom(src storage, row int) {
	c.data = append(c.data, src.(*column[T]).data[row])
}

func (c *column[T]) appendAll(src storage) {
	c.data = append(c.data, src.(*column[T]).data...)
}

func (c *column[T]) swapRemove(row int) {
	last := len(c.data) - 1
	if row != last {
		c.data[row] = c.data[last]
	}
	var zero T
	c.data[last] = zero
	c.data = c.data[:last]
}

func (c *column[T]) truncate(n int) {
	clear(c.data[n:])
	c.data = c.data[:n]
}

func (c *column[T]) fill(v T) {
	for i := range c.data {
		c.data[i] = v
	}
}

// Component is a typed value bound to its key, ready to be stored by Spawn
// or SpawnN.
type Component struct {
	write func(s storage, row int)
	ck    columnKey
}

// Value returns a Plain component holding v.
func Value[T any](v T) Component {
	return Keyed(v, Plain)
}

// Keyed returns a component holding v under key.
func Keyed[T any](v T, key Key) Component {
	return Component{
		ck: columnKey{Type: TypeFor[T](), Key: key},
		write: func(s storage, row int) {
			s.(*column[T]).data[row] = v
		},
	}
}

// Type returns the TypeID of the component value.
func (c Component) Type() TypeID {
	return c.ck.Type
}

// Key returns the key the component is stored under.
func (c Component) Key() Key {
	return c.ck.Key
}
