// Package kura implements an archetype-based entity component store with
// typed, keyed components and several iteration protocols.
//
// Features:
//   - Generational entity handles that never alias recycled indices.
//   - Components keyed by Plain, Relation(entity) or Link(object), so one
//     entity can hold several components of the same type.
//   - Dense columnar tables grouped by exact signature, compacted by
//     swap-remove.
//   - Cached queries with required, any-of and excluded terms, including
//     wildcard and interface-typed terms.
//   - Streams iterated sequentially (For), lazily (Iterate), per table (Raw)
//     or in parallel chunks (Job).
//   - Batched structural changes and wide numeric kernels over unmanaged
//     columns.
//
// A minimal program:
//
//	w := kura.NewWorld()
//	e, _ := w.Spawn(kura.Value(Position{}), kura.Value(Velocity{X: 1}))
//	s := kura.NewStream2[Position, Velocity](w, kura.Plain, kura.Plain)
//	_ = s.For(func(_ kura.Entity, p *Position, v *Velocity) {
//		p.X += v.X
//	})
package kura
