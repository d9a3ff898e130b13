package kura_test

import (
	"fmt"
	"testing"

	"github.com/edwinsyarief/kura"
)

func benchSizes() []int {
	return []int{1000, 10000, 100000}
}

func BenchmarkSpawnN(b *testing.B) {
	for _, size := range benchSizes() {
		b.Run(fmt.Sprintf("%dK", size/1000), func(b *testing.B) {
			for b.Loop() {
				b.StopTimer()
				w := kura.NewWorld(kura.WithInitialCapacity(size))
				b.StartTimer()
				_, _ = w.SpawnN(size, kura.Value(Position{}), kura.Value(Velocity{X: 1}))
				b.StopTimer()
				w.Close()
				b.StartTimer()
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkStream(b *testing.B) {
	for _, size := range benchSizes() {
		w := kura.NewWorld(kura.WithInitialCapacity(size))
		_, _ = w.SpawnN(size, kura.Value(Position{}), kura.Value(Velocity{X: 1, Y: 1}))
		s := kura.NewStream2[Position, Velocity](w, kura.Plain, kura.Plain)
		step := func(_ kura.Entity, p *Position, v *Velocity) {
			p.X += v.X
			p.Y += v.Y
		}
		name := fmt.Sprintf("%dK", size/1000)

		b.Run("For/"+name, func(b *testing.B) {
			for b.Loop() {
				_ = s.For(step)
			}
			b.ReportAllocs()
		})
		b.Run("Iterate/"+name, func(b *testing.B) {
			for b.Loop() {
				for e, row := range s.Iterate() {
					step(e, row.A, row.B)
				}
			}
			b.ReportAllocs()
		})
		b.Run("Raw/"+name, func(b *testing.B) {
			for b.Loop() {
				_ = s.Raw(func(es []kura.Entity, ps []Position, vs []Velocity) {
					for i := range es {
						ps[i].X += vs[i].X
						ps[i].Y += vs[i].Y
					}
				})
			}
			b.ReportAllocs()
		})
		b.Run("Job/"+name, func(b *testing.B) {
			for b.Loop() {
				_ = s.Job(step)
			}
			b.ReportAllocs()
		})
		b.Run("AddInto/"+name, func(b *testing.B) {
			for b.Loop() {
				_ = kura.AddInto[float64](s)
			}
			b.ReportAllocs()
		})
		w.Close()
	}
}
