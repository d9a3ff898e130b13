// Profiling:
// go build ./profile/entities
// go tool pprof -http=":8000" -nodefraction=0.001 ./entities mem.pprof

package main

import (
	"github.com/edwinsyarief/kura"
	"github.com/pkg/profile"
)

type comp1 struct {
	V int64
	W int64
}

type comp2 struct {
	V int64
	W int64
}

func main() {
	count := 50
	iters := 1000
	entities := 1000
	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(count, iters, entities)
	p.Stop()
}

func run(rounds, iters, numEntities int) {
	for range rounds {
		w := kura.NewWorld(kura.WithInitialCapacity(numEntities))
		stream := kura.NewStream2[comp1, comp2](w, kura.Plain, kura.Plain)

		for range iters {
			if _, err := w.SpawnN(numEntities, kura.Value(comp1{}), kura.Value(comp2{V: 1, W: 1})); err != nil {
				panic(err)
			}
			entities := make([]kura.Entity, 0, numEntities)
			for e, row := range stream.Iterate() {
				entities = append(entities, e)
				row.A.V += row.B.V
				row.A.W += row.B.W
			}
			for _, e := range entities {
				if err := w.Despawn(e); err != nil {
					panic(err)
				}
			}
		}
		w.Close()
	}
}
