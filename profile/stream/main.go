// Profiling:
// go build ./profile/stream
// ./stream -mode job
// go tool pprof -http=":8000" -nodefraction=0.001 ./stream cpu.pprof

package main

import (
	"flag"
	"log"

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

type comp3 struct {
	V int64
	W int64
}

func main() {
	mode := flag.String("mode", "for", "iteration protocol: for, iterate, raw, job or bulk")
	mem := flag.Bool("mem", false, "profile allocations instead of CPU")
	flag.Parse()

	count := 50
	iters := 1000
	entities := 100000

	opts := []func(*profile.Profile){profile.ProfilePath("."), profile.NoShutdownHook}
	if *mem {
		opts = append(opts, profile.MemProfileAllocs)
	} else {
		opts = append(opts, profile.CPUProfile)
	}
	p := profile.Start(opts...)
	if err := run(*mode, count, iters, entities); err != nil {
		log.Fatal(err)
	}
	p.Stop()
}

func run(mode string, rounds, iters, numEntities int) error {
	for range rounds {
		w := kura.NewWorld(kura.WithInitialCapacity(numEntities))
		if _, err := w.SpawnN(numEntities, kura.Value(comp1{}), kura.Value(comp2{V: 1, W: 2}), kura.Value(comp3{V: 3, W: 4})); err != nil {
			return err
		}
		stream := kura.NewStream3[comp1, comp2, comp3](w, kura.Plain, kura.Plain, kura.Plain)
		step := func(_ kura.Entity, a *comp1, b *comp2, c *comp3) {
			a.V += b.V + c.V
			a.W += b.W + c.W
		}

		for range iters {
			var err error
			switch mode {
			case "iterate":
				for e, row := range stream.Iterate() {
					step(e, row.A, row.B, row.C)
				}
			case "raw":
				err = stream.Raw(func(es []kura.Entity, a []comp1, b []comp2, c []comp3) {
					for i := range es {
						step(es[i], &a[i], &b[i], &c[i])
					}
				})
			case "job":
				err = stream.Job(step)
			case "bulk":
				err = kura.AccumulateInto[int64](stream)
			default:
				err = stream.For(step)
			}
			if err != nil {
				return err
			}
		}
		w.Close()
	}
	return nil
}
