// Package worker provides a small tomb-supervised worker pool, used by
// the optional TCP gateway (internal/net) to read client connections
// concurrently. It has no relationship to the deterministic, single
// threaded simulation core in internal/book and internal/sim.
package worker

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 100

// Function is the unit of work a Pool dispatches to its workers.
type Function func(t *tomb.Tomb, task any) error

// Pool is a fixed-size pool of goroutines pulling tasks off a shared
// channel, supervised by a tomb so they all exit cleanly on shutdown.
type Pool struct {
	size int
	work Function
	task chan any
}

// NewPool builds a pool of the given size. Call Setup to start it.
func NewPool(size int) Pool {
	return Pool{size: size, task: make(chan any, taskChanSize)}
}

// AddTask enqueues a unit of work for the next free worker.
func (p *Pool) AddTask(task any) {
	p.task <- task
}

// Setup starts size worker goroutines under t, each running work until
// t dies.
func (p *Pool) Setup(t *tomb.Tomb, work Function) {
	p.work = work
	log.Info().Int("workers", p.size).Msg("starting worker pool")
	for i := 0; i < p.size; i++ {
		t.Go(func() error {
			return p.loop(t)
		})
	}
}

func (p *Pool) loop(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-p.task:
			if err := p.work(t, task); err != nil {
				log.Error().Err(err).Msg("worker exiting")
				return err
			}
		}
	}
}
