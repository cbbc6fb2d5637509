package scheduler

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/UnSetSoft/ToriDB/internal/metrics"
	"github.com/UnSetSoft/ToriDB/internal/registry"
)

// Checkpointer snapshots a named database to disk and truncates its log,
// the subset of *dispatcher.Dispatcher's surface the periodic checkpoint
// tick needs.
type Checkpointer interface {
	Checkpoint(dbName string) error
}

// Ticker drives the periodic background work a running engine needs
// beyond request-driven command execution: sweeping lazily-missed
// expired keyspace entries (spec's "reaped on next access or by periodic
// sweep") and checkpointing every open database's log to a snapshot so
// restart replay stays bounded.
type Ticker struct {
	cron *cron.Cron
	reg  *registry.Registry
	ckpt Checkpointer
}

// NewTicker creates a Ticker over reg's databases, checkpointing through
// ckpt. Call Start to schedule and begin running its ticks.
func NewTicker(reg *registry.Registry, ckpt Checkpointer) *Ticker {
	return &Ticker{cron: cron.New(), reg: reg, ckpt: ckpt}
}

// Start schedules the sweep and checkpoint ticks at the given intervals
// and starts the underlying cron scheduler.
func (t *Ticker) Start(sweepEvery, checkpointEvery time.Duration) error {
	if _, err := t.cron.AddFunc(everySpec(sweepEvery), t.sweepAll); err != nil {
		return err
	}
	if _, err := t.cron.AddFunc(everySpec(checkpointEvery), t.checkpointAll); err != nil {
		return err
	}
	t.cron.Start()
	return nil
}

// Stop halts the cron scheduler and waits for any tick already in flight
// to finish.
func (t *Ticker) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
}

func everySpec(d time.Duration) string {
	return "@every " + d.String()
}

func (t *Ticker) sweepAll() {
	for _, name := range t.reg.Names() {
		db, err := t.reg.Get(name)
		if err != nil {
			continue
		}
		if n := db.Flex.Sweep(); n > 0 {
			metrics.KeysSweptTotal.Add(float64(n))
			log.Printf("scheduler: swept %d expired key(s) from %q", n, name)
		}
	}
}

func (t *Ticker) checkpointAll() {
	for _, name := range t.reg.Names() {
		if err := t.ckpt.Checkpoint(name); err != nil {
			metrics.CheckpointsTotal.WithLabelValues(name, "error").Inc()
			log.Printf("scheduler: checkpoint %q failed: %v", name, err)
			continue
		}
		metrics.CheckpointsTotal.WithLabelValues(name, "ok").Inc()
	}
}
