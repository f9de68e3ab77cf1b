// Copyright 2026 The PlantGate Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/plantgate/plantgate/internal/config"
	"github.com/plantgate/plantgate/internal/observability/logger"
)

// Sink receives batches of audit events. Implementations must tolerate
// being called from a single background goroutine.
type Sink interface {
	Write(ctx context.Context, events []Event) error
}

// Recorder queues audit events and flushes them to a sink in batches.
// Record never blocks and never fails: a full queue drops the event and a
// failing sink is reported on the diagnostic log only. The decision path is
// therefore isolated from audit latency and audit outages.
type Recorder struct {
	cfg  config.AuditConfig
	sink Sink

	queue chan Event
	done  chan struct{}
	wg    sync.WaitGroup

	dropped      atomic.Uint64
	successCount atomic.Uint64
}

// NewRecorder creates a recorder and starts its background flusher.
func NewRecorder(cfg config.AuditConfig, sink Sink) *Recorder {
	r := &Recorder{
		cfg:   cfg,
		sink:  sink,
		queue: make(chan Event, cfg.QueueSize),
		done:  make(chan struct{}),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Record enqueues an event if the configured toggles and sampling keep it.
// Fire-and-forget: when the queue is full the event is dropped and counted.
func (r *Recorder) Record(ctx context.Context, event Event) {
	if !r.keep(event) {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.dropped.Add(1)
		slog.DebugContext(ctx, "audit queue full, dropping event",
			logger.Component("audit"),
			slog.String("category", event.Category),
		)
	}
}

// Dropped returns the number of events discarded due to a full queue.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Close stops the flusher after draining the queue and writing a final batch.
func (r *Recorder) Close() {
	close(r.done)
	r.wg.Wait()
}

func (r *Recorder) keep(event Event) bool {
	if !r.cfg.Enabled {
		return false
	}
	if event.Granted && !r.cfg.LogSuccess {
		return false
	}
	if !event.Granted && !r.cfg.LogFailed {
		return false
	}
	switch event.Category {
	case CategoryScreenAccess:
		if !r.cfg.ScreenAccess {
			return false
		}
	case CategoryDataAccess:
		if !r.cfg.DataAccess {
			return false
		}
	case CategoryPlantAccess:
		if !r.cfg.PlantAccess {
			return false
		}
	}
	// Sample granted events to bound volume; denials are never sampled away.
	if event.Granted && r.cfg.SuccessSampleRate > 1 {
		n := r.successCount.Add(1)
		if (n-1)%uint64(r.cfg.SuccessSampleRate) != 0 {
			return false
		}
	}
	return true
}

func (r *Recorder) run() {
	defer r.wg.Done()

	batch := make([]Event, 0, r.cfg.BatchSize)
	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-r.queue:
			batch = append(batch, event)
			if len(batch) >= r.cfg.BatchSize {
				batch = r.flush(batch)
			}
		case <-ticker.C:
			batch = r.flush(batch)
		case <-r.done:
			batch = r.drain(batch)
			r.flush(batch)
			return
		}
	}
}

// drain empties whatever is queued at shutdown, flushing full batches as it
// goes.
func (r *Recorder) drain(batch []Event) []Event {
	for {
		select {
		case event := <-r.queue:
			batch = append(batch, event)
			if len(batch) >= r.cfg.BatchSize {
				batch = r.flush(batch)
			}
		default:
			return batch
		}
	}
}

// flush writes the batch under the configured timeout. Sink failures are
// swallowed: they are reported on the diagnostic channel and must never
// reach a decision path.
func (r *Recorder) flush(batch []Event) []Event {
	if len(batch) == 0 {
		return batch
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.FlushTimeout)
	defer cancel()

	if err := r.sink.Write(ctx, batch); err != nil {
		slog.Warn("audit sink write failed",
			logger.Component("audit"),
			logger.Error(err),
			slog.Int("batch_size", len(batch)),
		)
	}
	return batch[:0]
}
