package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/agrosense/fieldalert/internal/model"
	"github.com/agrosense/fieldalert/internal/observability"
)

// JournalStore mirrors measurements into a secondary bucket through the
// asynchronous write API. Writes are best-effort: failures surface on the
// error channel, get logged at warning level, and never reach the caller.
type JournalStore struct {
	api     api.WriteAPI
	log     *slog.Logger
	metrics *observability.Metrics

	mu      sync.RWMutex
	lastErr time.Time
}

// NewJournalStore starts the listener draining the write API's async errors.
func NewJournalStore(w api.WriteAPI, log *slog.Logger, metrics *observability.Metrics) *JournalStore {
	j := &JournalStore{
		api:     w,
		log:     log,
		metrics: metrics,
		lastErr: time.Now().Add(-24 * time.Hour),
	}
	go func() {
		for err := range w.Errors() {
			if err == nil {
				continue
			}
			j.mu.Lock()
			j.lastErr = time.Now()
			j.mu.Unlock()
			j.log.Warn("journal write failed", "error", err)
			j.metrics.JournalWrites.WithLabelValues("error").Inc()
		}
	}()
	return j
}

// Mirror enqueues the measurement for the journal bucket. The write is
// batched and flushed by the client; any failure lands on the error drain.
func (j *JournalStore) Mirror(m model.FieldMeasurement) {
	j.api.WritePoint(measurementPoint(m))
}

// LastErrorAge reports how long the async write path has been failure-free.
func (j *JournalStore) LastErrorAge() time.Duration {
	if j == nil {
		return 99999 * time.Hour
	}
	j.mu.RLock()
	t := j.lastErr
	j.mu.RUnlock()
	return time.Since(t)
}

// Flush pushes any batched points out, used on shutdown.
func (j *JournalStore) Flush() {
	j.api.Flush()
}
