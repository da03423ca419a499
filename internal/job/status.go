package job

import (
	"fmt"
	"sync"
	"time"

	"marketscrape/listingworker/logger"
)

// StatusEvent is one timestamped line of the job's audit trail
type StatusEvent struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// StatusLog is the job's append-only status event log. Insertion order is
// chronological and significant; readers get snapshots and may poll while
// the job loop is appending.
type StatusLog struct {
	mu     sync.RWMutex
	events []StatusEvent
	log    *logger.Logger
}

// NewStatusLog creates an empty status log
func NewStatusLog() *StatusLog {
	return &StatusLog{log: logger.ForJob()}
}

// Recordf appends a formatted, timestamped status event and mirrors it to
// the structured log. Implements scraper.StatusRecorder.
func (l *StatusLog) Recordf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	l.events = append(l.events, StatusEvent{At: time.Now(), Message: msg})
	l.mu.Unlock()

	l.log.Info().Msg(msg)
}

// Snapshot returns a copy of the events recorded so far
func (l *StatusLog) Snapshot() []StatusEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]StatusEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of recorded events
func (l *StatusLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}
