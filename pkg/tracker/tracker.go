package tracker

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Outcome is how a connection ended
type Outcome string

const (
	// OutcomeOpen means the connection is still being handled
	OutcomeOpen Outcome = "open"
	// OutcomeServed means a response was written
	OutcomeServed Outcome = "served"
	// OutcomeFailed means the connection was abandoned
	OutcomeFailed Outcome = "failed"
)

// Connection is what the tracker knows about a single connection
type Connection struct {
	ID         uint64
	Remote     string
	Outcome    Outcome
	Method     string
	Path       string
	Status     int
	Message    string
	AcceptedAt time.Time
	ClosedAt   time.Time
}

// Stats is a point-in-time summary of tracked connections
type Stats struct {
	Accepted int
	Active   int
	Served   int
	Failed   int
	// ByStatus counts served connections per status code
	ByStatus map[int]int
}

// Tracker records the lifecycle of every connection the server handles.
// Implementations must be safe for concurrent use.
type Tracker interface {
	// Accepted registers a new connection
	Accepted(id uint64, remote string)
	// Served records that a response with status was written for method and path
	Served(id uint64, method, path string, status int)
	// Failed records that the connection was abandoned
	Failed(id uint64, reason string)
	// Snapshot returns the current counters
	Snapshot() Stats
}

// ConsoleTracker prints one line per finished connection and keeps counters
type ConsoleTracker struct {
	mu       sync.Mutex
	writer   io.Writer
	open     map[uint64]*Connection
	accepted int
	served   int
	failed   int
	byStatus map[int]int
}

// NewConsoleTracker creates a tracker writing to stdout
func NewConsoleTracker() *ConsoleTracker {
	return &ConsoleTracker{
		writer:   os.Stdout,
		open:     make(map[uint64]*Connection),
		byStatus: make(map[int]int),
	}
}

// WithWriter sets the writer for the console tracker
func (t *ConsoleTracker) WithWriter(writer io.Writer) *ConsoleTracker {
	t.writer = writer
	return t
}

// Accepted registers a new connection
func (t *ConsoleTracker) Accepted(id uint64, remote string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.open[id] = &Connection{
		ID:         id,
		Remote:     remote,
		Outcome:    OutcomeOpen,
		AcceptedAt: time.Now(),
	}
	t.accepted++
}

// Served records a written response and prints it
func (t *ConsoleTracker) Served(id uint64, method, path string, status int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	conn := t.finish(id)
	conn.Outcome = OutcomeServed
	conn.Method = method
	conn.Path = path
	conn.Status = status

	t.served++
	t.byStatus[status]++

	elapsed := conn.ClosedAt.Sub(conn.AcceptedAt).Round(time.Microsecond)
	fmt.Fprintf(t.writer, "%s %s %s %s %s\n",
		color.HiBlackString("#%d", id),
		colorStatus(status),
		color.CyanString(method),
		path,
		color.HiBlackString("%s %s", conn.Remote, elapsed))
}

// Failed records an abandoned connection and prints it
func (t *ConsoleTracker) Failed(id uint64, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	conn := t.finish(id)
	conn.Outcome = OutcomeFailed
	conn.Message = reason

	t.failed++

	fmt.Fprintf(t.writer, "%s %s %s\n",
		color.HiBlackString("#%d", id),
		color.RedString("FAILED"),
		reason)
}

// Snapshot returns the current counters
func (t *ConsoleTracker) Snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	byStatus := make(map[int]int, len(t.byStatus))
	for code, n := range t.byStatus {
		byStatus[code] = n
	}
	return Stats{
		Accepted: t.accepted,
		Active:   len(t.open),
		Served:   t.served,
		Failed:   t.failed,
		ByStatus: byStatus,
	}
}

// finish removes id from the open set. Callers must hold t.mu.
func (t *ConsoleTracker) finish(id uint64) *Connection {
	conn, ok := t.open[id]
	if !ok {
		// never seen as accepted, record it anyway
		conn = &Connection{ID: id, AcceptedAt: time.Now()}
	}
	delete(t.open, id)
	conn.ClosedAt = time.Now()
	return conn
}

// colorStatus renders a status code colored by its class
func colorStatus(status int) string {
	switch {
	case status >= 500:
		return color.RedString("%d", status)
	case status >= 400:
		return color.YellowString("%d", status)
	case status >= 300:
		return color.BlueString("%d", status)
	default:
		return color.GreenString("%d", status)
	}
}

// NopTracker discards everything
type NopTracker struct{}

func (NopTracker) Accepted(uint64, string)            {}
func (NopTracker) Served(uint64, string, string, int) {}
func (NopTracker) Failed(uint64, string)              {}
func (NopTracker) Snapshot() Stats                    { return Stats{ByStatus: map[int]int{}} }
