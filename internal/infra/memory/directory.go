package memory

import (
	"context"
	"sync"
)

// PaymentLedger records successful payments per (student, paper).
type PaymentLedger struct {
	mu   sync.RWMutex
	paid map[string]struct{}
}

func NewPaymentLedger() *PaymentLedger {
	return &PaymentLedger{paid: make(map[string]struct{})}
}

// Record marks a paper as paid by a student.
func (l *PaymentLedger) Record(studentID, paperID string) {
	l.mu.Lock()
	l.paid[studentID+"/"+paperID] = struct{}{}
	l.mu.Unlock()
}

func (l *PaymentLedger) HasPaid(_ context.Context, studentID, paperID string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.paid[studentID+"/"+paperID]
	return ok, nil
}

// StudentDirectory maps student ids to display names.
type StudentDirectory struct {
	mu    sync.RWMutex
	names map[string]string
}

func NewStudentDirectory(names map[string]string) *StudentDirectory {
	d := &StudentDirectory{names: make(map[string]string, len(names))}
	for id, n := range names {
		d.names[id] = n
	}
	return d
}

func (d *StudentDirectory) Put(studentID, name string) {
	d.mu.Lock()
	d.names[studentID] = name
	d.mu.Unlock()
}

// Names omits unknown ids.
func (d *StudentDirectory) Names(_ context.Context, studentIDs []string) (map[string]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]string, len(studentIDs))
	for _, id := range studentIDs {
		if n, ok := d.names[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}
