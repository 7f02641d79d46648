package tracker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Memory is a process-local tracker. Records are visible only to the
// instance that wrote them.
type Memory struct {
	mu        sync.RWMutex
	ttl       time.Duration
	now       func() time.Time
	records   map[string]Record
	secondary map[KeyKind]map[string]string
}

// NewMemory builds a Memory tracker. A zero ttl keeps records until restart.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		records: make(map[string]Record),
		secondary: map[KeyKind]map[string]string{
			KeyTransaction: {},
			KeyInvoice:     {},
		},
	}
}

// Get implements Tracker.
func (m *Memory) Get(_ context.Context, orderID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookup(orderID)
}

// Put implements Tracker. Empty fields keep their previous value.
func (m *Memory) Put(_ context.Context, record Record) error {
	if record.OrderID == "" {
		return errors.New("tracker record requires an order id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.records[record.OrderID]; ok {
		record = merge(prev, record)
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = m.now()
	}
	m.records[record.OrderID] = record
	for kind, index := range m.secondary {
		if v := record.secondary(kind); v != "" {
			index[v] = record.OrderID
		}
	}
	return nil
}

// FindBySecondaryKey implements Tracker.
func (m *Memory) FindBySecondaryKey(_ context.Context, kind KeyKind, value string) (*Record, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	orderID, ok := m.secondary[kind][value]
	if !ok {
		return nil, ErrNotFound
	}
	return m.lookup(orderID)
}

func (m *Memory) lookup(orderID string) (*Record, error) {
	rec, ok := m.records[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	if m.ttl > 0 && m.now().Sub(rec.UpdatedAt) > m.ttl {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func merge(prev, next Record) Record {
	if next.PaymentID == "" {
		next.PaymentID = prev.PaymentID
	}
	if next.APIRef == "" {
		next.APIRef = prev.APIRef
	}
	if next.TransactionID == "" {
		next.TransactionID = prev.TransactionID
	}
	if next.InvoiceID == "" {
		next.InvoiceID = prev.InvoiceID
	}
	if next.Status == "" {
		next.Status = prev.Status
	}
	return next
}
