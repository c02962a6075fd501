// Package memstore is an in-process storage.Store. Transactions hold a store-wide lock and
// restore a snapshot on rollback, so it gives the same all-or-nothing behavior as PostgreSQL
// for tests and local runs.
package memstore

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

// Store implements storage.Store in memory.
type Store struct {
	mu    sync.Mutex
	state *state
	// ClaimHook, when set, runs before every slot claim inside the lock. Returning an
	// error aborts the claim; tests use it to inject store failures.
	ClaimHook func(slotID string) error
	now       func() time.Time
}

func New() *Store {
	return &Store{state: newState(), now: time.Now}
}

// SetClock replaces the source of created/updated timestamps.
func (ms *Store) SetClock(now func() time.Time) { ms.now = now }

var _ storage.Store = (*Store)(nil)

func (ms *Store) InTx(ctx context.Context, fn func(storage.Queries) error) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := ms.state.clone()
	if err := fn(&view{st: ms.state, store: ms}); err != nil {
		ms.state = snapshot
		return err
	}
	return nil
}

func (ms *Store) Ping(context.Context) error { return nil }

// do runs fn outside an explicit transaction, holding the lock for one statement.
func do[T any](ms *Store, fn func(v *view) (T, error)) (T, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return fn(&view{st: ms.state, store: ms})
}

type state struct {
	consultants   map[string]consultantRow
	availability  map[string]availabilityRow
	slots         map[string]slotRow
	bookings      map[string]bookingRow
	cancellations map[string]cancellationRow
	reschedules   map[string]rescheduleRow
	reminders     map[string]reminderRow
	seq           int64
}

func newState() *state {
	return &state{
		consultants:   map[string]consultantRow{},
		availability:  map[string]availabilityRow{},
		slots:         map[string]slotRow{},
		bookings:      map[string]bookingRow{},
		cancellations: map[string]cancellationRow{},
		reschedules:   map[string]rescheduleRow{},
		reminders:     map[string]reminderRow{},
	}
}

// clone copies every table. Rows are values, and pointer fields inside them are replaced
// rather than mutated, so a shallow map copy is a full snapshot.
func (st *state) clone() *state {
	return &state{
		consultants:   maps.Clone(st.consultants),
		availability:  maps.Clone(st.availability),
		slots:         maps.Clone(st.slots),
		bookings:      maps.Clone(st.bookings),
		cancellations: maps.Clone(st.cancellations),
		reschedules:   maps.Clone(st.reschedules),
		reminders:     maps.Clone(st.reminders),
		seq:           st.seq,
	}
}

// tick returns a strictly increasing sequence used to order rows created in the same instant.
func (st *state) tick() int64 {
	st.seq++
	return st.seq
}

// Cancellations returns the cancellation records of a booking.
func (ms *Store) Cancellations(bookingID string) []model.Cancellation {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	var out []model.Cancellation
	for _, r := range ms.state.cancellations {
		if r.BookingID == bookingID {
			out = append(out, r.Cancellation)
		}
	}
	return out
}

// Reschedules returns the reschedule records of a booking.
func (ms *Store) Reschedules(bookingID string) []model.Reschedule {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	var out []model.Reschedule
	for _, r := range ms.state.reschedules {
		if r.BookingID == bookingID {
			out = append(out, r.Reschedule)
		}
	}
	return out
}
