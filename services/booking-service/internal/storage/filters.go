package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// SlotFilter selects live slots. Zero fields do not filter.
type SlotFilter struct {
	ConsultantID   string
	ShowroomID     string
	AvailabilityID string
	From           *time.Time
	To             *time.Time
	Available      *bool
}

func (f SlotFilter) Match(s model.TimeSlot) bool {
	switch {
	case s.Lifecycle.IsDeleted():
		return false
	case f.ConsultantID != "" && s.ConsultantID != f.ConsultantID:
		return false
	case f.ShowroomID != "" && s.ShowroomID != f.ShowroomID:
		return false
	case f.AvailabilityID != "" && s.AvailabilityID != f.AvailabilityID:
		return false
	case f.From != nil && s.StartAt.Before(*f.From):
		return false
	case f.To != nil && !s.StartAt.Before(*f.To):
		return false
	case f.Available != nil && s.IsAvailable != *f.Available:
		return false
	}
	return true
}

// AvailabilityFilter selects live windows. FromDate/ToDate ("YYYY-MM-DD") keep one-off
// windows dated inside the range and weekly windows whose weekday occurs in it.
type AvailabilityFilter struct {
	ConsultantID string
	FromDate     string
	ToDate       string
}

// Weekdays returns the weekdays covered by the date range, or nil when unbounded.
func (f AvailabilityFilter) Weekdays() []int {
	if f.FromDate == "" || f.ToDate == "" {
		return nil
	}
	from, err1 := time.Parse(model.DateLayout, f.FromDate)
	to, err2 := time.Parse(model.DateLayout, f.ToDate)
	if err1 != nil || err2 != nil || to.Before(from) {
		return []int{}
	}
	seen := map[int]bool{}
	var out []int
	for d := from; !d.After(to) && len(out) < 7; d = d.AddDate(0, 0, 1) {
		wd := int(d.Weekday())
		if !seen[wd] {
			seen[wd] = true
			out = append(out, wd)
		}
	}
	return out
}

func (f AvailabilityFilter) Match(a model.Availability) bool {
	if a.Lifecycle.IsDeleted() {
		return false
	}
	if f.ConsultantID != "" && a.ConsultantID != f.ConsultantID {
		return false
	}
	if a.SpecificDate != "" {
		if f.FromDate != "" && a.SpecificDate < f.FromDate {
			return false
		}
		if f.ToDate != "" && a.SpecificDate > f.ToDate {
			return false
		}
		return true
	}
	days := f.Weekdays()
	if days == nil {
		return true
	}
	for _, d := range days {
		if a.DayOfWeek != nil && *a.DayOfWeek == d {
			return true
		}
	}
	return false
}

type BookingFilter struct {
	CustomerID   string
	ConsultantID string
	SlotID       string
	Status       model.BookingStatus
}

func (f BookingFilter) Match(b model.Booking) bool {
	switch {
	case b.Lifecycle.IsDeleted():
		return false
	case f.CustomerID != "" && b.CustomerID != f.CustomerID:
		return false
	case f.ConsultantID != "" && b.ConsultantID != f.ConsultantID:
		return false
	case f.SlotID != "" && b.SlotID != f.SlotID:
		return false
	case f.Status != "" && b.Status != f.Status:
		return false
	}
	return true
}

type ReminderFilter struct {
	BookingID  string
	CustomerID string
	Status     model.ReminderStatus
}

func (f ReminderFilter) Match(r model.Reminder) bool {
	switch {
	case f.BookingID != "" && r.BookingID != f.BookingID:
		return false
	case f.CustomerID != "" && r.CustomerID != f.CustomerID:
		return false
	case f.Status != "" && r.Status != f.Status:
		return false
	}
	return true
}

// where accumulates AND-ed predicates with positional arguments.
type where struct {
	conds []string
	args  []any
}

// add appends cond, replacing each "?" with the next placeholder bound to the given values.
func (w *where) add(cond string, vals ...any) {
	for _, v := range vals {
		w.args = append(w.args, v)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

func (w *where) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// page appends LIMIT/OFFSET placeholders and returns the clause and full argument list.
func (w *where) page(p model.PageRequest) (string, []any) {
	p = p.Normalize()
	n := len(w.args)
	args := append(append([]any{}, w.args...), p.Limit, p.Offset())
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2), args
}

func slotWhere(f SlotFilter) *where {
	w := &where{}
	w.add("deleted_at IS NULL")
	w.addID("consultant_id", f.ConsultantID)
	if f.ShowroomID != "" {
		w.add("showroom_id = ?", f.ShowroomID)
	}
	w.addID("availability_id", f.AvailabilityID)
	if f.From != nil {
		w.add("start_at >= ?", *f.From)
	}
	if f.To != nil {
		w.add("start_at < ?", *f.To)
	}
	if f.Available != nil {
		w.add("is_available = ?", *f.Available)
	}
	return w
}

func availabilityWhere(f AvailabilityFilter) *where {
	w := &where{}
	w.add("deleted_at IS NULL")
	w.addID("consultant_id", f.ConsultantID)
	oneOff := "specific_date IS NOT NULL"
	var oneOffArgs []any
	if f.FromDate != "" {
		oneOff += " AND specific_date >= ?::date"
		oneOffArgs = append(oneOffArgs, f.FromDate)
	}
	if f.ToDate != "" {
		oneOff += " AND specific_date <= ?::date"
		oneOffArgs = append(oneOffArgs, f.ToDate)
	}
	if days := f.Weekdays(); days != nil {
		w.add("(("+oneOff+") OR (specific_date IS NULL AND day_of_week = ANY(?)))", append(oneOffArgs, days)...)
	} else if len(oneOffArgs) > 0 {
		w.add("(("+oneOff+") OR specific_date IS NULL)", oneOffArgs...)
	}
	return w
}

func bookingWhere(f BookingFilter) *where {
	w := &where{}
	w.add("deleted_at IS NULL")
	if f.CustomerID != "" {
		w.add("customer_id = ?", f.CustomerID)
	}
	w.addID("consultant_id", f.ConsultantID)
	w.addID("slot_id", f.SlotID)
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}
	return w
}

func reminderWhere(f ReminderFilter) *where {
	w := &where{}
	w.addID("booking_id", f.BookingID)
	if f.CustomerID != "" {
		w.add("customer_id = ?", f.CustomerID)
	}
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}
	return w
}
