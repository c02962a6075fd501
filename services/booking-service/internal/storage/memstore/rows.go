package memstore

import (
	"cmp"
	"slices"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

type consultantRow struct{ model.Consultant }

type availabilityRow struct {
	model.Availability
	seq int64
}

type slotRow struct {
	model.TimeSlot
	seq int64
}

type bookingRow struct {
	model.Booking
	seq int64
}

type cancellationRow struct{ model.Cancellation }

type rescheduleRow struct{ model.Reschedule }

type reminderRow struct {
	model.Reminder
	seq int64
}

// sorted returns the rows of m accepted by keep, ordered by less then insertion sequence.
func sorted[R any](m map[string]R, keep func(R) bool, less func(a, b R) int, seq func(R) int64) []R {
	var out []R
	for _, r := range m {
		if keep(r) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b R) int {
		if c := less(a, b); c != 0 {
			return c
		}
		return cmp.Compare(seq(a), seq(b))
	})
	return out
}

func paginate[T any](items []T, page model.PageRequest) ([]T, int) {
	total := len(items)
	page = page.Normalize()
	start := page.Offset()
	if start >= total {
		return []T{}, total
	}
	end := min(start+page.Limit, total)
	return items[start:end], total
}
