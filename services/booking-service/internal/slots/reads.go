package slots

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/cache"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

// GetSlot reads a live slot through the cache.
func (s *Service) GetSlot(ctx context.Context, id string) (_ model.TimeSlot, err error) {
	ctx, done := s.start(ctx, "get", attribute.String("slot.id", id))
	defer done(&err)
	return cache.FetchEntity(ctx, s.cache, cache.SlotScope(id), func(ctx context.Context) (model.TimeSlot, error) {
		slot, err := s.store.GetSlot(ctx, id)
		return slot, storage.DomainError(err, "slot", id)
	})
}

func (s *Service) ListSlots(ctx context.Context, f storage.SlotFilter, page model.PageRequest) (_ model.Page[model.TimeSlot], err error) {
	ctx, done := s.start(ctx, "list", attribute.String("consultant.id", f.ConsultantID), attribute.Int("page", page.Page))
	defer done(&err)

	page = page.Normalize()
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return model.Page[model.TimeSlot]{}, apperr.Validation("to must not be before from")
	}
	scope := cache.AllSlotsScope()
	if f.ConsultantID != "" {
		scope = cache.ConsultantSlotsScope(f.ConsultantID)
	}
	return cache.Fetch(ctx, s.cache, listKey(f, page), []cache.Scope{scope}, func(ctx context.Context) (model.Page[model.TimeSlot], error) {
		items, total, err := s.store.ListSlots(ctx, f, page)
		if err != nil {
			return model.Page[model.TimeSlot]{}, err
		}
		return model.NewPage(items, page, total), nil
	})
}

func listKey(f storage.SlotFilter, page model.PageRequest) string {
	stamp := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return strconv.FormatInt(t.UTC().Unix(), 10)
	}
	avail := ""
	if f.Available != nil {
		avail = strconv.FormatBool(*f.Available)
	}
	return strings.Join([]string{
		"slots:list", f.ConsultantID, f.ShowroomID, f.AvailabilityID,
		stamp(f.From), stamp(f.To), avail,
		strconv.Itoa(page.Page), strconv.Itoa(page.Limit),
	}, ":")
}
