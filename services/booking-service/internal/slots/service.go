// Package slots turns availability windows into bookable time slots and administers them.
package slots

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/cache"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

const (
	DefaultSlotDuration    = 30 * time.Minute
	DefaultMaxGenerateDays = 90
)

type Config struct {
	SlotDuration    time.Duration
	MaxGenerateDays int
}

type Service struct {
	store  storage.Store
	cache  *cache.Layer
	logger *slog.Logger
	cfg    Config
	tracer trace.Tracer
	now    func() time.Time
}

func NewService(store storage.Store, c *cache.Layer, logger *slog.Logger, cfg Config) *Service {
	if cfg.SlotDuration <= 0 {
		cfg.SlotDuration = DefaultSlotDuration
	}
	if cfg.MaxGenerateDays <= 0 {
		cfg.MaxGenerateDays = DefaultMaxGenerateDays
	}
	return &Service{
		store:  store,
		cache:  c,
		logger: logger,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/md-rashed-zaman/slotbook/slots"),
		now:    time.Now,
	}
}

// start opens a span for op; the returned func records *errp and ends it.
func (s *Service) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := s.tracer.Start(ctx, "slots."+op, trace.WithAttributes(attrs...))
	return ctx, func(errp *error) {
		if err := *errp; err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(apperr.KindOf(err)))
		}
		span.End()
	}
}

// SetClock replaces the time source used for past-date checks.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Input describes one ad-hoc slot.
type Input struct {
	ConsultantID   string    `json:"consultantId"`
	ShowroomID     string    `json:"showroomId,omitempty"`
	AvailabilityID string    `json:"availabilityId,omitempty"`
	StartAt        time.Time `json:"startAt"`
	EndAt          time.Time `json:"endAt"`
	MaxBookings    int       `json:"maxBookings,omitempty"`
}

func (in Input) slot() model.TimeSlot {
	return model.TimeSlot{
		ConsultantID:   strings.TrimSpace(in.ConsultantID),
		ShowroomID:     strings.TrimSpace(in.ShowroomID),
		AvailabilityID: strings.TrimSpace(in.AvailabilityID),
		StartAt:        in.StartAt.UTC(),
		EndAt:          in.EndAt.UTC(),
		IsAvailable:    true,
		MaxBookings:    in.MaxBookings,
	}
}

func requireAdmin(caller auth.Identity) error {
	if !caller.IsAdmin() {
		return apperr.Forbidden("administrator role required")
	}
	return nil
}

func rangeOf(s model.TimeSlot) interval.Range {
	return interval.Range{Start: s.StartAt, End: s.EndAt}
}

func (s *Service) validate(slot model.TimeSlot) error {
	if slot.ConsultantID == "" {
		return apperr.Validation("consultantId is required")
	}
	if slot.StartAt.IsZero() || slot.EndAt.IsZero() {
		return apperr.Validation("startAt and endAt are required")
	}
	if !rangeOf(slot).Valid() {
		return apperr.Validation("startAt must be before endAt")
	}
	if !slot.StartAt.After(s.now()) {
		return apperr.Validation("slot cannot start in the past")
	}
	if slot.MaxBookings < 0 {
		return apperr.Validation("maxBookings must not be negative")
	}
	return nil
}

func overlapErr(conflictID string) error {
	return apperr.Conflict("slot overlaps an existing slot", "").WithConflict(conflictID)
}

// insertChecked inserts slot after the overlap check against live slots of its consultant.
func insertChecked(ctx context.Context, q storage.Queries, slot *model.TimeSlot) error {
	clash, err := q.ListSlotsOverlapping(ctx, slot.ConsultantID, rangeOf(*slot), "")
	if err != nil {
		return err
	}
	if len(clash) > 0 {
		return overlapErr(clash[0].ID)
	}
	if err := q.InsertSlot(ctx, slot); err != nil {
		return storage.DomainError(err, "slot", "")
	}
	return nil
}

func checkReferences(ctx context.Context, q storage.Queries, slot model.TimeSlot) error {
	if _, err := q.LockConsultant(ctx, slot.ConsultantID); err != nil {
		return storage.DomainError(err, "consultant", slot.ConsultantID)
	}
	if slot.AvailabilityID == "" {
		return nil
	}
	a, err := q.GetAvailability(ctx, slot.AvailabilityID)
	if err != nil {
		return storage.DomainError(err, "availability", slot.AvailabilityID)
	}
	if a.ConsultantID != slot.ConsultantID {
		return apperr.Validation("availability belongs to another consultant")
	}
	return nil
}

func (s *Service) CreateSlot(ctx context.Context, caller auth.Identity, in Input) (_ model.TimeSlot, err error) {
	ctx, done := s.start(ctx, "create", attribute.String("consultant.id", in.ConsultantID))
	defer done(&err)

	if err := requireAdmin(caller); err != nil {
		return model.TimeSlot{}, err
	}
	slot := in.slot()
	if err := s.validate(slot); err != nil {
		return model.TimeSlot{}, err
	}
	err = s.store.InTx(ctx, func(q storage.Queries) error {
		if err := checkReferences(ctx, q, slot); err != nil {
			return err
		}
		return insertChecked(ctx, q, &slot)
	})
	if err != nil {
		return model.TimeSlot{}, err
	}
	metrics.SlotsCreated.WithLabelValues("single").Inc()
	s.cache.Invalidate(ctx, cache.SlotMutation(slot.ConsultantID, slot.ID)...)
	return slot, nil
}

// BulkCreateSlots creates every slot or none. The batch is checked pairwise before any
// slot is compared with the store.
func (s *Service) BulkCreateSlots(ctx context.Context, caller auth.Identity, consultantID string, inputs []Input) (_ []model.TimeSlot, err error) {
	ctx, done := s.start(ctx, "bulk_create",
		attribute.String("consultant.id", consultantID), attribute.Int("slots.count", len(inputs)))
	defer done(&err)

	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	consultantID = strings.TrimSpace(consultantID)
	if len(inputs) == 0 {
		return nil, apperr.Validation("at least one slot is required")
	}
	batch := make([]model.TimeSlot, len(inputs))
	ranges := make([]interval.Range, len(inputs))
	for i, in := range inputs {
		if in.ConsultantID == "" {
			in.ConsultantID = consultantID
		}
		slot := in.slot()
		if slot.ConsultantID != consultantID {
			return nil, apperr.Validationf("slot %d belongs to another consultant", i)
		}
		if err := s.validate(slot); err != nil {
			return nil, apperr.Validationf("slot %d: %s", i, apperr.As(err).Message)
		}
		batch[i], ranges[i] = slot, rangeOf(slot)
	}
	if i, j := interval.FirstOverlappingPair(ranges); i >= 0 {
		return nil, apperr.Conflict(fmt.Sprintf("slots %d and %d in the batch overlap", i, j), "")
	}

	err = s.store.InTx(ctx, func(q storage.Queries) error {
		if _, err := q.LockConsultant(ctx, consultantID); err != nil {
			return storage.DomainError(err, "consultant", consultantID)
		}
		for i := range batch {
			if batch[i].AvailabilityID != "" {
				if err := checkReferences(ctx, q, batch[i]); err != nil {
					return err
				}
			}
			if err := insertChecked(ctx, q, &batch[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.SlotsCreated.WithLabelValues("bulk").Add(float64(len(batch)))
	ids := make([]string, len(batch))
	for i, slot := range batch {
		ids[i] = slot.ID
	}
	s.cache.Invalidate(ctx, cache.SlotMutation(consultantID, ids...)...)
	s.logger.Info("slots bulk created", "consultant_id", consultantID, "count", len(batch))
	return batch, nil
}

// GenerateRequest selects the calendar dates, inclusive, to generate slots for.
type GenerateRequest struct {
	From            string `json:"from"`
	To              string `json:"to"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
	ShowroomID      string `json:"showroomId,omitempty"`
}

// GenerateFromAvailability slices the window on every matching date into slots of the
// configured duration, skipping slices that would overlap existing slots or start in the past.
func (s *Service) GenerateFromAvailability(ctx context.Context, caller auth.Identity, availabilityID string, req GenerateRequest) (_ []model.TimeSlot, err error) {
	ctx, done := s.start(ctx, "generate",
		attribute.String("availability.id", availabilityID), attribute.String("range.from", req.From), attribute.String("range.to", req.To))
	defer done(&err)

	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	from, err := time.Parse(model.DateLayout, req.From)
	if err != nil {
		return nil, apperr.Validation("from must be YYYY-MM-DD")
	}
	to, err := time.Parse(model.DateLayout, req.To)
	if err != nil {
		return nil, apperr.Validation("to must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, apperr.Validation("to must not be before from")
	}
	if days := int(to.Sub(from)/(24*time.Hour)) + 1; days > s.cfg.MaxGenerateDays {
		return nil, apperr.Validationf("date range exceeds %d days", s.cfg.MaxGenerateDays)
	}
	duration := s.cfg.SlotDuration
	if req.DurationMinutes < 0 {
		return nil, apperr.Validation("durationMinutes must be positive")
	}
	if req.DurationMinutes > 0 {
		duration = time.Duration(req.DurationMinutes) * time.Minute
	}

	var created []model.TimeSlot
	var consultantID string
	now := s.now()
	err = s.store.InTx(ctx, func(q storage.Queries) error {
		a, err := q.GetAvailability(ctx, availabilityID)
		if err != nil {
			return storage.DomainError(err, "availability", availabilityID)
		}
		if a.IsBlocked {
			return apperr.Conflict("availability window is blocked", a.ID)
		}
		consultantID = a.ConsultantID
		c, err := q.LockConsultant(ctx, a.ConsultantID)
		if err != nil {
			return storage.DomainError(err, "consultant", a.ConsultantID)
		}
		start, end, err := interval.ParseClockRange(a.StartTime, a.EndTime)
		if err != nil {
			return apperr.Internal(err)
		}
		loc := c.Location()
		for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
			if !a.Matches(day) {
				continue
			}
			window := interval.Range{Start: start.On(day, loc), End: end.On(day, loc)}
			existing, err := q.ListSlotsOverlapping(ctx, a.ConsultantID, window, "")
			if err != nil {
				return err
			}
			busy := make([]interval.Range, len(existing))
			for i, e := range existing {
				busy[i] = rangeOf(e)
			}
			for _, r := range interval.Slices(window, duration, duration, busy, now) {
				slot := model.TimeSlot{
					ConsultantID:   a.ConsultantID,
					ShowroomID:     strings.TrimSpace(req.ShowroomID),
					AvailabilityID: a.ID,
					StartAt:        r.Start.UTC(),
					EndAt:          r.End.UTC(),
					IsAvailable:    true,
				}
				if err := q.InsertSlot(ctx, &slot); err != nil {
					return storage.DomainError(err, "slot", "")
				}
				created = append(created, slot)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(created) > 0 {
		metrics.SlotsCreated.WithLabelValues("generated").Add(float64(len(created)))
		s.cache.Invalidate(ctx, cache.SlotMutation(consultantID)...)
	}
	s.logger.Info("slots generated", "availability_id", availabilityID, "consultant_id", consultantID, "count", len(created))
	if created == nil {
		created = []model.TimeSlot{}
	}
	return created, nil
}
