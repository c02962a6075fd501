// Package availability manages the recurring and one-off windows in which consultants can be booked.
package availability

import (
	"context"
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
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

type Service struct {
	store  storage.Store
	cache  *cache.Layer
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewService(store storage.Store, c *cache.Layer, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		cache:  c,
		logger: logger,
		tracer: otel.Tracer("github.com/md-rashed-zaman/slotbook/availability"),
		now:    time.Now,
	}
}

func (s *Service) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := s.tracer.Start(ctx, "availability."+op, trace.WithAttributes(attrs...))
	return ctx, func(errp *error) {
		if err := *errp; err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(apperr.KindOf(err)))
		}
		span.End()
	}
}

// Input describes a window. Exactly one of DayOfWeek and SpecificDate is set.
type Input struct {
	ConsultantID string `json:"consultantId"`
	DayOfWeek    *int   `json:"dayOfWeek,omitempty"`
	SpecificDate string `json:"specificDate,omitempty"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	IsBlocked    bool   `json:"isBlocked"`
	BlockReason  string `json:"blockReason,omitempty"`
}

// Patch changes selected fields of a window. A new day key replaces the old one.
type Patch struct {
	DayOfWeek    *int    `json:"dayOfWeek,omitempty"`
	SpecificDate *string `json:"specificDate,omitempty"`
	StartTime    *string `json:"startTime,omitempty"`
	EndTime      *string `json:"endTime,omitempty"`
	IsBlocked    *bool   `json:"isBlocked,omitempty"`
	BlockReason  *string `json:"blockReason,omitempty"`
}

func requireAdmin(caller auth.Identity) error {
	if !caller.IsAdmin() {
		return apperr.Forbidden("administrator role required")
	}
	return nil
}

// validate normalizes a and returns its clock range.
func validate(a *model.Availability) (interval.Clock, interval.Clock, error) {
	a.SpecificDate = strings.TrimSpace(a.SpecificDate)
	if (a.DayOfWeek == nil) == (a.SpecificDate == "") {
		return 0, 0, apperr.Validation("exactly one of dayOfWeek or specificDate is required")
	}
	a.IsRecurring = a.DayOfWeek != nil
	if !a.Key().Valid() {
		return 0, 0, apperr.Validation("dayOfWeek must be 0-6 and specificDate YYYY-MM-DD")
	}
	start, end, err := interval.ParseClockRange(a.StartTime, a.EndTime)
	if err != nil {
		return 0, 0, apperr.Validation(err.Error())
	}
	a.StartTime, a.EndTime = start.String(), end.String()
	if !a.IsBlocked {
		a.BlockReason = ""
	}
	return start, end, nil
}

// FindConflict returns the first live window of the consultant on key overlapping
// [start, end), ignoring excludeID.
func FindConflict(ctx context.Context, q storage.Queries, consultantID string, key model.DayKey, start, end interval.Clock, excludeID string) (*model.Availability, error) {
	windows, err := q.ListAvailabilityForDay(ctx, consultantID, key)
	if err != nil {
		return nil, err
	}
	for _, w := range windows {
		if w.ID == excludeID {
			continue
		}
		ws, we, err := interval.ParseClockRange(w.StartTime, w.EndTime)
		if err != nil {
			continue
		}
		if interval.Overlaps(start, end, ws, we) {
			return &w, nil
		}
	}
	return nil, nil
}

// FindConflict checks the store outside a transaction.
func (s *Service) FindConflict(ctx context.Context, consultantID string, key model.DayKey, start, end string, excludeID string) (*model.Availability, error) {
	st, en, err := interval.ParseClockRange(start, end)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	return FindConflict(ctx, s.store, consultantID, key, st, en, excludeID)
}

func overlapErr(id, conflictID string) error {
	return apperr.Conflict("availability overlaps an existing window", id).WithConflict(conflictID)
}

func (s *Service) Create(ctx context.Context, caller auth.Identity, in Input) (_ model.Availability, err error) {
	ctx, done := s.start(ctx, "create", attribute.String("consultant.id", in.ConsultantID))
	defer done(&err)

	if err := requireAdmin(caller); err != nil {
		return model.Availability{}, err
	}
	a := model.Availability{
		ConsultantID: strings.TrimSpace(in.ConsultantID),
		DayOfWeek:    in.DayOfWeek,
		SpecificDate: in.SpecificDate,
		StartTime:    in.StartTime,
		EndTime:      in.EndTime,
		IsBlocked:    in.IsBlocked,
		BlockReason:  strings.TrimSpace(in.BlockReason),
	}
	if a.ConsultantID == "" {
		return model.Availability{}, apperr.Validation("consultantId is required")
	}
	start, end, err := validate(&a)
	if err != nil {
		return model.Availability{}, err
	}

	err = s.store.InTx(ctx, func(q storage.Queries) error {
		if _, err := q.LockConsultant(ctx, a.ConsultantID); err != nil {
			return storage.DomainError(err, "consultant", a.ConsultantID)
		}
		clash, err := FindConflict(ctx, q, a.ConsultantID, a.Key(), start, end, "")
		if err != nil {
			return err
		}
		if clash != nil {
			return overlapErr("", clash.ID)
		}
		return q.InsertAvailability(ctx, &a)
	})
	if err != nil {
		return model.Availability{}, err
	}
	s.cache.Invalidate(ctx, cache.AvailabilityMutation(a.ConsultantID)...)
	s.logger.Info("availability created", "availability_id", a.ID, "consultant_id", a.ConsultantID, "day", a.Key().String())
	return a, nil
}

func (s *Service) Update(ctx context.Context, caller auth.Identity, id string, p Patch) (_ model.Availability, err error) {
	ctx, done := s.start(ctx, "update", attribute.String("availability.id", id))
	defer done(&err)

	if err := requireAdmin(caller); err != nil {
		return model.Availability{}, err
	}
	var out model.Availability
	err = s.store.InTx(ctx, func(q storage.Queries) error {
		cur, err := q.GetAvailability(ctx, id)
		if err != nil {
			return storage.DomainError(err, "availability", id)
		}
		if _, err := q.LockConsultant(ctx, cur.ConsultantID); err != nil {
			return storage.DomainError(err, "consultant", cur.ConsultantID)
		}
		next := cur
		if p.DayOfWeek != nil {
			next.DayOfWeek, next.SpecificDate = p.DayOfWeek, ""
		}
		if p.SpecificDate != nil {
			next.SpecificDate = *p.SpecificDate
			if next.SpecificDate != "" {
				next.DayOfWeek = nil
			}
		}
		if p.StartTime != nil {
			next.StartTime = *p.StartTime
		}
		if p.EndTime != nil {
			next.EndTime = *p.EndTime
		}
		if p.IsBlocked != nil {
			next.IsBlocked = *p.IsBlocked
		}
		if p.BlockReason != nil {
			next.BlockReason = strings.TrimSpace(*p.BlockReason)
		}
		start, end, err := validate(&next)
		if err != nil {
			return err
		}
		clash, err := FindConflict(ctx, q, next.ConsultantID, next.Key(), start, end, next.ID)
		if err != nil {
			return err
		}
		if clash != nil {
			return overlapErr(next.ID, clash.ID)
		}
		if err := q.UpdateAvailability(ctx, &next); err != nil {
			return storage.DomainError(err, "availability", id)
		}
		out = next
		return nil
	})
	if err != nil {
		return model.Availability{}, err
	}
	s.cache.Invalidate(ctx, cache.AvailabilityMutation(out.ConsultantID)...)
	return out, nil
}

func (s *Service) SoftDelete(ctx context.Context, caller auth.Identity, id string) (err error) {
	ctx, done := s.start(ctx, "delete", attribute.String("availability.id", id))
	defer done(&err)

	if err := requireAdmin(caller); err != nil {
		return err
	}
	var consultantID string
	err = s.store.InTx(ctx, func(q storage.Queries) error {
		cur, err := q.GetAvailability(ctx, id)
		if err != nil {
			return storage.DomainError(err, "availability", id)
		}
		consultantID = cur.ConsultantID
		return storage.DomainError(q.SoftDeleteAvailability(ctx, id, s.now().UTC()), "availability", id)
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.AvailabilityMutation(consultantID)...)
	s.logger.Info("availability deleted", "availability_id", id, "consultant_id", consultantID)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Availability, error) {
	a, err := s.store.GetAvailability(ctx, id)
	return a, storage.DomainError(err, "availability", id)
}

// FindByConsultant lists windows through the read-through cache.
func (s *Service) FindByConsultant(ctx context.Context, f storage.AvailabilityFilter, page model.PageRequest) (model.Page[model.Availability], error) {
	page = page.Normalize()
	if err := validateDateRange(f.FromDate, f.ToDate); err != nil {
		return model.Page[model.Availability]{}, err
	}
	scope := cache.AllAvailabilityScope()
	if f.ConsultantID != "" {
		scope = cache.ConsultantAvailabilityScope(f.ConsultantID)
	}
	key := "availability:list:" + f.ConsultantID + ":" + f.FromDate + ":" + f.ToDate + ":" + pageKey(page)
	return cache.Fetch(ctx, s.cache, key, []cache.Scope{scope}, func(ctx context.Context) (model.Page[model.Availability], error) {
		items, total, err := s.store.ListAvailability(ctx, f, page)
		if err != nil {
			return model.Page[model.Availability]{}, err
		}
		return model.NewPage(items, page, total), nil
	})
}

func validateDateRange(from, to string) error {
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(model.DateLayout, d); err != nil {
			return apperr.Validationf("date %q must be YYYY-MM-DD", d)
		}
	}
	if from != "" && to != "" && to < from {
		return apperr.Validation("to must not be before from")
	}
	return nil
}
