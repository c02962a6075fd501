package slots

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/cache"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

const errOccupied = "slot has an active booking"

// Patch edits a slot. IsAvailable=false blocks the slot, IsAvailable=true unblocks it.
type Patch struct {
	StartAt     *time.Time `json:"startAt,omitempty"`
	EndAt       *time.Time `json:"endAt,omitempty"`
	ShowroomID  *string    `json:"showroomId,omitempty"`
	IsAvailable *bool      `json:"isAvailable,omitempty"`
	BlockReason *string    `json:"blockReason,omitempty"`
}

func (p Patch) movesTime() bool {
	return p.StartAt != nil || p.EndAt != nil || p.ShowroomID != nil
}

// UpdateSlot applies p to a slot with no active booking.
func (s *Service) UpdateSlot(ctx context.Context, caller auth.Identity, id string, p Patch) (_ model.TimeSlot, err error) {
	ctx, done := s.start(ctx, "update", attribute.String("slot.id", id))
	defer done(&err)

	if err := requireAdmin(caller); err != nil {
		return model.TimeSlot{}, err
	}
	var out model.TimeSlot
	err = s.store.InTx(ctx, func(q storage.Queries) error {
		cur, err := q.GetSlot(ctx, id)
		if err != nil {
			return storage.DomainError(err, "slot", id)
		}
		if cur.Occupied() && (p.movesTime() || p.IsAvailable != nil) {
			return apperr.Conflict(errOccupied, id)
		}
		if p.movesTime() {
			next := cur
			if p.StartAt != nil {
				next.StartAt = p.StartAt.UTC()
			}
			if p.EndAt != nil {
				next.EndAt = p.EndAt.UTC()
			}
			if p.ShowroomID != nil {
				next.ShowroomID = strings.TrimSpace(*p.ShowroomID)
			}
			if err := s.validate(next); err != nil {
				return err
			}
			clash, err := q.ListSlotsOverlapping(ctx, next.ConsultantID, rangeOf(next), id)
			if err != nil {
				return err
			}
			if len(clash) > 0 {
				return apperr.Conflict("slot overlaps an existing slot", id).WithConflict(clash[0].ID)
			}
			ok, err := q.UpdateSlotTimes(ctx, &next)
			if err != nil {
				return storage.DomainError(err, "slot", id)
			}
			if !ok {
				return apperr.Conflict(errOccupied, id)
			}
		}
		if p.IsAvailable != nil {
			if err := setBlocked(ctx, q, id, !*p.IsAvailable, p.BlockReason); err != nil {
				return err
			}
		}
		out, err = q.GetSlot(ctx, id)
		return err
	})
	if err != nil {
		return model.TimeSlot{}, err
	}
	s.cache.Invalidate(ctx, cache.SlotMutation(out.ConsultantID, out.ID)...)
	return out, nil
}

func setBlocked(ctx context.Context, q storage.Queries, id string, blocked bool, reason *string) error {
	if !blocked {
		ok, err := q.UnblockSlot(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflict("slot is not blocked", id)
		}
		return nil
	}
	why := ""
	if reason != nil {
		why = strings.TrimSpace(*reason)
	}
	ok, err := q.BlockSlot(ctx, id, why)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Conflict(errOccupied, id)
	}
	return nil
}

// BlockSlot marks a free slot unavailable. Slots held by a booking are rejected.
func (s *Service) BlockSlot(ctx context.Context, caller auth.Identity, id, reason string) (model.TimeSlot, error) {
	blocked := false
	return s.UpdateSlot(ctx, caller, id, Patch{IsAvailable: &blocked, BlockReason: &reason})
}

func (s *Service) UnblockSlot(ctx context.Context, caller auth.Identity, id string) (model.TimeSlot, error) {
	open := true
	return s.UpdateSlot(ctx, caller, id, Patch{IsAvailable: &open})
}

// DeleteSlot soft-deletes a slot with no active booking.
func (s *Service) DeleteSlot(ctx context.Context, caller auth.Identity, id string) (err error) {
	ctx, done := s.start(ctx, "delete", attribute.String("slot.id", id))
	defer done(&err)

	if err := requireAdmin(caller); err != nil {
		return err
	}
	var consultantID string
	err = s.store.InTx(ctx, func(q storage.Queries) error {
		cur, err := q.GetSlot(ctx, id)
		if err != nil {
			return storage.DomainError(err, "slot", id)
		}
		consultantID = cur.ConsultantID
		ok, err := q.SoftDeleteSlot(ctx, id, s.now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflict(errOccupied, id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.SlotMutation(consultantID, id)...)
	s.logger.Info("slot deleted", "slot_id", id, "consultant_id", consultantID)
	return nil
}
