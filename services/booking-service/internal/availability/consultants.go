package availability

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

// UpsertConsultant registers or replaces a consultant. The id must be a UUID and the time zone
// a valid IANA name.
func (s *Service) UpsertConsultant(ctx context.Context, caller auth.Identity, c model.Consultant) (model.Consultant, error) {
	if err := requireAdmin(caller); err != nil {
		return model.Consultant{}, err
	}
	c.ID = strings.TrimSpace(c.ID)
	c.Name = strings.TrimSpace(c.Name)
	c.Timezone = strings.TrimSpace(c.Timezone)
	if c.ID == "" || c.Name == "" {
		return model.Consultant{}, apperr.Validation("id and name are required")
	}
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return model.Consultant{}, apperr.Validationf("consultant id %q is not a UUID", c.ID)
	}
	c.ID = id.String()
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return model.Consultant{}, apperr.Validationf("unknown time zone %q", c.Timezone)
	}
	if err := s.store.UpsertConsultant(ctx, c); err != nil {
		return model.Consultant{}, err
	}
	s.logger.Info("consultant upserted", "consultant_id", c.ID, "timezone", c.Timezone)
	return c, nil
}

func (s *Service) GetConsultant(ctx context.Context, id string) (model.Consultant, error) {
	c, err := s.store.GetConsultant(ctx, id)
	return c, storage.DomainError(err, "consultant", id)
}
