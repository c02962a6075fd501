package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/slots"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

// CatalogHandler serves availability and slots, publicly and for administrators.
type CatalogHandler struct {
	availability *availability.Service
	slots        *slots.Service
	logger       *slog.Logger
}

func NewCatalogHandler(a *availability.Service, s *slots.Service, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{availability: a, slots: s, logger: logger}
}

func (h *CatalogHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := pageFromQuery(q)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	f := storage.SlotFilter{
		ConsultantID:   strings.TrimSpace(q.Get("consultant_id")),
		ShowroomID:     strings.TrimSpace(q.Get("showroom_id")),
		AvailabilityID: strings.TrimSpace(q.Get("availability_id")),
	}
	if f.From, err = timeFromQuery(q, "from"); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if f.To, err = timeFromQuery(q, "to"); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if f.Available, err = boolFromQuery(q, "available"); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	res, err := h.slots.ListSlots(r.Context(), f, page)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *CatalogHandler) GetSlot(w http.ResponseWriter, r *http.Request) {
	slot, err := h.slots.GetSlot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, slot)
}

func (h *CatalogHandler) ListAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := pageFromQuery(q)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	f := storage.AvailabilityFilter{
		ConsultantID: strings.TrimSpace(q.Get("consultant_id")),
		FromDate:     strings.TrimSpace(q.Get("from")),
		ToDate:       strings.TrimSpace(q.Get("to")),
	}
	res, err := h.availability.FindByConsultant(r.Context(), f, page)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
