package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

type BookingHandler struct {
	bookings *booking.Service
	logger   *slog.Logger
}

func NewBookingHandler(b *booking.Service, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{bookings: b, logger: logger}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in booking.CreateInput
	if !decode(w, r, &in) {
		return
	}
	b, err := h.bookings.Create(r.Context(), caller(r), in)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, b)
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := pageFromQuery(q)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	f := storage.BookingFilter{
		CustomerID:   strings.TrimSpace(q.Get("customer_id")),
		ConsultantID: strings.TrimSpace(q.Get("consultant_id")),
		SlotID:       strings.TrimSpace(q.Get("slot_id")),
		Status:       model.BookingStatus(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
	}
	res, err := h.bookings.List(r.Context(), caller(r), f, page)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.Get(r.Context(), caller(r), r.PathValue("id"))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !decode(w, r, &req) {
		return
	}
	b, err := h.bookings.Cancel(r.Context(), caller(r), r.PathValue("id"), req.Reason)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

type rescheduleRequest struct {
	NewSlotID string `json:"newSlotId"`
	Reason    string `json:"reason"`
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if !decode(w, r, &req) {
		return
	}
	b, err := h.bookings.Reschedule(r.Context(), caller(r), r.PathValue("id"), req.NewSlotID, req.Reason)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.Confirm(r.Context(), caller(r), r.PathValue("id"))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}
