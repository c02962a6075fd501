package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/reminders"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

type ReminderHandler struct {
	reminders *reminders.Service
	logger    *slog.Logger
}

func NewReminderHandler(s *reminders.Service, logger *slog.Logger) *ReminderHandler {
	return &ReminderHandler{reminders: s, logger: logger}
}

func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in reminders.CreateInput
	if !decode(w, r, &in) {
		return
	}
	in.Channel = model.Channel(strings.ToUpper(string(in.Channel)))
	rem, err := h.reminders.Create(r.Context(), caller(r), in)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, rem)
}

func (h *ReminderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := pageFromQuery(q)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	f := storage.ReminderFilter{
		BookingID:  strings.TrimSpace(q.Get("booking_id")),
		CustomerID: strings.TrimSpace(q.Get("customer_id")),
		Status:     model.ReminderStatus(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
	}
	res, err := h.reminders.List(r.Context(), caller(r), f, page)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *ReminderHandler) Update(w http.ResponseWriter, r *http.Request) {
	var p reminders.Patch
	if !decode(w, r, &p) {
		return
	}
	if p.Channel != nil {
		ch := model.Channel(strings.ToUpper(string(*p.Channel)))
		p.Channel = &ch
	}
	rem, err := h.reminders.Update(r.Context(), caller(r), r.PathValue("id"), p)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rem)
}

func (h *ReminderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	rem, err := h.reminders.Cancel(r.Context(), caller(r), r.PathValue("id"))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rem)
}

func (h *ReminderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.reminders.Delete(r.Context(), caller(r), r.PathValue("id")); err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Process runs one dispatch pass for deployments driven by an external scheduler.
func (h *ReminderHandler) Process(w http.ResponseWriter, r *http.Request) {
	res, err := h.reminders.Process(r.Context())
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
