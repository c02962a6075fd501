package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/slots"
)

func (h *CatalogHandler) UpsertConsultant(w http.ResponseWriter, r *http.Request) {
	var c model.Consultant
	if !decode(w, r, &c) {
		return
	}
	c.ID = r.PathValue("id")
	out, err := h.availability.UpsertConsultant(r.Context(), caller(r), c)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *CatalogHandler) GetConsultant(w http.ResponseWriter, r *http.Request) {
	c, err := h.availability.GetConsultant(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *CatalogHandler) CreateAvailability(w http.ResponseWriter, r *http.Request) {
	var in availability.Input
	if !decode(w, r, &in) {
		return
	}
	a, err := h.availability.Create(r.Context(), caller(r), in)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, a)
}

func (h *CatalogHandler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
	var p availability.Patch
	if !decode(w, r, &p) {
		return
	}
	a, err := h.availability.Update(r.Context(), caller(r), r.PathValue("id"), p)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *CatalogHandler) DeleteAvailability(w http.ResponseWriter, r *http.Request) {
	if err := h.availability.SoftDelete(r.Context(), caller(r), r.PathValue("id")); err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) GenerateSlots(w http.ResponseWriter, r *http.Request) {
	var req slots.GenerateRequest
	if !decode(w, r, &req) {
		return
	}
	created, err := h.slots.GenerateFromAvailability(r.Context(), caller(r), r.PathValue("id"), req)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"data": created, "count": len(created)})
}

func (h *CatalogHandler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	var in slots.Input
	if !decode(w, r, &in) {
		return
	}
	slot, err := h.slots.CreateSlot(r.Context(), caller(r), in)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, slot)
}

type bulkSlotsRequest struct {
	ConsultantID string        `json:"consultantId"`
	Slots        []slots.Input `json:"slots"`
}

func (h *CatalogHandler) BulkCreateSlots(w http.ResponseWriter, r *http.Request) {
	var req bulkSlotsRequest
	if !decode(w, r, &req) {
		return
	}
	created, err := h.slots.BulkCreateSlots(r.Context(), caller(r), req.ConsultantID, req.Slots)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"data": created, "count": len(created)})
}

func (h *CatalogHandler) UpdateSlot(w http.ResponseWriter, r *http.Request) {
	var p slots.Patch
	if !decode(w, r, &p) {
		return
	}
	slot, err := h.slots.UpdateSlot(r.Context(), caller(r), r.PathValue("id"), p)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, slot)
}

type blockRequest struct {
	Reason string `json:"reason"`
}

func (h *CatalogHandler) BlockSlot(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	slot, err := h.slots.BlockSlot(r.Context(), caller(r), r.PathValue("id"), req.Reason)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, slot)
}

func (h *CatalogHandler) UnblockSlot(w http.ResponseWriter, r *http.Request) {
	slot, err := h.slots.UnblockSlot(r.Context(), caller(r), r.PathValue("id"))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, slot)
}

func (h *CatalogHandler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	if err := h.slots.DeleteSlot(r.Context(), caller(r), r.PathValue("id")); err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
