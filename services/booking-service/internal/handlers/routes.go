package handlers

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
)

// Register mounts the API on mux. Authentication itself runs earlier in the middleware chain;
// these wrappers only enforce that a caller, or an administrator, is present.
func Register(mux *http.ServeMux, catalog *CatalogHandler, bookings *BookingHandler, reminders *ReminderHandler) {
	authed := func(h http.HandlerFunc) http.Handler { return auth.RequireAuth(h) }
	admin := func(h http.HandlerFunc) http.Handler { return auth.RequireRole(auth.RoleAdmin)(h) }
	handle := func(pattern string, h http.Handler) {
		_, path, _ := strings.Cut(pattern, " ")
		mux.Handle(pattern, otelhttp.WithRouteTag(path, h))
	}

	handle("GET /api/v1/public/slots", http.HandlerFunc(catalog.ListSlots))
	handle("GET /api/v1/public/slots/{id}", http.HandlerFunc(catalog.GetSlot))
	handle("GET /api/v1/public/availability", http.HandlerFunc(catalog.ListAvailability))

	handle("POST /api/v1/bookings", authed(bookings.Create))
	handle("GET /api/v1/bookings", authed(bookings.List))
	handle("GET /api/v1/bookings/{id}", authed(bookings.Get))
	handle("POST /api/v1/bookings/{id}/cancel", authed(bookings.Cancel))
	handle("POST /api/v1/bookings/{id}/reschedule", authed(bookings.Reschedule))
	handle("POST /api/v1/bookings/{id}/confirm", admin(bookings.Confirm))

	handle("POST /api/v1/reminders", authed(reminders.Create))
	handle("GET /api/v1/reminders", authed(reminders.List))
	handle("PATCH /api/v1/reminders/{id}", authed(reminders.Update))
	handle("POST /api/v1/reminders/{id}/cancel", authed(reminders.Cancel))
	handle("DELETE /api/v1/reminders/{id}", authed(reminders.Delete))

	handle("PUT /api/v1/admin/consultants/{id}", admin(catalog.UpsertConsultant))
	handle("GET /api/v1/admin/consultants/{id}", admin(catalog.GetConsultant))
	handle("POST /api/v1/admin/availability", admin(catalog.CreateAvailability))
	handle("PATCH /api/v1/admin/availability/{id}", admin(catalog.UpdateAvailability))
	handle("DELETE /api/v1/admin/availability/{id}", admin(catalog.DeleteAvailability))
	handle("POST /api/v1/admin/availability/{id}/generate", admin(catalog.GenerateSlots))
	handle("POST /api/v1/admin/slots", admin(catalog.CreateSlot))
	handle("POST /api/v1/admin/slots/bulk", admin(catalog.BulkCreateSlots))
	handle("PATCH /api/v1/admin/slots/{id}", admin(catalog.UpdateSlot))
	handle("POST /api/v1/admin/slots/{id}/block", admin(catalog.BlockSlot))
	handle("POST /api/v1/admin/slots/{id}/unblock", admin(catalog.UnblockSlot))
	handle("DELETE /api/v1/admin/slots/{id}", admin(catalog.DeleteSlot))
	handle("POST /api/v1/admin/reminders/process", admin(reminders.Process))
}
