package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func whoami(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		if !ok {
			w.Header().Set("X-Test-Identity", "anonymous")
		} else {
			w.Header().Set("X-Test-Identity", id.UserID+"/"+string(id.Role))
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticatorBearer(t *testing.T) {
	a := Authenticator{Secret: "s"}
	h := a.Middleware()(whoami(t))

	token, _ := SignHS256(NewClaims("cust-1", RoleCustomer, time.Hour), "s")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK || rw.Header().Get("X-Test-Identity") != "cust-1/CUSTOMER" {
		t.Fatalf("unexpected response %d %q", rw.Code, rw.Header().Get("X-Test-Identity"))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rw.Code)
	}

	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if rw.Header().Get("X-Test-Identity") != "anonymous" {
		t.Fatalf("expected anonymous pass-through, got %q", rw.Header().Get("X-Test-Identity"))
	}
}

func TestAuthenticatorTrustedHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "admin-1")
	req.Header.Set(HeaderRole, "admin")

	rw := httptest.NewRecorder()
	Authenticator{}.Middleware()(whoami(t)).ServeHTTP(rw, req)
	if rw.Header().Get("X-Test-Identity") != "anonymous" {
		t.Fatal("headers must be ignored unless trusted")
	}

	rw = httptest.NewRecorder()
	Authenticator{TrustHeaders: true}.Middleware()(whoami(t)).ServeHTTP(rw, req)
	if rw.Header().Get("X-Test-Identity") != "admin-1/ADMIN" {
		t.Fatalf("unexpected identity %q", rw.Header().Get("X-Test-Identity"))
	}
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(RoleAdmin)(whoami(t))

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if rw.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rw.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: "c", Role: RoleCustomer}))
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rw.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: "a", Role: RoleAdmin}))
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
}

func TestCanActOn(t *testing.T) {
	if !(Identity{UserID: "u1", Role: RoleCustomer}).CanActOn("u1") {
		t.Fatal("owner should act on own resource")
	}
	if (Identity{UserID: "u2", Role: RoleCustomer}).CanActOn("u1") {
		t.Fatal("other customer must not act")
	}
	if !(Identity{UserID: "a", Role: RoleAdmin}).CanActOn("u1") {
		t.Fatal("admin should act on any resource")
	}
}
