package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRouter_MethodRouting(t *testing.T) {
	r := New()

	r.Get("/api/projects", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/api/projects", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodGet, http.StatusOK},
		{http.MethodPost, http.StatusCreated},
		{http.MethodDelete, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tt.method, "/api/projects", nil))
		if w.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.method, w.Code, tt.want)
		}
	}
}

func TestRouter_PathValues(t *testing.T) {
	r := New()

	var got string
	r.Post("/api/subscriptions/{id}/pause", func(w http.ResponseWriter, req *http.Request) {
		got = req.PathValue("id")
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/subscriptions/sub_42/pause", nil))

	if got != "sub_42" {
		t.Errorf("PathValue(id) = %q, want sub_42", got)
	}
}

func TestRouter_MiddlewareOrder(t *testing.T) {
	var order []string
	record := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, "enter "+name)
				next.ServeHTTP(w, r)
				order = append(order, "exit "+name)
			})
		}
	}

	r := New(record("global"))
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "handler")
	}, record("route"))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	want := []string{"enter global", "enter route", "handler", "exit route", "exit global"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestRouter_GroupInheritsChain(t *testing.T) {
	var globalHits, groupHits int
	count := func(n *int) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				*n++
				next.ServeHTTP(w, r)
			})
		}
	}

	r := New(count(&globalHits))
	r.Get("/public", func(w http.ResponseWriter, _ *http.Request) {})

	authed := r.Group(count(&groupHits))
	authed.Get("/private", func(w http.ResponseWriter, _ *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/public", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/private", nil))

	if globalHits != 2 {
		t.Errorf("global middleware hits = %d, want 2", globalHits)
	}
	if groupHits != 1 {
		t.Errorf("group middleware hits = %d, want 1", groupHits)
	}
}
