// Package api exposes the donation platform's JSON API. All handlers assume
// the auth middleware has already resolved the donor identity where required.
package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/sowerhq/sower/internal/domain"
)

// pathID parses the {id} path segment as a UUID.
func pathID(r *http.Request) (uuid.UUID, error) {
	raw := r.PathValue("id")
	if raw == "" {
		return uuid.Nil, domain.Invalid("request.path", "ID required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.Invalid("request.path", "Invalid ID")
	}
	return id, nil
}

// pagination reads limit and offset query parameters with sane bounds.
func pagination(r *http.Request) (limit, offset int32) {
	limit = 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = int32(n)
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = int32(n)
		}
	}
	return limit, offset
}
