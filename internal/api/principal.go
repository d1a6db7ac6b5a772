package api

import (
	"net/http"
	"strconv"

	"github.com/pulseboard/notifications/internal/domain"
)

// principalFromRequest reads the current principal injected by the upstream
// authentication layer. Identity is never resolved here; this service only
// consumes it.
func principalFromRequest(r *http.Request) domain.Principal {
	p := domain.Principal{
		Email: r.Header.Get("X-User-Email"),
	}
	if raw := r.Header.Get("X-User-Id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			p.UserID = id
		}
	}
	return p
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
