package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	sessionHeader = "X-Cart-Session"
	sessionCookie = "cart_session"
	sessionMaxAge = 30 * 24 * time.Hour
)

var errInvalidSession = newAPIError(http.StatusBadRequest, "invalid_session", "cart session must be a UUID")

// cartSession returns the session sent by the client, preferring the header
// over the cookie. It returns "" when the client has none.
func cartSession(r *http.Request) (string, error) {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		if c, err := r.Cookie(sessionCookie); err == nil {
			id = c.Value
		}
	}
	if id == "" {
		return "", nil
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return "", errInvalidSession
	}
	return u.String(), nil
}

// ensureCartSession returns the client's session or starts a new one and
// hands it back in both the header and the cookie.
func (h *Handler) ensureCartSession(w http.ResponseWriter, r *http.Request) (string, error) {
	id, err := cartSession(r)
	if err != nil || id != "" {
		return id, err
	}
	id = uuid.NewString()
	w.Header().Set(sessionHeader, id)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return id, nil
}
