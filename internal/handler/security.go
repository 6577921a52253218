package handler

import (
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
)

const (
	apiKeyHeader = "api_key"
	adminScope   = auth.ScopeAdmin
)

var errUnauthorized = newAPIError(http.StatusUnauthorized, "unauthorized", "invalid or missing API key")

// SecurityHandler authenticates requests carrying an API key, either in the
// api_key header or as a bearer token. Keys are stored as HMAC-SHA256 hashes.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurityHandler creates a SecurityHandler with the given API key
// repository and HMAC pepper.
func NewSecurityHandler(apikeys auth.Repository, pepper []byte) *SecurityHandler {
	return &SecurityHandler{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// Authenticate attaches the principal of a valid API key to the request
// context. Requests without a key pass through anonymously; a key that does
// not resolve is rejected.
func (s *SecurityHandler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := apiKeyFrom(r)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		p, err := s.principal(r, key)
		if err != nil {
			zctx.From(r.Context()).Debug("API key rejected", zap.Error(err))
			writeError(w, r, errUnauthorized)
			return
		}
		ctx := zctx.With(auth.WithPrincipal(r.Context(), p), zap.String("user_id", p.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *SecurityHandler) principal(r *http.Request, key string) (*auth.Principal, error) {
	hash := auth.HashKeyBytes(s.pepper, key)

	info, err := s.apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
	if err != nil {
		return nil, errors.Wrap(err, "find key")
	}
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return nil, errors.Wrap(err, "decode stored hash")
	}
	if subtle.ConstantTimeCompare(hash, stored) != 1 {
		return nil, errors.New("hash mismatch")
	}
	return &auth.Principal{KeyID: info.ID, UserID: info.UserID, Scopes: info.Scopes}, nil
}

func apiKeyFrom(r *http.Request) string {
	if key := r.Header.Get(apiKeyHeader); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.PrincipalFromContext(r.Context()) == nil {
			writeError(w, r, errUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireScope rejects anonymous requests with 401 and principals lacking
// scope with 403.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := auth.PrincipalFromContext(r.Context())
			switch {
			case p == nil:
				writeError(w, r, errUnauthorized)
			case !p.HasScope(scope):
				writeError(w, r, newAPIError(http.StatusForbidden, "forbidden", "missing scope "+scope))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
