package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/gatherly/auth-service/internal/apperrors"
	"github.com/gatherly/auth-service/internal/handlers/authctx"
	"github.com/gatherly/auth-service/internal/handlers/render"
	"github.com/gatherly/auth-service/internal/models"
	"github.com/gatherly/auth-service/internal/service/auth"
	"github.com/gatherly/auth-service/internal/token"
)

const (
	accessCookieName = "access_token"
	accessQueryParam = "accessToken"
)

type SessionManager interface {
	DecodeAccess(tokenString string) (token.Payload, error)
	DecodeExpiredAccess(tokenString string) (token.Payload, error)
	DecodeRefresh(tokenString string) (token.Payload, error)
	ValidatePair(ctx context.Context, access token.Payload, refresh token.Payload, fp models.Fingerprint) error
}

// Rejection is a gate's verdict when the request must not pass
type Rejection struct {
	Status             int
	Message            string
	ClearRefreshCookie bool
}

// Gate inspects the request and fills in the auth data it is
// responsible for. A nil result lets the request pass to the next gate.
type Gate func(r *http.Request, a *authctx.Auth) *Rejection

// Chain runs gates in order and hands the accumulated auth data to the
// next handler via the request context. The first rejection wins.
func Chain(gates ...Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var a authctx.Auth

			for _, gate := range gates {
				rejection := gate(r, &a)
				if rejection == nil {
					continue
				}

				if rejection.ClearRefreshCookie {
					http.SetCookie(w, &http.Cookie{
						Name:     auth.RefreshCookieName,
						Value:    "",
						Path:     "/",
						MaxAge:   -1,
						HttpOnly: true,
						SameSite: http.SameSiteStrictMode,
					})
				}
				render.Error(w, rejection.Message, rejection.Status)
				return
			}

			ctx := authctx.New(r.Context(), a)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SenderData records the request origin used to bind tokens to a device.
// It never rejects: an unparsable remote address is kept as is.
func SenderData() Gate {
	return func(r *http.Request, a *authctx.Auth) *Rejection {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ip = host
		}

		a.Fingerprint = models.Fingerprint{
			IPAddr:    ip,
			UserAgent: r.UserAgent(),
		}
		return nil
	}
}

// TokenSource names a place the access token may arrive in
type TokenSource string

const (
	SourceQuery  TokenSource = "query"
	SourceBody   TokenSource = "body"
	SourceCookie TokenSource = "cookie"
)

// AccessToken extracts the access token from the listed sources in order
// and decodes it. With allowExpired set the expiry and signature checks
// are skipped, which the refresh flow needs to read claims from a token
// that already ran out.
func AccessToken(sm SessionManager, allowExpired bool, sources ...TokenSource) Gate {
	return func(r *http.Request, a *authctx.Auth) *Rejection {
		raw := extractToken(r, sources)
		if raw == "" {
			return &Rejection{Status: http.StatusBadRequest, Message: "missing auth token"}
		}

		decode := sm.DecodeAccess
		if allowExpired {
			decode = sm.DecodeExpiredAccess
		}

		payload, err := decode(raw)
		if err != nil {
			return &Rejection{Status: http.StatusBadRequest, Message: "invalid auth token provided"}
		}

		a.AccessToken = payload
		a.UserID = payload.UserID
		return nil
	}
}

// RefreshToken extracts the refresh token from its cookie and decodes it
func RefreshToken(sm SessionManager) Gate {
	return func(r *http.Request, a *authctx.Auth) *Rejection {
		cookie, err := r.Cookie(auth.RefreshCookieName)
		if err != nil || cookie.Value == "" {
			return &Rejection{Status: http.StatusBadRequest, Message: "missing refresh token"}
		}

		payload, err := sm.DecodeRefresh(cookie.Value)
		if err != nil {
			return &Rejection{Status: http.StatusBadRequest, Message: "invalid refresh token provided"}
		}

		a.RefreshToken = payload
		return nil
	}
}

// ValidatePair checks the decoded pair against the stored records.
// A mismatch means the pair got burned server side, so the stale cookie
// is cleared along with the forbidden response.
func ValidatePair(sm SessionManager) Gate {
	return func(r *http.Request, a *authctx.Auth) *Rejection {
		err := sm.ValidatePair(r.Context(), a.AccessToken, a.RefreshToken, a.Fingerprint)

		switch {
		case err == nil:
			return nil
		case errors.Is(err, apperrors.ErrTokenNotFound):
			return &Rejection{Status: http.StatusBadRequest, Message: "no token saved for given user id"}
		case errors.Is(err, apperrors.ErrPairMismatch), errors.Is(err, apperrors.ErrTokenInvalid):
			return &Rejection{
				Status:             http.StatusForbidden,
				Message:            "could not validate token sender. token revoked",
				ClearRefreshCookie: true,
			}
		default:
			return &Rejection{Status: http.StatusInternalServerError, Message: "internal server error"}
		}
	}
}

func extractToken(r *http.Request, sources []TokenSource) string {
	for _, source := range sources {
		var value string

		switch source {
		case SourceQuery:
			value = r.URL.Query().Get(accessQueryParam)
		case SourceCookie:
			if cookie, err := r.Cookie(accessCookieName); err == nil {
				value = cookie.Value
			}
		case SourceBody:
			value = tokenFromBody(r)
		}

		if value != "" {
			return value
		}
	}

	return ""
}

// tokenFromBody peeks the access token from the json body and puts the
// body back so the handler can still bind it
func tokenFromBody(r *http.Request) string {
	if r.Body == nil {
		return ""
	}

	raw, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}

	var body struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}

	return body.AccessToken
}
