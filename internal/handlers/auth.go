package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gatherly/auth-service/internal/apperrors"
	"github.com/gatherly/auth-service/internal/handlers/authctx"
	"github.com/gatherly/auth-service/internal/handlers/render"
	"github.com/gatherly/auth-service/internal/logger"
	"github.com/gatherly/auth-service/internal/models"
	"github.com/gatherly/auth-service/internal/token"
)

type authService interface {
	Register(ctx context.Context, username string, email string, password string, fp models.Fingerprint) (models.User, models.TokenPair, error)
	Login(ctx context.Context, email string, password string, fp models.Fingerprint) (models.User, models.TokenPair, error)
	Refresh(ctx context.Context, access token.Payload, refresh token.Payload, fp models.Fingerprint) (models.TokenPair, error)
	Logout(ctx context.Context, userID string, accessTokenID string, refreshTokenID string) error

	PublicKey() string

	// Refresh cookie management on the response
	SetAuth(w http.ResponseWriter, pair models.TokenPair)
	ClearAuth(w http.ResponseWriter)
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// authResponse is what login and register answer with: the user and the
// access token. The refresh token travels only in the http only cookie.
type authResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

func handleLogin(auth authService, log logger.Logger) http.Handler {
	type request struct {
		User struct {
			Email    string `json:"email" validate:"required,email"`
			Password string `json:"password" validate:"required"`
		} `json:"user"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		a, _ := authctx.FromContext(r.Context())

		user, pair, err := auth.Login(r.Context(), data.User.Email, data.User.Password, a.Fingerprint)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrInvalidCredentials):
				render.Error(w, "invalid credentials", http.StatusBadRequest)
			default:
				log.Error("login failed", "error", err.Error())
				render.Error(w, "unable to create auth token", http.StatusInternalServerError)
			}
			return
		}

		auth.SetAuth(w, pair)
		render.JSON(w, authResponse{
			User:  userResponse{ID: user.ID, Username: user.Username, Email: user.Email},
			Token: pair.Access.Value,
		})
	})
}

func handleRegister(auth authService, log logger.Logger) http.Handler {
	type request struct {
		User struct {
			Username string `json:"username" validate:"required,min=2,max=50"`
			Email    string `json:"email" validate:"required,email"`
			Password string `json:"password" validate:"required,min=8"`
		} `json:"user"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		a, _ := authctx.FromContext(r.Context())

		user, pair, err := auth.Register(r.Context(), data.User.Username, data.User.Email, data.User.Password, a.Fingerprint)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserAlreadyExists):
				render.Error(w, "email already in use", http.StatusBadRequest)
			default:
				log.Error("registration failed", "error", err.Error())
				render.Error(w, "unable to create auth token", http.StatusInternalServerError)
			}
			return
		}

		auth.SetAuth(w, pair)
		render.JSON(w, authResponse{
			User:  userResponse{ID: user.ID, Username: user.Username, Email: user.Email},
			Token: pair.Access.Value,
		})
	})
}

func handleRefresh(auth authService, log logger.Logger) http.Handler {
	type response struct {
		Token string `json:"token"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, _ := authctx.FromContext(r.Context())

		pair, err := auth.Refresh(r.Context(), a.AccessToken, a.RefreshToken, a.Fingerprint)
		if err != nil {
			log.Error("token rotation failed", "user_id", a.UserID, "error", err.Error())
			render.Error(w, "unable to create auth token", http.StatusInternalServerError)
			return
		}

		auth.SetAuth(w, pair)
		render.JSON(w, response{Token: pair.Access.Value})
	})
}

func handleLogout(auth authService, log logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, _ := authctx.FromContext(r.Context())

		err := auth.Logout(r.Context(), a.UserID, a.AccessToken.TokenID, a.RefreshToken.TokenID)
		if err != nil {
			log.Error("logout failed", "user_id", a.UserID, "error", err.Error())
			render.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		auth.ClearAuth(w)
		render.JSON(w, response{Message: "logged out"})
	})
}

func handlePublicKey(auth authService) http.Handler {
	type response struct {
		PublicKey string `json:"public_key"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, response{PublicKey: auth.PublicKey()})
	})
}

func handleHealthCheck() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, struct{}{})
	})
}
