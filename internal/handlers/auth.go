package handlers

import (
	"errors"
	"net/http"

	"github.com/salespipe/crmgate/internal/apperrors"
	"github.com/salespipe/crmgate/internal/handlers/render"
	"github.com/salespipe/crmgate/internal/logger"
	"github.com/salespipe/crmgate/internal/models"
	"github.com/salespipe/crmgate/internal/service/auth"
)

type principalResponse struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	Name  string      `json:"name"`
}

func toPrincipalResponse(p models.Principal) principalResponse {
	return principalResponse{
		ID:    p.ID.String(),
		Email: p.Email,
		Role:  p.Role,
		Name:  p.Name,
	}
}

func handleRegister(as authService, log logger.Logger) http.Handler {
	type registerRequest struct {
		Email    string      `json:"email" validate:"required,email"`
		Password string      `json:"password" validate:"required,min=8"`
		Name     string      `json:"name"`
		Role     models.Role `json:"role" validate:"omitempty,oneof=admin manager sales"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[registerRequest](w, r)
		if err != nil {
			return
		}

		principal, err := as.Register(r.Context(), auth.RegisterParams{
			Email:    data.Email,
			Password: data.Password,
			Name:     data.Name,
			Role:     data.Role,
		})
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrPrincipalExists):
				render.ServiceError(w, "User with this email already exists", http.StatusConflict)
			default:
				log.Error("registration failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSONWithStatus(w, toPrincipalResponse(principal), http.StatusCreated)
	})
}

func handleLogin(as authService, log logger.Logger) http.Handler {
	type loginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	type loginResponse struct {
		User principalResponse `json:"user"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[loginRequest](w, r)
		if err != nil {
			return
		}

		principal, session, err := as.Login(r.Context(), data.Email, data.Password)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrInvalidCredentials):
				// Same body for unknown email and wrong password
				render.ServiceError(w, "invalid credentials", http.StatusUnauthorized)
			default:
				log.Error("login failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		as.SetSessionCookies(w, session)
		render.JSON(w, loginResponse{User: toPrincipalResponse(principal)})
	})
}

func handleRefresh(as authService, log logger.Logger) http.Handler {
	type refreshResponse struct {
		OK bool `json:"ok"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refresh, err := as.ReadRefreshToken(r)
		if err != nil {
			render.ServiceError(w, "refresh token required", http.StatusUnauthorized)
			return
		}

		session, err := as.Refresh(r.Context(), refresh)
		if err != nil {
			// No cookies are rewritten on a failed exchange
			switch {
			case errors.Is(err, apperrors.ErrTokenExpired),
				errors.Is(err, apperrors.ErrTokenInvalid),
				errors.Is(err, apperrors.ErrTokenWrongKind):
				render.ServiceError(w, "invalid token", http.StatusUnauthorized)
			default:
				log.Error("refresh failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		as.SetRefreshedCookies(w, session)
		render.JSON(w, refreshResponse{OK: true})
	})
}

func handleLogout(as authService) http.Handler {
	type logoutResponse struct {
		OK bool `json:"ok"`
	}

	// Stateless logout: the server holds no session, expiring the
	// cookies is all there is to do
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		as.ClearSessionCookies(w)
		render.JSON(w, logoutResponse{OK: true})
	})
}
