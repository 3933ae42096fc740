package handlers

import (
	"errors"
	"net/http"

	"github.com/salespipe/crmgate/internal/apperrors"
	"github.com/salespipe/crmgate/internal/handlers/principalctx"
	"github.com/salespipe/crmgate/internal/handlers/render"
	"github.com/salespipe/crmgate/internal/logger"
	"github.com/salespipe/crmgate/internal/models"
)

func handleMe(as authService, log logger.Logger) http.Handler {
	type meResponse struct {
		User principalResponse `json:"user"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// BearerAuth has fully verified the token already; claims carry
		// everything but we return the fresh record so role or name
		// changes show up without waiting for re-login
		claims, ok := principalctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		principal, err := as.GetPrincipal(r.Context(), claims)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrPrincipalNotFound):
				render.ServiceError(w, "not found", http.StatusNotFound)
			default:
				log.Error("principal lookup failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, meResponse{User: toPrincipalResponse(principal)})
	})
}

func handleListPrincipals(as authService, log logger.Logger) http.Handler {
	type listItem struct {
		Name  string      `json:"name"`
		Email string      `json:"email"`
		Role  models.Role `json:"role"`
	}
	type listResponse struct {
		Items []listItem `json:"items"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principals, err := as.ListPrincipals(r.Context())
		if err != nil {
			log.Error("principal list failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		items := make([]listItem, 0, len(principals))
		for _, p := range principals {
			items = append(items, listItem{Name: p.Name, Email: p.Email, Role: p.Role})
		}

		render.JSON(w, listResponse{Items: items})
	})
}
