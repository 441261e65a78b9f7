package handlers

import (
	"context"
	"net/http"

	"github.com/nkiryanov/videoroom/internal/handlers/render"
	"github.com/nkiryanov/videoroom/internal/logger"
	"github.com/nkiryanov/videoroom/internal/models"
)

type registrationService interface {
	// Issue registration token for email
	RequestSignup(ctx context.Context, email string) (models.RegToken, error)

	// Return true if the token is valid and registration finalized
	// Unknown or expired token is not an error
	CheckSignup(ctx context.Context, token string) (bool, error)
}

func handleStatus() http.Handler {
	type response struct {
		Status string `json:"status"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		render.JSON(w, response{Status: "OK"})
	})
}

func handleSignup(s registrationService, logger logger.Logger) http.Handler {
	// Email only has to be sent, any value (empty too) is accepted
	type request struct {
		Email *string `form:"email" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindForm[request](w, r)
		if err != nil {
			logger.Debug("Signup request rejected", "error", err)
			return
		}

		_, err = s.RequestSignup(r.Context(), *data.Email)
		if err != nil {
			logger.Error("Signup request failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.Status(w, http.StatusOK)
	})
}

func handleSignupCheck(s registrationService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, err := s.CheckSignup(r.Context(), r.PathValue("token"))

		switch {
		case err != nil:
			logger.Error("Signup check failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		case !ok:
			render.ServiceError(w, "Registration token not found", http.StatusNotFound)
		default:
			render.Status(w, http.StatusOK)
		}
	})
}
