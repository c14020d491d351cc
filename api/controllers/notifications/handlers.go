package notifications

import (
	"net/http"

	"github.com/google/uuid"

	apimiddleware "github.com/pizzabox/pizzabox-backend/api/middleware"
	"github.com/pizzabox/pizzabox-backend/api/responses"
	"github.com/pizzabox/pizzabox-backend/api/validators"
	notificationsvc "github.com/pizzabox/pizzabox-backend/internal/notifications"
	pkgerrors "github.com/pizzabox/pizzabox-backend/pkg/errors"
	"github.com/pizzabox/pizzabox-backend/pkg/logger"
)

type markReadRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,uuid"`
}

// List returns the caller's notification inbox, newest first.
func List(svc notificationsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := apimiddleware.UserIDFromContext(r.Context())
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unreadOnly := validators.ParseQueryBool(r, "unread_only")
		result, err := svc.List(r.Context(), userID, unreadOnly, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// MarkRead marks the given notifications as read.
func MarkRead(svc notificationsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := apimiddleware.UserIDFromContext(r.Context())
		var payload markReadRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ids := make([]uuid.UUID, 0, len(payload.IDs))
		for _, raw := range payload.IDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification id"))
				return
			}
			ids = append(ids, id)
		}
		updated, err := svc.MarkRead(r.Context(), userID, ids)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": updated})
	}
}

// MarkAllRead marks every unread notification as read.
func MarkAllRead(svc notificationsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := apimiddleware.UserIDFromContext(r.Context())
		updated, err := svc.MarkAllRead(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": updated})
	}
}

// Delete removes one notification from the caller's inbox.
func Delete(svc notificationsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := apimiddleware.UserIDFromContext(r.Context())
		id, err := validators.ParseUUIDParam(r, "notificationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), userID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}
