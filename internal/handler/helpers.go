// Package handler exposes the JSON API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mhollis/chorequest/internal/points"
	"github.com/mhollis/chorequest/internal/task"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// writeDomainError maps service errors onto HTTP statuses. Unknown errors
// fall through as a 500 with a generic message.
func writeDomainError(w http.ResponseWriter, err error) {
	var invalid *task.InvalidTransitionError
	var insufficient *points.InsufficientPointsError

	switch {
	case errors.Is(err, task.ErrTaskNotFound),
		errors.Is(err, points.ErrRewardNotFound),
		errors.Is(err, points.ErrClaimNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &invalid):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, task.ErrProofRequired):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, task.ErrParentRequired):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, task.ErrNotAssignee):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, points.ErrRewardInactive),
		errors.Is(err, points.ErrOutOfStock),
		errors.Is(err, points.ErrClaimPending),
		errors.Is(err, points.ErrCooldownActive),
		errors.Is(err, points.ErrClaimNotPending):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":     insufficient.Error(),
			"cost":      insufficient.Cost,
			"balance":   insufficient.Balance,
			"shortfall": insufficient.Shortfall,
		})
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
