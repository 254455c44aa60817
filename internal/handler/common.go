// Package handler holds the HTTP endpoints. Handlers validate input,
// call stores or the points engine, translate errors to status codes,
// and publish events for connected clients.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/chorespec/chorespec/internal/ledger"
	"github.com/chorespec/chorespec/internal/points"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError emits the {"detail": ...} shape the frontend expects.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// writePointsError maps engine errors onto HTTP statuses: not-found
// 404, state conflicts 409, validation failures 400. Anything
// unrecognized is a 500.
func writePointsError(w http.ResponseWriter, err error) {
	var insufficient *points.InsufficientPointsError

	switch {
	case errors.Is(err, points.ErrInstanceNotFound),
		errors.Is(err, points.ErrRewardNotFound),
		errors.Is(err, ledger.ErrUnknownAccount):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, points.ErrAlreadyTerminal),
		errors.Is(err, ledger.ErrOverdraft):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &insufficient):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, points.ErrReviewRequired),
		errors.Is(err, points.ErrReviewNotRequired),
		errors.Is(err, points.ErrNotInReview),
		errors.Is(err, points.ErrSplitMismatch),
		errors.Is(err, points.ErrNoContributions),
		errors.Is(err, points.ErrDuplicateContributor),
		errors.Is(err, points.ErrNegativeContribution):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
