package api

import (
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"truthchain/errs"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// statusMappings maps each domain error kind to an HTTP status and a
// stable machine-readable kind string. Order matters only for reading.
var statusMappings = []struct {
	kind   error
	status int
	name   string
}{
	{errs.ErrSelfStakeForbidden, http.StatusConflict, "self_stake_forbidden"},
	{errs.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{errs.ErrDuplicateStake, http.StatusConflict, "duplicate_stake"},
	{errs.ErrStakeNotActive, http.StatusConflict, "stake_not_active"},
	{errs.ErrInsufficientBalance, http.StatusPaymentRequired, "insufficient_balance"},
	{errs.ErrUnknownUser, http.StatusNotFound, "unknown_user"},
	{errs.ErrUnknownPost, http.StatusNotFound, "unknown_post"},
	{errs.ErrUnknownStake, http.StatusNotFound, "unknown_stake"},
	{errs.ErrReconciliationRequired, http.StatusInternalServerError, "reconciliation_required"},
	{errs.ErrStorageUnavailable, http.StatusServiceUnavailable, "storage_unavailable"},
}

// writeError maps a domain error to its HTTP representation. Every kind
// gets its own specific message; unknown errors are logged and answered
// with the generic storage message so internals never leak.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range statusMappings {
		if errors.Is(err, m.kind) {
			if m.status >= http.StatusInternalServerError {
				log.WithFields(log.Fields{
					"path":  r.URL.Path,
					"error": err,
				}).Error("Request failed")
			}
			writeJSON(w, m.status, errorResponse{
				Error: errs.UserMessage(err),
				Kind:  m.name,
			})
			return
		}
	}

	log.WithFields(log.Fields{
		"path":  r.URL.Path,
		"error": err,
	}).Error("Unexpected error in request")
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error: errs.UserMessage(err),
		Kind:  "internal",
	})
}
