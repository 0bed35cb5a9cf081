package http

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/robertarktes/workshop-bookings/internal/domain"
	"github.com/robertarktes/workshop-bookings/internal/observability"
)

type errorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

var errorCodes = []struct {
	target error
	status int
	code   string
}{
	{domain.ErrStoreNotFound, http.StatusNotFound, "STORE_NOT_FOUND"},
	{domain.ErrServiceNotFound, http.StatusNotFound, "SERVICE_NOT_FOUND"},
	{domain.ErrTechnicianNotFound, http.StatusNotFound, "TECHNICIAN_NOT_FOUND"},
	{domain.ErrBookingNotFound, http.StatusNotFound, "BOOKING_NOT_FOUND"},
	{domain.ErrBlockNotFound, http.StatusNotFound, "BLOCK_NOT_FOUND"},
	{domain.ErrSlotConflict, http.StatusConflict, "SLOT_CONFLICT"},
	{domain.ErrInvalidStatusTransition, http.StatusConflict, "INVALID_STATUS_TRANSITION"},
	{domain.ErrStaleUpdate, http.StatusConflict, "STALE_UPDATE"},
	{domain.ErrInvalidInterval, http.StatusBadRequest, "INVALID_INTERVAL"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{
			Code:    "VALIDATION_FAILED",
			Message: "request validation failed",
			Fields:  fields,
		}})
		return
	}

	for _, ec := range errorCodes {
		if errors.Is(err, ec.target) {
			writeJSON(w, ec.status, errorBody{Error: errorDetail{Code: ec.code, Message: err.Error()}})
			return
		}
	}

	observability.LoggerFrom(r.Context(), h.logger).WithError(err).Error("request failed")
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{Code: "INTERNAL", Message: "internal error"}})
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{Code: code, Message: message}})
}
