package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/robertarktes/workshop-bookings/internal/admin"
	"github.com/robertarktes/workshop-bookings/internal/availability"
	"github.com/robertarktes/workshop-bookings/internal/booking"
	"github.com/robertarktes/workshop-bookings/internal/domain"
	"github.com/robertarktes/workshop-bookings/internal/locks"
	"github.com/robertarktes/workshop-bookings/internal/observability"
)

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Availability *availability.Service
	Bookings     *booking.Service
	Locks        *locks.Manager
	Admin        *admin.Service
	Location     *time.Location
	Logger       observability.Logger
	Ready        map[string]Pinger
}

type Handlers struct {
	availability *availability.Service
	bookings     *booking.Service
	locks        *locks.Manager
	admin        *admin.Service
	loc          *time.Location
	logger       observability.Logger
	ready        map[string]Pinger
	validate     *validator.Validate
}

func NewHandlers(d Deps) *Handlers {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Handlers{
		availability: d.Availability,
		bookings:     d.Bookings,
		locks:        d.Locks,
		admin:        d.Admin,
		loc:          loc,
		logger:       d.Logger,
		ready:        d.Ready,
		validate:     newValidator(),
	}
}

func (h *Handlers) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Mark(errors.Wrap(err, "decode body"), domain.ErrInvalidInput)
	}
	return h.validate.Struct(v)
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errors.Wrapf(domain.ErrInvalidInput, "malformed %s", name)
	}
	return id, nil
}

func (h *Handlers) GetAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := availabilityQuery{
		StoreID:      q.Get("store_id"),
		ServiceID:    q.Get("service_id"),
		Date:         q.Get("date"),
		TechnicianID: q.Get("technician_id"),
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, r, err)
		return
	}
	date, err := time.ParseInLocation(time.DateOnly, req.Date, h.loc)
	if err != nil {
		h.writeError(w, r, errors.Wrap(domain.ErrInvalidInput, "malformed date"))
		return
	}
	tech, err := parseOptionalUUID(&req.TechnicianID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	storeID := uuid.MustParse(req.StoreID)
	serviceID := uuid.MustParse(req.ServiceID)

	slots, err := h.availability.AvailableSlots(r.Context(), availability.Query{
		StoreID:      storeID,
		ServiceID:    serviceID,
		Date:         date,
		TechnicianID: tech,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{
		Date:      req.Date,
		StoreID:   storeID,
		ServiceID: serviceID,
		Slots:     slots,
	})
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	start, err := parseDateTime(req.StartDatetime, h.loc)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	tech, err := parseOptionalUUID(req.TechnicianID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	b, err := h.bookings.CreateBooking(r.Context(), booking.CreateInput{
		StoreID:      uuid.MustParse(req.StoreID),
		ServiceID:    uuid.MustParse(req.ServiceID),
		TechnicianID: tech,
		Start:        start,
		Customer: domain.Customer{
			Name:  req.CustomerName,
			Email: req.CustomerEmail,
			Phone: req.CustomerPhone,
		},
		Notes:     req.Notes,
		SessionID: req.SessionID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		writeBadRequest(w, "INVALID_INPUT", "missing booking token")
		return
	}
	b, err := h.bookings.GetByToken(r.Context(), token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req updateBookingRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	upd := domain.BookingUpdate{Notes: req.Notes}
	if req.Status != nil {
		st, err := domain.ParseBookingStatus(*req.Status)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		upd.Status = &st
	}
	b, err := h.bookings.UpdateBooking(r.Context(), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) AcquireLock(w http.ResponseWriter, r *http.Request) {
	var req acquireLockRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	start, err := parseDateTime(req.StartDatetime, h.loc)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	end, err := parseDateTime(req.EndDatetime, h.loc)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	tech, err := parseOptionalUUID(req.TechnicianID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	lock, err := h.locks.AcquireLock(r.Context(), locks.AcquireRequest{
		StoreID:      uuid.MustParse(req.StoreID),
		Start:        start,
		End:          end,
		SessionID:    req.SessionID,
		TechnicianID: tech,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lock)
}

func (h *Handlers) ReleaseLock(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if err := h.locks.ReleaseLock(r.Context(), sessionID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) CreateBlock(w http.ResponseWriter, r *http.Request) {
	storeID, err := pathUUID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req createBlockRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	start, err := parseDateTime(req.StartDatetime, h.loc)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	end, err := parseDateTime(req.EndDatetime, h.loc)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	tech, err := parseOptionalUUID(req.TechnicianID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	blk, err := h.admin.CreateBlock(r.Context(), admin.BlockInput{
		StoreID:      storeID,
		TechnicianID: tech,
		Start:        start,
		End:          end,
		Reason:       req.Reason,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, blockResponse{
		ID:           blk.ID,
		StoreID:      blk.StoreID,
		TechnicianID: blk.TechnicianID,
		Start:        blk.Start,
		End:          blk.End,
		Reason:       blk.Reason,
	})
}

func (h *Handlers) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.admin.DeleteBlock(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) UpdateStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req updateStoreRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	st, err := h.admin.UpdateStore(r.Context(), id, toStoreUpdate(req))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, storeResponse{
		ID:           st.ID,
		Name:         st.Name,
		OpeningHours: st.OpeningHours,
		Active:       st.Active,
	})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.ready))
	for name, p := range h.ready {
		if err := p.Ping(ctx); err != nil {
			observability.LoggerFrom(ctx, h.logger).WithError(err).WithField("dependency", name).Warn("readiness check failed")
			checks[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "up"
	}
	writeJSON(w, status, checks)
}
