// Package admin holds store-administrator operations that change what the
// availability pipeline reads: closure blocks and store opening hours.
package admin

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/robertarktes/workshop-bookings/internal/availability"
	"github.com/robertarktes/workshop-bookings/internal/clock"
	"github.com/robertarktes/workshop-bookings/internal/domain"
	"github.com/robertarktes/workshop-bookings/internal/storage"
)

type BlockInput struct {
	StoreID      uuid.UUID
	TechnicianID *uuid.UUID
	Start        time.Time
	End          time.Time
	Reason       string
}

type Service struct {
	store storage.AdminStore
	clock clock.Clock
}

func NewService(store storage.AdminStore, clk clock.Clock) *Service {
	return &Service{store: store, clock: clk}
}

func (s *Service) CreateBlock(ctx context.Context, in BlockInput) (*domain.AvailabilityBlock, error) {
	iv, err := domain.NewInterval(in.Start, in.End)
	if err != nil {
		return nil, err
	}

	block := domain.AvailabilityBlock{
		ID:           uuid.New(),
		StoreID:      in.StoreID,
		TechnicianID: in.TechnicianID,
		Start:        iv.Start,
		End:          iv.End,
		CreatedAt:    s.clock.Now(),
	}
	if reason := strings.TrimSpace(in.Reason); reason != "" {
		block.Reason = &reason
	}

	if err := s.store.InsertBlock(ctx, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

func (s *Service) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteBlock(ctx, id)
}

func (s *Service) UpdateStore(ctx context.Context, id uuid.UUID, upd domain.StoreUpdate) (*domain.Store, error) {
	if upd.Name == nil && upd.OpeningHours == nil && upd.Active == nil {
		return nil, errors.Wrap(domain.ErrInvalidInput, "nothing to update")
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, errors.Wrap(domain.ErrInvalidInput, "store name cannot be empty")
	}
	if upd.OpeningHours != nil {
		if err := availability.ValidateOpeningHours(*upd.OpeningHours); err != nil {
			return nil, err
		}
	}
	return s.store.UpdateStore(ctx, id, upd, s.clock.Now())
}
