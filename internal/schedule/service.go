package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aulanet/aulanet/internal/shared"
)

// Service wraps room scheduling rules.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRooms returns the room catalog.
func (s *Service) ListRooms(ctx context.Context) ([]Room, error) {
	return s.repo.ListRooms(ctx)
}

// ReservationsFor returns the reservations made by the account's staff member.
func (s *Service) ReservationsFor(ctx context.Context, userID int64) ([]Reservation, error) {
	return s.repo.ReservationsByStaffUser(ctx, userID)
}

// Reserve books a room for the account's staff member. A window that
// intersects an existing reservation for the same room is rejected with
// shared.ErrDuplicate, never a constraint crash.
func (s *Service) Reserve(ctx context.Context, userID, roomID int64, startsAt, endsAt time.Time, purpose string) (int64, error) {
	purpose = strings.TrimSpace(purpose)
	if purpose == "" {
		return 0, fmt.Errorf("%w: el propósito es obligatorio", shared.ErrValidation)
	}
	if !endsAt.After(startsAt) {
		return 0, fmt.Errorf("%w: el horario de fin debe ser posterior al de inicio", shared.ErrValidation)
	}
	return s.repo.CreateReservation(ctx, userID, roomID, startsAt, endsAt, purpose)
}
