package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aulanet/aulanet/internal/platform/db"
	"github.com/aulanet/aulanet/internal/shared"
)

// RepositoryPort defines data access for rooms and reservations.
type RepositoryPort interface {
	ListRooms(ctx context.Context) ([]Room, error)
	ReservationsByStaffUser(ctx context.Context, userID int64) ([]Reservation, error)
	CreateReservation(ctx context.Context, userID, roomID int64, startsAt, endsAt time.Time, purpose string) (int64, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRooms returns every room ordered by name.
func (r *Repository) ListRooms(ctx context.Context) ([]Room, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, capacity FROM rooms ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("schedule: list rooms: %w", err)
	}
	defer rows.Close()
	var rooms []Room
	for rows.Next() {
		var room Room
		if err := rows.Scan(&room.ID, &room.Name, &room.Capacity); err != nil {
			return nil, fmt.Errorf("schedule: scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedule: room rows: %w", err)
	}
	return rooms, nil
}

// ReservationsByStaffUser returns the reservations made by the staff member
// linked to the account, soonest first.
func (r *Repository) ReservationsByStaffUser(ctx context.Context, userID int64) ([]Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT rv.id, rv.room_id, rm.name, st.full_name, rv.purpose, rv.starts_at, rv.ends_at
		FROM room_reservations rv
		JOIN rooms rm ON rm.id = rv.room_id
		JOIN staff st ON st.id = rv.staff_id
		WHERE st.user_id = $1
		ORDER BY rv.starts_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("schedule: list reservations: %w", err)
	}
	defer rows.Close()
	var reservations []Reservation
	for rows.Next() {
		var rv Reservation
		if err := rows.Scan(&rv.ID, &rv.RoomID, &rv.RoomName, &rv.StaffName, &rv.Purpose, &rv.StartsAt, &rv.EndsAt); err != nil {
			return nil, fmt.Errorf("schedule: scan reservation: %w", err)
		}
		reservations = append(reservations, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedule: reservation rows: %w", err)
	}
	return reservations, nil
}

// CreateReservation books the room after checking, inside one transaction,
// that no existing reservation for it intersects the window. An intersecting
// one reports shared.ErrDuplicate; an account without a staff record reports
// shared.ErrNotLinked.
func (r *Repository) CreateReservation(ctx context.Context, userID, roomID int64, startsAt, endsAt time.Time, purpose string) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var staffID int64
		err := tx.QueryRow(ctx, `SELECT id FROM staff WHERE user_id = $1`, userID).Scan(&staffID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotLinked
			}
			return err
		}
		var roomExists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)`, roomID).Scan(&roomExists); err != nil {
			return err
		}
		if !roomExists {
			return shared.ErrNotFound
		}
		var clash bool
		err = tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM room_reservations
				WHERE room_id = $1 AND starts_at < $3 AND ends_at > $2
			)`, roomID, startsAt, endsAt).Scan(&clash)
		if err != nil {
			return err
		}
		if clash {
			return shared.ErrDuplicate
		}
		return tx.QueryRow(ctx,
			`INSERT INTO room_reservations (room_id, staff_id, purpose, starts_at, ends_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			roomID, staffID, purpose, startsAt, endsAt).Scan(&id)
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotLinked) || errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrDuplicate) {
			return 0, err
		}
		return 0, fmt.Errorf("schedule: create reservation: %w", err)
	}
	return id, nil
}

var _ RepositoryPort = (*Repository)(nil)
