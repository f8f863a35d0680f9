package reservationrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherhall/events-api/internal/domain"
	"github.com/gatherhall/events-api/internal/ports/out/reservationrepo"
)

// Repo is a Postgres implementation of reservationrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Get(ctx context.Context, eventID domain.EventID, userID domain.UserID) (reservationrepo.Reservation, error) {
	if r.pool == nil {
		return reservationrepo.Reservation{}, errors.New("nil postgres pool")
	}
	eid, err := uuid.Parse(string(eventID))
	if err != nil {
		return reservationrepo.Reservation{}, reservationrepo.ErrNotFound
	}
	uid, err := uuid.Parse(string(userID))
	if err != nil {
		return reservationrepo.Reservation{}, reservationrepo.ErrNotFound
	}

	row := r.pool.QueryRow(ctx, `
		SELECT status, updated_at
		FROM reservations
		WHERE event_id = $1 AND user_id = $2
	`, eid, uid)
	var status string
	var updatedAt time.Time
	if err := row.Scan(&status, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return reservationrepo.Reservation{}, reservationrepo.ErrNotFound
		}
		return reservationrepo.Reservation{}, err
	}
	return reservationrepo.Reservation{
		EventID:   eventID,
		UserID:    userID,
		Status:    domain.RSVPStatus(status),
		UpdatedAt: updatedAt.UTC(),
	}, nil
}

func (r *Repo) Upsert(ctx context.Context, rec reservationrepo.Reservation) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	eid, err := uuid.Parse(string(rec.EventID))
	if err != nil {
		return fmt.Errorf("invalid event id: %w", err)
	}
	uid, err := uuid.Parse(string(rec.UserID))
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO reservations (event_id, user_id, status, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id, user_id) DO UPDATE
		SET status = EXCLUDED.status,
		    updated_at = EXCLUDED.updated_at
	`, eid, uid, string(rec.Status), rec.UpdatedAt.UTC())
	return err
}

func (r *Repo) ListByEvent(ctx context.Context, eventID domain.EventID) ([]reservationrepo.Reservation, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	eid, err := uuid.Parse(string(eventID))
	if err != nil {
		return []reservationrepo.Reservation{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, status, updated_at
		FROM reservations
		WHERE event_id = $1
		ORDER BY user_id ASC, updated_at ASC
	`, eid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]reservationrepo.Reservation, 0)
	for rows.Next() {
		var uid uuid.UUID
		var status string
		var updatedAt time.Time
		if err := rows.Scan(&uid, &status, &updatedAt); err != nil {
			return nil, err
		}
		out = append(out, reservationrepo.Reservation{
			EventID:   eventID,
			UserID:    domain.UserID(uid.String()),
			Status:    domain.RSVPStatus(status),
			UpdatedAt: updatedAt.UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) CountAccepted(ctx context.Context, eventID domain.EventID) (int, error) {
	if r.pool == nil {
		return 0, errors.New("nil postgres pool")
	}
	eid, err := uuid.Parse(string(eventID))
	if err != nil {
		return 0, reservationrepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM reservations
		WHERE event_id = $1 AND status = 'ACCEPTED'
	`, eid)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *Repo) DeleteByEvent(ctx context.Context, eventID domain.EventID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	eid, err := uuid.Parse(string(eventID))
	if err != nil {
		return reservationrepo.ErrNotFound
	}
	_, err = r.pool.Exec(ctx, `DELETE FROM reservations WHERE event_id = $1`, eid)
	return err
}
