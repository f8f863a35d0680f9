package eventrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherhall/events-api/internal/domain"
	"github.com/gatherhall/events-api/internal/ports/out/eventrepo"
)

// Repo is a Postgres implementation of eventrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, e eventrepo.Event) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(e.ID))
	if err != nil {
		return fmt.Errorf("invalid event id: %w", err)
	}
	authorID, err := uuid.Parse(string(e.AuthorID))
	if err != nil {
		return fmt.Errorf("invalid author id: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO events (id, title, description, starts_at, author_id, max_attendees, attendee_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`, id, e.Title, e.Description, e.StartsAt.UTC(), authorID, e.MaxAttendees, e.AttendeeCount, e.CreatedAt.UTC(), e.UpdatedAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return eventrepo.ErrAlreadyExists
	}
	return nil
}

func (r *Repo) Save(ctx context.Context, e eventrepo.Event) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(e.ID))
	if err != nil {
		return eventrepo.ErrNotFound
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE events
		SET title = $2,
		    description = $3,
		    starts_at = $4,
		    max_attendees = $5,
		    attendee_count = $6,
		    updated_at = $7
		WHERE id = $1
	`, id, e.Title, e.Description, e.StartsAt.UTC(), e.MaxAttendees, e.AttendeeCount, e.UpdatedAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return eventrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.EventID) (eventrepo.Event, error) {
	if r.pool == nil {
		return eventrepo.Event{}, errors.New("nil postgres pool")
	}
	eid, err := uuid.Parse(string(id))
	if err != nil {
		return eventrepo.Event{}, eventrepo.ErrNotFound
	}

	row := r.pool.QueryRow(ctx, `
		SELECT title, description, starts_at, author_id, max_attendees, attendee_count, created_at, updated_at
		FROM events
		WHERE id = $1
	`, eid)
	e := eventrepo.Event{ID: id}
	var authorID uuid.UUID
	if err := row.Scan(&e.Title, &e.Description, &e.StartsAt, &authorID, &e.MaxAttendees, &e.AttendeeCount, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return eventrepo.Event{}, eventrepo.ErrNotFound
		}
		return eventrepo.Event{}, err
	}
	e.AuthorID = domain.UserID(authorID.String())
	normalizeTimes(&e)
	return e, nil
}

func (r *Repo) List(ctx context.Context) ([]eventrepo.Event, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, description, starts_at, author_id, max_attendees, attendee_count, created_at, updated_at
		FROM events
		ORDER BY created_at DESC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]eventrepo.Event, 0)
	for rows.Next() {
		var e eventrepo.Event
		var id, authorID uuid.UUID
		if err := rows.Scan(&id, &e.Title, &e.Description, &e.StartsAt, &authorID, &e.MaxAttendees, &e.AttendeeCount, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.ID = domain.EventID(id.String())
		e.AuthorID = domain.UserID(authorID.String())
		normalizeTimes(&e)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) SetAttendeeCount(ctx context.Context, id domain.EventID, n int) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	eid, err := uuid.Parse(string(id))
	if err != nil {
		return eventrepo.ErrNotFound
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE events SET attendee_count = $2 WHERE id = $1
	`, eid, n)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return eventrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.EventID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	eid, err := uuid.Parse(string(id))
	if err != nil {
		return eventrepo.ErrNotFound
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, eid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return eventrepo.ErrNotFound
	}
	return nil
}

func normalizeTimes(e *eventrepo.Event) {
	e.StartsAt = e.StartsAt.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
}
