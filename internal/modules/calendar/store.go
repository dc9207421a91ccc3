// README: Calendar event store backed by PostgreSQL.
package calendar

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"shuttle/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) EventsBetween(ctx context.Context, from, to time.Time) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, event_date, kind, description
		FROM calendar_events
		WHERE event_date BETWEEN $1 AND $2
		  AND kind IN ('holiday', 'closure')
		ORDER BY event_date, id`, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var kind string
		if err := rows.Scan(&e.ID, &e.Date, &kind, &e.Description); err != nil {
			return nil, err
		}
		e.Kind = Kind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Create(ctx context.Context, e *Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	e.Date = types.Day(e.Date)
	return s.db.QueryRow(ctx, `
		INSERT INTO calendar_events (event_date, kind, description)
		VALUES ($1, $2, $3)
		RETURNING id`, e.Date, string(e.Kind), e.Description,
	).Scan(&e.ID)
}
