package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/pacto/internal/model"
)

type ActivityStore struct {
	db *sql.DB
}

func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

func (s *ActivityStore) Create(ctx context.Context, a *model.PactActivity) error {
	payload := a.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pact_activities (id, pact_id, household_id, by_user_id, type, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.PactID, a.HouseholdID, a.ByUserID, string(a.Type), string(data), dbTime(a.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// FeedPosition is the (created_at, id) key of the last row a client has seen.
type FeedPosition struct {
	CreatedAt time.Time
	ID        string
}

// ListFeed returns up to limit activities of the household ordered by
// (created_at desc, id desc), strictly after the given position.
func (s *ActivityStore) ListFeed(ctx context.Context, householdID string, limit int, after *FeedPosition) ([]model.PactActivity, error) {
	query := `SELECT a.id, a.pact_id, a.household_id, a.by_user_id, a.type, a.payload, a.created_at,
			p.id, p.title, p.status
		 FROM pact_activities a
		 LEFT JOIN pacts p ON p.id = a.pact_id
		 WHERE a.household_id = ?`
	args := []any{householdID}

	if after != nil {
		ts := dbTime(after.CreatedAt)
		query += ` AND (a.created_at < ? OR (a.created_at = ? AND a.id < ?))`
		args = append(args, ts, ts, after.ID)
	}
	query += ` ORDER BY a.created_at DESC, a.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activity feed: %w", err)
	}
	defer rows.Close()

	var items []model.PactActivity
	for rows.Next() {
		var a model.PactActivity
		var typ, payload, createdAt string
		var pactID, pactTitle, pactStatus sql.NullString

		if err := rows.Scan(
			&a.ID, &a.PactID, &a.HouseholdID, &a.ByUserID, &typ, &payload, &createdAt,
			&pactID, &pactTitle, &pactStatus,
		); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if a.Type, err = model.ParseActivityType(typ); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &a.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if pactID.Valid {
			a.Pact = &model.PactSummary{
				ID:     pactID.String,
				Title:  pactTitle.String,
				Status: model.PactStatus(pactStatus.String),
			}
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
