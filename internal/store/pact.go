package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/pacto/internal/model"
)

type PactStore struct {
	db *sql.DB
}

func NewPactStore(db *sql.DB) *PactStore {
	return &PactStore{db: db}
}

const pactCols = `id, household_id, title, notes, created_by_user_id, assigned_to_user_id, due_at, status,
	requires_confirmation, done_at, confirmed_at, overdue_notified_at, created_at, updated_at`

func scanPact(s scanner) (*model.Pact, error) {
	var p model.Pact
	var notes, assignedTo, dueAt, doneAt, confirmedAt, overdueAt sql.NullString
	var status, createdAt, updatedAt string
	var requires int

	err := s.Scan(
		&p.ID, &p.HouseholdID, &p.Title, &notes, &p.CreatedByUserID, &assignedTo, &dueAt, &status,
		&requires, &doneAt, &confirmedAt, &overdueAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Notes = nullStringPtr(notes)
	p.AssignedToUserID = nullStringPtr(assignedTo)
	p.RequiresConfirmation = requires != 0
	if p.Status, err = model.ParsePactStatus(status); err != nil {
		return nil, err
	}
	if p.DueAt, err = parseNullTime(dueAt); err != nil {
		return nil, fmt.Errorf("parse due_at: %w", err)
	}
	if p.DoneAt, err = parseNullTime(doneAt); err != nil {
		return nil, fmt.Errorf("parse done_at: %w", err)
	}
	if p.ConfirmedAt, err = parseNullTime(confirmedAt); err != nil {
		return nil, fmt.Errorf("parse confirmed_at: %w", err)
	}
	if p.OverdueNotifiedAt, err = parseNullTime(overdueAt); err != nil {
		return nil, fmt.Errorf("parse overdue_notified_at: %w", err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &p, nil
}

func scanPacts(rows *sql.Rows) ([]model.Pact, error) {
	var pacts []model.Pact
	for rows.Next() {
		p, err := scanPact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pact: %w", err)
		}
		pacts = append(pacts, *p)
	}
	return pacts, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *PactStore) Create(ctx context.Context, p *model.Pact) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pacts (id, household_id, title, notes, created_by_user_id, assigned_to_user_id, due_at,
			status, requires_confirmation, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.HouseholdID, p.Title, dbNullString(p.Notes), p.CreatedByUserID, dbNullString(p.AssignedToUserID),
		dbNullTime(p.DueAt), string(p.Status), boolInt(p.RequiresConfirmation), dbTime(p.CreatedAt), dbTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert pact: %w", err)
	}
	return nil
}

// GetByID returns the pact only if it belongs to householdID.
func (s *PactStore) GetByID(ctx context.Context, householdID, id string) (*model.Pact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pactCols+` FROM pacts WHERE id = ? AND household_id = ?`, id, householdID)
	p, err := scanPact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pact: %w", err)
	}
	return p, nil
}

// PactQuery narrows a household listing. Zero values mean no restriction.
type PactQuery struct {
	DueFrom    *time.Time // inclusive
	DueTo      *time.Time // inclusive
	DueBefore  *time.Time // exclusive
	NotDone    bool
	Unassigned bool
}

// List returns the household's pacts, newest first.
func (s *PactStore) List(ctx context.Context, householdID string, q PactQuery) ([]model.Pact, error) {
	where := []string{"household_id = ?"}
	args := []any{householdID}

	if q.DueFrom != nil {
		where = append(where, "due_at >= ?")
		args = append(args, dbTime(*q.DueFrom))
	}
	if q.DueTo != nil {
		where = append(where, "due_at <= ?")
		args = append(args, dbTime(*q.DueTo))
	}
	if q.DueBefore != nil {
		where = append(where, "due_at < ?")
		args = append(args, dbTime(*q.DueBefore))
	}
	if q.NotDone {
		where = append(where, "status != 'DONE'")
	}
	if q.Unassigned {
		where = append(where, "assigned_to_user_id IS NULL")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pactCols+` FROM pacts WHERE `+strings.Join(where, " AND ")+` ORDER BY created_at DESC, id DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list pacts: %w", err)
	}
	defer rows.Close()
	return scanPacts(rows)
}

// Update writes every mutable field of p. The write only applies while the
// stored status still equals expected; it reports whether a row changed.
func (s *PactStore) Update(ctx context.Context, p *model.Pact, expected model.PactStatus) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE pacts SET title = ?, notes = ?, assigned_to_user_id = ?, due_at = ?, status = ?,
			requires_confirmation = ?, done_at = ?, updated_at = ?
		 WHERE id = ? AND household_id = ? AND status = ?`,
		p.Title, dbNullString(p.Notes), dbNullString(p.AssignedToUserID), dbNullTime(p.DueAt), string(p.Status),
		boolInt(p.RequiresConfirmation), dbNullTime(p.DoneAt), dbTime(p.UpdatedAt),
		p.ID, p.HouseholdID, string(expected),
	)
	if err != nil {
		return false, fmt.Errorf("update pact: %w", err)
	}
	return affectedOne(result)
}

// Assign sets the assignee. It reports false when the pact no longer exists.
func (s *PactStore) Assign(ctx context.Context, householdID, id, userID string, now time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE pacts SET assigned_to_user_id = ?, updated_at = ? WHERE id = ? AND household_id = ?`,
		userID, dbTime(now), id, householdID,
	)
	if err != nil {
		return false, fmt.Errorf("assign pact: %w", err)
	}
	return affectedOne(result)
}

// MarkDone sets DONE and stamps done_at unless the pact is already done.
func (s *PactStore) MarkDone(ctx context.Context, householdID, id string, now time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE pacts SET status = 'DONE', done_at = ?, updated_at = ?
		 WHERE id = ? AND household_id = ? AND status != 'DONE'`,
		dbTime(now), dbTime(now), id, householdID,
	)
	if err != nil {
		return false, fmt.Errorf("mark pact done: %w", err)
	}
	return affectedOne(result)
}

// Confirm stamps confirmed_at once, and only on a done pact that requires
// confirmation.
func (s *PactStore) Confirm(ctx context.Context, householdID, id string, now time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE pacts SET confirmed_at = ?, updated_at = ?
		 WHERE id = ? AND household_id = ? AND confirmed_at IS NULL AND status = 'DONE' AND requires_confirmation = 1`,
		dbTime(now), dbTime(now), id, householdID,
	)
	if err != nil {
		return false, fmt.Errorf("confirm pact: %w", err)
	}
	return affectedOne(result)
}

func (s *PactStore) Delete(ctx context.Context, householdID, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pacts WHERE id = ? AND household_id = ?`, id, householdID)
	if err != nil {
		return fmt.Errorf("delete pact: %w", err)
	}
	return nil
}

// ListOverdue returns pacts due before now that are not done and have not
// been flagged by a previous sweep.
func (s *PactStore) ListOverdue(ctx context.Context, now time.Time) ([]model.Pact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pactCols+` FROM pacts
		 WHERE due_at < ? AND status != 'DONE' AND overdue_notified_at IS NULL
		 ORDER BY due_at ASC, id ASC`,
		dbTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("list overdue pacts: %w", err)
	}
	defer rows.Close()
	return scanPacts(rows)
}

// ClaimOverdue sets the overdue watermark. Only one caller per pact gets
// true, and only while the pact is still past due and not done.
func (s *PactStore) ClaimOverdue(ctx context.Context, id string, now time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE pacts SET overdue_notified_at = ?
		 WHERE id = ? AND overdue_notified_at IS NULL AND status != 'DONE' AND due_at < ?`,
		dbTime(now), id, dbTime(now),
	)
	if err != nil {
		return false, fmt.Errorf("claim overdue pact: %w", err)
	}
	return affectedOne(result)
}

func affectedOne(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}
