package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/pacto/internal/model"
)

type HouseholdStore struct {
	db *sql.DB
}

func NewHouseholdStore(db *sql.DB) *HouseholdStore {
	return &HouseholdStore{db: db}
}

func scanHousehold(s scanner) (*model.Household, error) {
	var h model.Household
	var createdAt string
	if err := s.Scan(&h.ID, &h.Name, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	h.CreatedAt = t
	return &h, nil
}

func scanHouseholdMember(s scanner) (*model.HouseholdMember, error) {
	var m model.HouseholdMember
	var role, createdAt string
	if err := s.Scan(&m.HouseholdID, &m.UserID, &role, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	m.Role = model.Role(role)
	m.CreatedAt = t
	return &m, nil
}

const householdCols = `id, name, created_at`
const householdMemberCols = `household_id, user_id, role, created_at`

// Create inserts the household and its owner membership in one transaction.
func (s *HouseholdStore) Create(ctx context.Context, h *model.Household, owner model.HouseholdMember) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO households (id, name, created_at) VALUES (?, ?, ?)`,
		h.ID, h.Name, dbTime(h.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert household: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO household_members (household_id, user_id, role, created_at) VALUES (?, ?, ?, ?)`,
		owner.HouseholdID, owner.UserID, string(owner.Role), dbTime(owner.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert owner: %w", err)
	}
	return tx.Commit()
}

func (s *HouseholdStore) GetByID(ctx context.Context, id string) (*model.Household, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+householdCols+` FROM households WHERE id = ?`, id)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}

func (s *HouseholdStore) ListForUser(ctx context.Context, userID string) ([]model.Household, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT h.id, h.name, h.created_at
		 FROM households h
		 JOIN household_members hm ON h.id = hm.household_id
		 WHERE hm.user_id = ?
		 ORDER BY h.created_at ASC, h.id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list households for user: %w", err)
	}
	defer rows.Close()

	var households []model.Household
	for rows.Next() {
		h, err := scanHousehold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan household: %w", err)
		}
		households = append(households, *h)
	}
	return households, rows.Err()
}

// AddMember inserts a membership. It reports false when the user already
// belongs to the household.
func (s *HouseholdStore) AddMember(ctx context.Context, m model.HouseholdMember) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO household_members (household_id, user_id, role, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(household_id, user_id) DO NOTHING`,
		m.HouseholdID, m.UserID, string(m.Role), dbTime(m.CreatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("add member: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *HouseholdStore) GetMember(ctx context.Context, householdID, userID string) (*model.HouseholdMember, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+householdMemberCols+` FROM household_members WHERE household_id = ? AND user_id = ?`,
		householdID, userID,
	)
	m, err := scanHouseholdMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *HouseholdStore) ListMembers(ctx context.Context, householdID string) ([]model.HouseholdMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+householdMemberCols+` FROM household_members WHERE household_id = ? ORDER BY created_at ASC, user_id ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.HouseholdMember
	for rows.Next() {
		m, err := scanHouseholdMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *HouseholdStore) CreateInvite(ctx context.Context, inv model.HouseholdInvite) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO household_invites (code, household_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		inv.Code, inv.HouseholdID, dbTime(inv.ExpiresAt), dbTime(inv.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert invite: %w", err)
	}
	return nil
}

func (s *HouseholdStore) GetInvite(ctx context.Context, code string) (*model.HouseholdInvite, error) {
	var inv model.HouseholdInvite
	var expiresAt, createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT code, household_id, expires_at, created_at FROM household_invites WHERE code = ?`,
		code,
	).Scan(&inv.Code, &inv.HouseholdID, &expiresAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invite: %w", err)
	}
	if inv.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}
	if inv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &inv, nil
}
