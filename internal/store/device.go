package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/pacto/internal/model"
)

type DeviceStore struct {
	db *sql.DB
}

func NewDeviceStore(db *sql.DB) *DeviceStore {
	return &DeviceStore{db: db}
}

const deviceCols = `id, user_id, token, platform, p256dh_key, auth_key, created_at, updated_at`

func scanDevice(s scanner) (*model.DeviceToken, error) {
	var d model.DeviceToken
	var platform, createdAt, updatedAt string
	if err := s.Scan(&d.ID, &d.UserID, &d.Token, &platform, &d.P256dhKey, &d.AuthKey, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if d.Platform, err = model.ParsePlatform(platform); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if d.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &d, nil
}

// Upsert registers a token, moving it to d.UserID if another user held it.
func (s *DeviceStore) Upsert(ctx context.Context, d *model.DeviceToken) (*model.DeviceToken, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO device_tokens (id, user_id, token, platform, p256dh_key, auth_key, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(token) DO UPDATE SET user_id = excluded.user_id, platform = excluded.platform,
			p256dh_key = excluded.p256dh_key, auth_key = excluded.auth_key, updated_at = excluded.updated_at`,
		d.ID, d.UserID, d.Token, string(d.Platform), d.P256dhKey, d.AuthKey, dbTime(d.CreatedAt), dbTime(d.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert device token: %w", err)
	}
	return s.GetByToken(ctx, d.Token)
}

func (s *DeviceStore) GetByToken(ctx context.Context, token string) (*model.DeviceToken, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+deviceCols+` FROM device_tokens WHERE token = ?`, token)
	d, err := scanDevice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get device token: %w", err)
	}
	return d, nil
}

// ListByUsers returns every token held by any of the given users.
func (s *DeviceStore) ListByUsers(ctx context.Context, userIDs []string) ([]model.DeviceToken, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deviceCols+` FROM device_tokens WHERE user_id IN (`+placeholders(len(userIDs))+`) ORDER BY created_at ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []model.DeviceToken
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device token: %w", err)
		}
		tokens = append(tokens, *d)
	}
	return tokens, rows.Err()
}

func (s *DeviceStore) DeleteByToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM device_tokens WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete device token: %w", err)
	}
	return nil
}

func (s *DeviceStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM device_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete device tokens for user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
