package store

import (
	"database/sql"
	"time"

	"github.com/dukerupert/pacto/internal/database"
)

type scanner interface{ Scan(...any) error }

func dbTime(t time.Time) string {
	return database.FormatTime(t)
}

func dbNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: database.FormatTime(*t), Valid: true}
}

func dbNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func parseTime(s string) (time.Time, error) {
	return database.ParseTime(s)
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := database.ParseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*2-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}
