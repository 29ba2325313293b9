// Package activity records the append-only audit trail of pact mutations and
// serves it back as a paginated household feed.
package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/dukerupert/pacto/internal/apperr"
	"github.com/dukerupert/pacto/internal/model"
	"github.com/dukerupert/pacto/internal/store"
)

const (
	DefaultFeedLimit = 50
	MaxFeedLimit     = 100
)

// Store persists activity rows.
type Store interface {
	Create(ctx context.Context, a *model.PactActivity) error
	ListFeed(ctx context.Context, householdID string, limit int, after *store.FeedPosition) ([]model.PactActivity, error)
}

// MemberChecker reports household membership without failing for outsiders.
type MemberChecker interface {
	IsMember(ctx context.Context, userID, householdID string) (bool, error)
}

// Entry is an activity to append. Payload may be nil.
type Entry struct {
	PactID      string
	HouseholdID string
	ByUserID    string
	Type        model.ActivityType
	Payload     map[string]any
}

// Page is one slice of the feed. NextCursor is nil on the last page.
type Page struct {
	Items      []model.PactActivity `json:"items"`
	NextCursor *string              `json:"nextCursor"`
}

type Log struct {
	store      Store
	members    MemberChecker
	logger     *slog.Logger
	now        func() time.Time
	retryBase  time.Duration
	maxRetries uint64
}

type Option func(*Log)

func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithRetry sets the exponential backoff used for failed writes.
func WithRetry(base time.Duration, maxRetries uint64) Option {
	return func(l *Log) {
		l.retryBase = base
		l.maxRetries = maxRetries
	}
}

func NewLog(s Store, members MemberChecker, logger *slog.Logger, opts ...Option) *Log {
	l := &Log{
		store:      s,
		members:    members,
		logger:     logger,
		now:        time.Now,
		retryBase:  50 * time.Millisecond,
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append validates and stores a new activity, retrying transient write
// failures with exponential backoff.
func (l *Log) Append(ctx context.Context, e Entry) (*model.PactActivity, error) {
	if e.PactID == "" || e.HouseholdID == "" || e.ByUserID == "" {
		return nil, apperr.Invalid("pactId, householdId and byUserId are required")
	}
	if _, err := model.ParseActivityType(string(e.Type)); err != nil {
		return nil, apperr.Invalid("%v", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate activity id: %w", err)
	}
	payload := e.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	a := &model.PactActivity{
		ID:          id.String(),
		PactID:      e.PactID,
		HouseholdID: e.HouseholdID,
		ByUserID:    e.ByUserID,
		Type:        e.Type,
		Payload:     payload,
		CreatedAt:   l.now().UTC(),
	}

	backoff := retry.WithMaxRetries(l.maxRetries, retry.NewExponential(l.retryBase))
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := l.store.Create(ctx, a); err != nil {
			if !transient(err) {
				return err
			}
			l.logger.Warn("append activity failed", "pact_id", a.PactID, "type", a.Type, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("append activity: %w", err)
	}
	return a, nil
}

// transient reports whether err is a lock contention error worth retrying.
func transient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// Feed returns the household's activity, newest first. Callers who are not
// members get an empty page rather than an error.
func (l *Log) Feed(ctx context.Context, userID, householdID string, limit int, cursor string) (*Page, error) {
	ok, err := l.members.IsMember(ctx, userID, householdID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Page{Items: []model.PactActivity{}}, nil
	}

	limit = clampLimit(limit)

	var after *store.FeedPosition
	if cursor != "" {
		c, err := DecodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		after = &store.FeedPosition{CreatedAt: c.CreatedAt, ID: c.ID}
	}

	items, err := l.store.ListFeed(ctx, householdID, limit, after)
	if err != nil {
		return nil, err
	}

	page := &Page{Items: items}
	if page.Items == nil {
		page.Items = []model.PactActivity{}
	}
	if len(items) == limit {
		last := items[len(items)-1]
		next := EncodeCursor(last.CreatedAt, last.ID)
		page.NextCursor = &next
	}
	return page, nil
}

func clampLimit(limit int) int {
	if limit < 1 {
		return DefaultFeedLimit
	}
	if limit > MaxFeedLimit {
		return MaxFeedLimit
	}
	return limit
}
