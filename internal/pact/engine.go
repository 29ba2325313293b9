// Package pact implements the pact lifecycle: creation, listing, partial
// updates, assignment, completion and confirmation.
package pact

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/pacto/internal/activity"
	"github.com/dukerupert/pacto/internal/apperr"
	"github.com/dukerupert/pacto/internal/metrics"
	"github.com/dukerupert/pacto/internal/model"
	"github.com/dukerupert/pacto/internal/push"
	"github.com/dukerupert/pacto/internal/store"
)

// Store is the pact persistence the engine needs.
type Store interface {
	Create(ctx context.Context, p *model.Pact) error
	GetByID(ctx context.Context, householdID, id string) (*model.Pact, error)
	List(ctx context.Context, householdID string, q store.PactQuery) ([]model.Pact, error)
	Update(ctx context.Context, p *model.Pact, expected model.PactStatus) (bool, error)
	Assign(ctx context.Context, householdID, id, userID string, now time.Time) (bool, error)
	MarkDone(ctx context.Context, householdID, id string, now time.Time) (bool, error)
	Confirm(ctx context.Context, householdID, id string, now time.Time) (bool, error)
	Delete(ctx context.Context, householdID, id string) error
}

// Guard checks household membership.
type Guard interface {
	RequireMember(ctx context.Context, userID, householdID string) (*model.HouseholdMember, error)
	IsMember(ctx context.Context, userID, householdID string) (bool, error)
	MemberIDs(ctx context.Context, householdID string) ([]string, error)
}

// ActivityLog records what happened to a pact.
type ActivityLog interface {
	Append(ctx context.Context, e activity.Entry) (*model.PactActivity, error)
}

type Engine struct {
	store    Store
	guard    Guard
	activity ActivityLog
	notifier push.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
	loc      *time.Location
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the time zone used for the today and tomorrow filters.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func NewEngine(s Store, guard Guard, log ActivityLog, notifier push.Notifier, m *metrics.Metrics, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		guard:    guard,
		activity: log,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Create(ctx context.Context, userID, householdID string, in model.PactCreate) (*model.Pact, error) {
	if _, err := e.guard.RequireMember(ctx, userID, householdID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Invalid("title is required")
	}
	if in.AssignedToUserID != nil {
		if err := e.checkAssignee(ctx, householdID, *in.AssignedToUserID); err != nil {
			return nil, err
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate pact id: %w", err)
	}
	now := e.now().UTC()
	p := &model.Pact{
		ID:                   id.String(),
		HouseholdID:          householdID,
		Title:                title,
		Notes:                in.Notes,
		CreatedByUserID:      userID,
		AssignedToUserID:     in.AssignedToUserID,
		DueAt:                utcPtr(in.DueAt),
		Status:               model.StatusPending,
		RequiresConfirmation: in.RequiresConfirmation,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := e.store.Create(ctx, p); err != nil {
		return nil, err
	}

	e.record(ctx, p, userID, model.ActivityCreated, map[string]any{"title": p.Title})
	if p.AssignedToUserID != nil {
		e.record(ctx, p, userID, model.ActivityAssigned, map[string]any{"assignedToUserId": *p.AssignedToUserID})
		e.notifier.Notify(ctx, []string{*p.AssignedToUserID}, push.AssignedMessage(p))
	}
	return p, nil
}

// List returns the household's pacts matching filter, newest first.
func (e *Engine) List(ctx context.Context, userID, householdID string, filter Filter) ([]model.Pact, error) {
	if _, err := e.guard.RequireMember(ctx, userID, householdID); err != nil {
		return nil, err
	}

	now := e.now().In(e.loc)
	var q store.PactQuery
	switch filter {
	case FilterToday:
		start, end := dayBounds(now)
		q.DueFrom, q.DueTo = &start, &end
	case FilterTomorrow:
		start, end := dayBounds(now.AddDate(0, 0, 1))
		q.DueFrom, q.DueTo = &start, &end
	case FilterOverdue:
		q.DueBefore = &now
		q.NotDone = true
	case FilterUnassigned:
		q.Unassigned = true
	}

	pacts, err := e.store.List(ctx, householdID, q)
	if err != nil {
		return nil, err
	}
	if pacts == nil {
		pacts = []model.Pact{}
	}
	return pacts, nil
}

// Get returns a pact of the household. Pacts of other households are
// reported as not found.
func (e *Engine) Get(ctx context.Context, userID, householdID, pactID string) (*model.Pact, error) {
	if _, err := e.guard.RequireMember(ctx, userID, householdID); err != nil {
		return nil, err
	}
	p, err := e.store.GetByID(ctx, householdID, pactID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("pact not found")
	}
	return p, nil
}

// Update applies a partial update. Fields absent from u are left untouched;
// explicit nulls clear nullable fields.
func (e *Engine) Update(ctx context.Context, userID, householdID, pactID string, u model.PactUpdate) (*model.Pact, error) {
	p, err := e.Get(ctx, userID, householdID, pactID)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	next := *p

	if u.Title.Set && u.Title.Value != nil {
		title := strings.TrimSpace(*u.Title.Value)
		if title == "" {
			return nil, apperr.Invalid("title must not be empty")
		}
		next.Title = title
	}
	if u.Notes.Set {
		next.Notes = u.Notes.Value
	}

	assigneeChanged := false
	if u.AssignedToUserID.Set && !sameString(u.AssignedToUserID.Value, p.AssignedToUserID) {
		if u.AssignedToUserID.Value != nil {
			if err := e.checkAssignee(ctx, householdID, *u.AssignedToUserID.Value); err != nil {
				return nil, err
			}
		}
		next.AssignedToUserID = u.AssignedToUserID.Value
		assigneeChanged = true
	}

	if u.DueAt.Set {
		next.DueAt = utcPtr(u.DueAt.Value)
	}
	if u.RequiresConfirmation.Set && u.RequiresConfirmation.Value != nil {
		next.RequiresConfirmation = *u.RequiresConfirmation.Value
	}

	statusChanged := false
	if u.Status.Set && u.Status.Value != nil && *u.Status.Value != p.Status {
		to := *u.Status.Value
		if !CanTransition(p.Status, to) {
			return nil, apperr.InvalidTransition(fmt.Sprintf("invalid status transition %s -> %s", p.Status, to))
		}
		next.Status = to
		if to == model.StatusDone {
			next.DoneAt = &now
		}
		statusChanged = true
	}

	next.UpdatedAt = now
	ok, err := e.store.Update(ctx, &next, p.Status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Precondition("pact was modified concurrently")
	}

	if statusChanged {
		typ := model.ActivityStatusChanged
		if next.Status == model.StatusDone {
			typ = model.ActivityDone
		}
		e.record(ctx, &next, userID, typ, map[string]any{"status": string(next.Status)})
	}
	if assigneeChanged {
		if next.AssignedToUserID != nil {
			e.record(ctx, &next, userID, model.ActivityAssigned, map[string]any{"assignedToUserId": *next.AssignedToUserID})
			e.notifier.Notify(ctx, []string{*next.AssignedToUserID}, push.AssignedMessage(&next))
		} else {
			e.record(ctx, &next, userID, model.ActivityUnassigned, map[string]any{"assignedToUserId": nil})
		}
	}
	// Recorded on every call, even when no value actually changed.
	e.record(ctx, &next, userID, model.ActivityUpdated, map[string]any{"fields": u.Fields()})

	return &next, nil
}

// Remove hard-deletes the pact and returns it. Its activity rows remain.
func (e *Engine) Remove(ctx context.Context, userID, householdID, pactID string) (*model.Pact, error) {
	p, err := e.Get(ctx, userID, householdID, pactID)
	if err != nil {
		return nil, err
	}
	if err := e.store.Delete(ctx, householdID, pactID); err != nil {
		return nil, err
	}
	e.logger.Info("pact removed", "pact_id", p.ID, "household_id", householdID, "user_id", userID)
	return p, nil
}

// AssignToMe makes the caller the assignee, replacing any previous one.
func (e *Engine) AssignToMe(ctx context.Context, userID, householdID, pactID string) (*model.Pact, error) {
	p, err := e.Get(ctx, userID, householdID, pactID)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	ok, err := e.store.Assign(ctx, householdID, pactID, userID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("pact not found")
	}
	p.AssignedToUserID = &userID
	p.UpdatedAt = now

	e.record(ctx, p, userID, model.ActivityAssigned, map[string]any{"assignedToUserId": userID})
	return p, nil
}

// MarkDone completes the pact. When confirmation is required every other
// member is asked to confirm.
func (e *Engine) MarkDone(ctx context.Context, userID, householdID, pactID string) (*model.Pact, error) {
	p, err := e.Get(ctx, userID, householdID, pactID)
	if err != nil {
		return nil, err
	}
	if p.Status == model.StatusDone {
		return nil, apperr.Precondition("pact already done")
	}

	now := e.now().UTC()
	ok, err := e.store.MarkDone(ctx, householdID, pactID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Precondition("pact already done")
	}
	p.Status = model.StatusDone
	p.DoneAt = &now
	p.UpdatedAt = now

	e.record(ctx, p, userID, model.ActivityDone, map[string]any{"doneAt": now})

	if p.RequiresConfirmation {
		e.notifyConfirmers(ctx, p, userID)
	}
	return p, nil
}

// Confirm records that another member has verified a done pact. The checks
// run in a fixed order and the first failure wins.
func (e *Engine) Confirm(ctx context.Context, userID, householdID, pactID string) (*model.Pact, error) {
	p, err := e.Get(ctx, userID, householdID, pactID)
	if err != nil {
		return nil, err
	}

	if !p.RequiresConfirmation {
		return nil, apperr.Precondition("pact does not require confirmation")
	}
	if p.Status != model.StatusDone {
		return nil, apperr.Precondition("pact must be done before confirmation")
	}
	if p.IsAssignedTo(userID) {
		return nil, apperr.Forbidden("assignee cannot confirm their own pact")
	}
	if p.ConfirmedAt != nil {
		return nil, apperr.Precondition("pact already confirmed")
	}

	now := e.now().UTC()
	ok, err := e.store.Confirm(ctx, householdID, pactID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Precondition("pact already confirmed")
	}
	p.ConfirmedAt = &now
	p.UpdatedAt = now

	e.record(ctx, p, userID, model.ActivityConfirmed, map[string]any{"confirmedAt": now})
	return p, nil
}

func (e *Engine) notifyConfirmers(ctx context.Context, p *model.Pact, actorID string) {
	members, err := e.guard.MemberIDs(ctx, p.HouseholdID)
	if err != nil {
		e.logger.Warn("list confirmers", "pact_id", p.ID, "error", err)
		return
	}
	others := members[:0]
	for _, id := range members {
		if id != actorID {
			others = append(others, id)
		}
	}
	if len(others) > 0 {
		e.notifier.Notify(ctx, others, push.NeedsConfirmationMessage(p))
	}
}

func (e *Engine) checkAssignee(ctx context.Context, householdID, userID string) error {
	if userID == "" {
		return apperr.Invalid("assignedToUserId must not be empty")
	}
	ok, err := e.guard.IsMember(ctx, userID, householdID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Invalid("assignee is not a member of the household")
	}
	return nil
}

// record appends an activity entry. The pact mutation has already been
// committed, so a failure here is logged and counted but not returned.
func (e *Engine) record(ctx context.Context, p *model.Pact, byUserID string, typ model.ActivityType, payload map[string]any) {
	_, err := e.activity.Append(context.WithoutCancel(ctx), activity.Entry{
		PactID:      p.ID,
		HouseholdID: p.HouseholdID,
		ByUserID:    byUserID,
		Type:        typ,
		Payload:     payload,
	})
	if err != nil {
		e.metrics.ActivityAppendFailures.Inc()
		e.logger.Error("record activity", "pact_id", p.ID, "type", typ, "error", err)
		return
	}
	e.metrics.PactEvents.WithLabelValues(string(typ)).Inc()
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
