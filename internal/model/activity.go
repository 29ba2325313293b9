package model

import (
	"fmt"
	"time"
)

type ActivityType string

const (
	ActivityCreated       ActivityType = "CREATED"
	ActivityUpdated       ActivityType = "UPDATED"
	ActivityAssigned      ActivityType = "ASSIGNED"
	ActivityUnassigned    ActivityType = "UNASSIGNED"
	ActivityStatusChanged ActivityType = "STATUS_CHANGED"
	ActivityDone          ActivityType = "DONE"
	ActivityConfirmed     ActivityType = "CONFIRMED"
	ActivityComment       ActivityType = "COMMENT"
)

// ParseActivityType converts a stored value into an ActivityType.
func ParseActivityType(s string) (ActivityType, error) {
	switch t := ActivityType(s); t {
	case ActivityCreated, ActivityUpdated, ActivityAssigned, ActivityUnassigned,
		ActivityStatusChanged, ActivityDone, ActivityConfirmed, ActivityComment:
		return t, nil
	}
	return "", fmt.Errorf("unknown activity type %q", s)
}

// PactActivity is an immutable audit record for a pact.
type PactActivity struct {
	ID          string         `json:"id"`
	PactID      string         `json:"pactId"`
	HouseholdID string         `json:"householdId"`
	ByUserID    string         `json:"byUserId"`
	Type        ActivityType   `json:"type"`
	Payload     map[string]any `json:"payload"`
	CreatedAt   time.Time      `json:"createdAt"`
	Pact        *PactSummary   `json:"pact"`
}

// PactSummary is the slice of a pact embedded in feed items. Nil when the
// pact has been deleted.
type PactSummary struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Status PactStatus `json:"status"`
}
