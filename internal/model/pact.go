package model

import (
	"fmt"
	"time"
)

type PactStatus string

const (
	StatusPending PactStatus = "PENDING"
	StatusDoing   PactStatus = "DOING"
	StatusDone    PactStatus = "DONE"
)

// ParsePactStatus converts a wire value into a PactStatus.
func ParsePactStatus(s string) (PactStatus, error) {
	switch st := PactStatus(s); st {
	case StatusPending, StatusDoing, StatusDone:
		return st, nil
	}
	return "", fmt.Errorf("unknown pact status %q", s)
}

func (s *PactStatus) UnmarshalText(b []byte) error {
	st, err := ParsePactStatus(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

type Pact struct {
	ID                   string     `json:"id"`
	HouseholdID          string     `json:"householdId"`
	Title                string     `json:"title"`
	Notes                *string    `json:"notes"`
	CreatedByUserID      string     `json:"createdByUserId"`
	AssignedToUserID     *string    `json:"assignedToUserId"`
	DueAt                *time.Time `json:"dueAt"`
	Status               PactStatus `json:"status"`
	RequiresConfirmation bool       `json:"requiresConfirmation"`
	DoneAt               *time.Time `json:"doneAt"`
	ConfirmedAt          *time.Time `json:"confirmedAt"`
	OverdueNotifiedAt    *time.Time `json:"overdueNotifiedAt"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// IsAssignedTo reports whether userID is the pact's assignee.
func (p *Pact) IsAssignedTo(userID string) bool {
	return p.AssignedToUserID != nil && *p.AssignedToUserID == userID
}

// PactCreate holds the fields accepted when creating a pact.
type PactCreate struct {
	Title                string     `json:"title"`
	Notes                *string    `json:"notes"`
	AssignedToUserID     *string    `json:"assignedToUserId"`
	DueAt                *time.Time `json:"dueAt"`
	RequiresConfirmation bool       `json:"requiresConfirmation"`
}

// PactUpdate is a partial update. A field whose Set flag is false was absent
// from the request and must be left untouched.
type PactUpdate struct {
	Title                Optional[string]     `json:"title"`
	Notes                Optional[string]     `json:"notes"`
	AssignedToUserID     Optional[string]     `json:"assignedToUserId"`
	DueAt                Optional[time.Time]  `json:"dueAt"`
	Status               Optional[PactStatus] `json:"status"`
	RequiresConfirmation Optional[bool]       `json:"requiresConfirmation"`
}

// Fields returns the wire names of the fields present in the update.
func (u PactUpdate) Fields() []string {
	fields := []string{}
	if u.Title.Set {
		fields = append(fields, "title")
	}
	if u.Notes.Set {
		fields = append(fields, "notes")
	}
	if u.AssignedToUserID.Set {
		fields = append(fields, "assignedToUserId")
	}
	if u.DueAt.Set {
		fields = append(fields, "dueAt")
	}
	if u.Status.Set {
		fields = append(fields, "status")
	}
	if u.RequiresConfirmation.Set {
		fields = append(fields, "requiresConfirmation")
	}
	return fields
}
