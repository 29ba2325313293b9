package model

import "time"

// Role is a member's role inside a household.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleMember Role = "MEMBER"
)

type Household struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	CreatedAt time.Time         `json:"createdAt"`
	Members   []HouseholdMember `json:"members,omitempty"`
}

type HouseholdMember struct {
	HouseholdID string    `json:"householdId"`
	UserID      string    `json:"userId"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

type HouseholdInvite struct {
	Code        string    `json:"code"`
	HouseholdID string    `json:"householdId"`
	ExpiresAt   time.Time `json:"expiresAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Expired reports whether the invite can no longer be used at now.
func (i HouseholdInvite) Expired(now time.Time) bool {
	return i.ExpiresAt.Before(now)
}
