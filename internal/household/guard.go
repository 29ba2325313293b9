// Package household owns membership checks and the household lifecycle:
// creation, invites and joining.
package household

import (
	"context"
	"fmt"

	"github.com/dukerupert/pacto/internal/apperr"
	"github.com/dukerupert/pacto/internal/model"
)

// Directory is the read side of household membership.
type Directory interface {
	GetMember(ctx context.Context, householdID, userID string) (*model.HouseholdMember, error)
	ListMembers(ctx context.Context, householdID string) ([]model.HouseholdMember, error)
}

// Guard answers "may this user act in this household".
type Guard struct {
	dir Directory
}

func NewGuard(dir Directory) *Guard {
	return &Guard{dir: dir}
}

// RequireMember returns the caller's membership or a Forbidden error.
func (g *Guard) RequireMember(ctx context.Context, userID, householdID string) (*model.HouseholdMember, error) {
	m, err := g.dir.GetMember(ctx, householdID, userID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if m == nil {
		return nil, apperr.Forbidden("not a member of household")
	}
	return m, nil
}

// IsMember is RequireMember for read paths that degrade instead of failing.
func (g *Guard) IsMember(ctx context.Context, userID, householdID string) (bool, error) {
	m, err := g.dir.GetMember(ctx, householdID, userID)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return m != nil, nil
}

// MemberIDs lists the user ids of every member of the household.
func (g *Guard) MemberIDs(ctx context.Context, householdID string) ([]string, error) {
	members, err := g.dir.ListMembers(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	return ids, nil
}
