package household

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/pacto/internal/apperr"
	"github.com/dukerupert/pacto/internal/model"
	"github.com/dukerupert/pacto/internal/store"
)

const DefaultInviteTTL = 7 * 24 * time.Hour

// Service implements household creation, listing, invites and joining.
type Service struct {
	store     *store.HouseholdStore
	guard     *Guard
	inviteTTL time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

type Option func(*Service)

// WithInviteTTL sets how long a freshly issued invite code stays valid.
func WithInviteTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.inviteTTL = ttl
		}
	}
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(hs *store.HouseholdStore, guard *Guard, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:     hs,
		guard:     guard,
		inviteTTL: DefaultInviteTTL,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create makes a household with userID as its OWNER.
func (s *Service) Create(ctx context.Context, userID, name string) (*model.Household, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalid("name is required")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate household id: %w", err)
	}
	now := s.now().UTC()
	h := &model.Household{ID: id.String(), Name: name, CreatedAt: now}
	owner := model.HouseholdMember{HouseholdID: h.ID, UserID: userID, Role: model.RoleOwner, CreatedAt: now}

	if err := s.store.Create(ctx, h, owner); err != nil {
		return nil, err
	}
	h.Members = []model.HouseholdMember{owner}
	s.logger.Info("household created", "household_id", h.ID, "user_id", userID)
	return h, nil
}

// List returns the households userID belongs to, each with its members.
func (s *Service) List(ctx context.Context, userID string) ([]model.Household, error) {
	households, err := s.store.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range households {
		members, err := s.store.ListMembers(ctx, households[i].ID)
		if err != nil {
			return nil, err
		}
		households[i].Members = members
	}
	if households == nil {
		households = []model.Household{}
	}
	return households, nil
}

func (s *Service) Get(ctx context.Context, userID, householdID string) (*model.Household, error) {
	h, err := s.store.GetByID(ctx, householdID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, apperr.NotFound("household not found")
	}
	if _, err := s.guard.RequireMember(ctx, userID, householdID); err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, householdID)
	if err != nil {
		return nil, err
	}
	h.Members = members
	return h, nil
}

// CreateInvite issues a new invite code. Only members may invite.
func (s *Service) CreateInvite(ctx context.Context, userID, householdID string) (*model.HouseholdInvite, error) {
	if _, err := s.guard.RequireMember(ctx, userID, householdID); err != nil {
		return nil, err
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	inv := model.HouseholdInvite{
		Code:        code,
		HouseholdID: householdID,
		ExpiresAt:   now.Add(s.inviteTTL),
		CreatedAt:   now,
	}
	if err := s.store.CreateInvite(ctx, inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Join adds userID to the invite's household. Joining twice is a no-op that
// returns the same household. Codes stay valid until they expire.
func (s *Service) Join(ctx context.Context, userID, code string) (*model.Household, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperr.Invalid("code is required")
	}

	inv, err := s.store.GetInvite(ctx, code)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if inv == nil || inv.Expired(now) {
		return nil, apperr.NotFound("invite not found or expired")
	}

	added, err := s.store.AddMember(ctx, model.HouseholdMember{
		HouseholdID: inv.HouseholdID,
		UserID:      userID,
		Role:        model.RoleMember,
		CreatedAt:   now,
	})
	if err != nil {
		return nil, err
	}
	if added {
		s.logger.Info("household joined", "household_id", inv.HouseholdID, "user_id", userID)
	}
	return s.Get(ctx, userID, inv.HouseholdID)
}

func generateCode() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate invite code: %w", err)
	}
	return hex.EncodeToString(b), nil
}
