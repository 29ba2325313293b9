// Package device manages the push destinations registered by users.
package device

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/pacto/internal/apperr"
	"github.com/dukerupert/pacto/internal/model"
	"github.com/dukerupert/pacto/internal/store"
)

// Registration is a client's request to receive pushes on a device.
type Registration struct {
	ExpoPushToken string  `json:"expoPushToken"`
	Platform      string  `json:"platform"`
	Keys          *WebKey `json:"keys,omitempty"`
}

// WebKey carries the browser subscription keys for platform "web".
type WebKey struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

type Service struct {
	store  *store.DeviceStore
	logger *slog.Logger
	now    func() time.Time
}

func NewService(ds *store.DeviceStore, logger *slog.Logger) *Service {
	return &Service{store: ds, logger: logger, now: time.Now}
}

// Register binds the token to userID, taking it over from any previous owner.
func (s *Service) Register(ctx context.Context, userID string, reg Registration) (*model.DeviceToken, error) {
	token := strings.TrimSpace(reg.ExpoPushToken)
	if token == "" {
		return nil, apperr.Invalid("expoPushToken is required")
	}
	platform, err := model.ParsePlatform(reg.Platform)
	if err != nil {
		return nil, apperr.Invalid("platform must be ios, android or web")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate device id: %w", err)
	}
	now := s.now().UTC()
	d := &model.DeviceToken{
		ID:        id.String(),
		UserID:    userID,
		Token:     token,
		Platform:  platform,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if platform == model.PlatformWeb {
		if reg.Keys == nil || reg.Keys.P256dh == "" || reg.Keys.Auth == "" {
			return nil, apperr.Invalid("web subscriptions require p256dh and auth keys")
		}
		d.P256dhKey = reg.Keys.P256dh
		d.AuthKey = reg.Keys.Auth
	}

	saved, err := s.store.Upsert(ctx, d)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("device registered", "user_id", userID, "platform", platform)
	return saved, nil
}

// Unregister removes every token the user holds and reports how many.
func (s *Service) Unregister(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("devices unregistered", "user_id", userID, "count", n)
	return n, nil
}
