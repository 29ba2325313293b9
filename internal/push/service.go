package push

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukerupert/pacto/internal/metrics"
	"github.com/dukerupert/pacto/internal/model"
)

// TokenStore is the device token directory used for fan-out.
type TokenStore interface {
	ListByUsers(ctx context.Context, userIDs []string) ([]model.DeviceToken, error)
	DeleteByToken(ctx context.Context, token string) error
}

// Service resolves users to device tokens and delivers through Expo (mobile)
// or Web Push (browsers). It implements Notifier.
type Service struct {
	tokens  TokenStore
	expo    *ExpoClient
	web     *WebPushSender
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewService builds the delivery service. web may be nil to disable browser
// delivery.
func NewService(tokens TokenStore, expo *ExpoClient, web *WebPushSender, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		tokens:  tokens,
		expo:    expo,
		web:     web,
		metrics: m,
		logger:  logger,
	}
}

// VAPIDPublicKey returns the browser subscription key, or "" when web push is off.
func (s *Service) VAPIDPublicKey() string {
	if s.web == nil {
		return ""
	}
	return s.web.VAPIDPublicKey()
}

func (s *Service) Notify(ctx context.Context, userIDs []string, msg Message) {
	userIDs = dedupe(userIDs)
	if len(userIDs) == 0 {
		return
	}

	devices, err := s.tokens.ListByUsers(ctx, userIDs)
	if err != nil {
		s.logger.Warn("notify: list device tokens", "users", len(userIDs), "error", err)
		return
	}
	if len(devices) == 0 {
		return
	}

	var mobile []string
	var web []model.DeviceToken
	for _, d := range devices {
		switch d.Platform {
		case model.PlatformWeb:
			web = append(web, d)
		default:
			mobile = append(mobile, d.Token)
		}
	}

	if len(mobile) > 0 {
		s.sendExpo(ctx, mobile, msg)
	}
	if len(web) > 0 {
		s.sendWeb(ctx, web, msg)
	}
}

func (s *Service) sendExpo(ctx context.Context, tokens []string, msg Message) {
	tickets, err := s.expo.Send(ctx, tokens, msg)
	if err != nil {
		s.metrics.NotificationFailures.WithLabelValues("expo").Add(float64(len(tokens) - len(tickets)))
		s.logger.Warn("notify: expo send failed", "tokens", len(tokens), "error", err)
	}
	for i, t := range tickets {
		if t.Status == "ok" {
			s.metrics.NotificationsSent.WithLabelValues("expo").Inc()
			continue
		}
		s.metrics.NotificationFailures.WithLabelValues("expo").Inc()
		if t.DeviceNotRegistered() {
			s.prune(ctx, tokens[i])
			continue
		}
		s.logger.Warn("notify: expo ticket error", "error", t.Details.Error, "message", t.Message)
	}
}

func (s *Service) sendWeb(ctx context.Context, devices []model.DeviceToken, msg Message) {
	if s.web == nil {
		s.logger.Debug("notify: web push not configured", "tokens", len(devices))
		return
	}
	for _, d := range devices {
		if err := s.web.Send(ctx, d, msg); err != nil {
			s.metrics.NotificationFailures.WithLabelValues("web").Inc()
			if errors.Is(err, ErrExpired) {
				s.prune(ctx, d.Token)
			} else {
				s.logger.Warn("notify: web push failed", "user_id", d.UserID, "error", err)
			}
			continue
		}
		s.metrics.NotificationsSent.WithLabelValues("web").Inc()
	}
}

func (s *Service) prune(ctx context.Context, token string) {
	if err := s.tokens.DeleteByToken(ctx, token); err != nil {
		s.logger.Warn("notify: delete dead token", "error", err)
		return
	}
	s.metrics.DeviceTokensPruned.Inc()
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
