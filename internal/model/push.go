package model

import (
	"fmt"
	"time"
)

// Platform identifies the delivery channel of a device token.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

// ParsePlatform validates a platform string received from a client.
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(s); p {
	case PlatformIOS, PlatformAndroid, PlatformWeb:
		return p, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// DeviceToken is a push destination owned by one user at a time. For ios and
// android the token is an Expo push token; for web it is the subscription
// endpoint and the keys are set.
type DeviceToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Token     string    `json:"expoPushToken"`
	Platform  Platform  `json:"platform"`
	P256dhKey string    `json:"-"`
	AuthKey   string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
