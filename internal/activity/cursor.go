package activity

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/dukerupert/pacto/internal/apperr"
)

// Cursor marks the last feed item a client has seen. On the wire it is an
// opaque base64url token.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

func EncodeCursor(createdAt time.Time, id string) string {
	raw := createdAt.UTC().Format(time.RFC3339Nano) + "|" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func (c Cursor) String() string {
	return EncodeCursor(c.CreatedAt, c.ID)
}

// DecodeCursor parses a token produced by EncodeCursor.
func DecodeCursor(token string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, apperr.Invalid("malformed cursor")
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return Cursor{}, apperr.Invalid("malformed cursor")
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Cursor{}, apperr.Invalid("malformed cursor")
	}
	return Cursor{CreatedAt: t.UTC(), ID: id}, nil
}
