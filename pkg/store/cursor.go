package store

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// cursor is the decoded form of the opaque pagination token. It is a tagged
// struct rather than a joined string so thread IDs never need escaping.
type cursor struct {
	TS time.Time `json:"ts"`
	ID string    `json:"id"`
}

// encodeCursor builds the opaque token for a page boundary row.
func encodeCursor(ts time.Time, id string) string {
	b, _ := json.Marshal(cursor{TS: ts, ID: id})
	return base64.RawURLEncoding.EncodeToString(b)
}

// decodeCursor parses an opaque token. Any malformed token maps to
// ErrInvalidCursor; callers surface it as a bad request.
func decodeCursor(tok string) (cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return cursor{}, ErrInvalidCursor
	}
	var c cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return cursor{}, ErrInvalidCursor
	}
	if c.ID == "" || c.TS.IsZero() {
		return cursor{}, ErrInvalidCursor
	}
	return c, nil
}
