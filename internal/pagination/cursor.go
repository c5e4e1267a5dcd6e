package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Cursor is the decoded form of an opaque pagination token. It pins the
// resume point of a keyset-paginated listing: the sort timestamp of the last
// item on the previous page plus a unique tie-break id for rows sharing that
// timestamp.
type Cursor struct {
	Timestamp time.Time `json:"ts"`
	ID        string    `json:"id"`
}

// Encode serializes the cursor into an opaque URL-safe token.
func (c Cursor) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode parses a token produced by Encode. An empty token is not an error;
// it means "first page" and returns a nil cursor.
func Decode(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("malformed cursor: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("malformed cursor: %w", err)
	}
	if c.Timestamp.IsZero() || c.ID == "" {
		return nil, fmt.Errorf("malformed cursor: missing fields")
	}
	return &c, nil
}

// Page is the generic shape returned by every cursor-paginated listing.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// Trim applies the limit+1 overfetch convention: rows holds up to limit+1
// fetched items; if more than limit came back, the extra row is dropped and
// HasMore is set. keyOf extracts the (timestamp, id) pair the next cursor
// should encode, taken from the last kept row.
func Trim[T any](rows []T, limit int, keyOf func(T) (time.Time, string)) Page[T] {
	page := Page[T]{Items: rows}
	if len(rows) > limit {
		page.Items = rows[:limit]
		page.HasMore = true
		ts, id := keyOf(page.Items[len(page.Items)-1])
		page.NextCursor = Cursor{Timestamp: ts, ID: id}.Encode()
	}
	return page
}
