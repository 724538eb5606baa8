// Package pagination implements keyset paging with opaque page tokens.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

var ErrInvalidToken = errors.New("invalid page token")

// Pagination is bound from the page_token and page_size query parameters.
type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

// Cursor is the decoded form of a page token. CreatedAt is only set for feeds
// ordered by time.
type Cursor struct {
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(token string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return nil, ErrInvalidToken
	}
	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil || c.ID == "" {
		return nil, ErrInvalidToken
	}
	return &c, nil
}

// IDToken encodes a cursor that carries only a row id.
func IDToken(id string) string {
	token, _ := EncodeCursor(Cursor{ID: id})
	return token
}

// NormalizePageSize clamps size into [1, max], using def when unset.
func NormalizePageSize(size, def, max int) int {
	switch {
	case size <= 0:
		return def
	case size > max:
		return max
	default:
		return size
	}
}

// Cut trims rows fetched with limit+1 back to limit. The next token points at the
// last row kept.
func Cut[T any](rows []*T, limit int, token func(*T) string) ([]*T, *PageInfo) {
	if limit <= 0 || len(rows) <= limit {
		return rows, &PageInfo{}
	}
	return rows[:limit], &PageInfo{HasMore: true, NextPageToken: token(rows[limit-1])}
}
