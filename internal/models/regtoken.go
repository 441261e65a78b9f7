package models

import (
	"time"
)

// Pending registration issued on signup request
type RegToken struct {
	ID        int64
	Email     string
	Token     string
	CreatedAt time.Time
	ExpiredAt time.Time
	UsedAt    *time.Time // nil if token not used (always nil unless tokens are single-use)
}

// Token is accepted until ExpiredAt inclusive
func (t RegToken) IsExpired(now time.Time) bool {
	return t.ExpiredAt.Before(now)
}
