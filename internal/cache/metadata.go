// Package cache stores optimization results on disk, keyed by the input text
// and the targets it was optimized for.
package cache

import (
	"fmt"
	"time"
)

// Metadata describes one cached result.
type Metadata struct {
	Key         string    `json:"key"`
	Keyword     string    `json:"keyword,omitempty"`
	Status      string    `json:"status"`
	Iterations  int       `json:"iterations"`
	SourceChars int       `json:"source_chars"`
	ResultChars int       `json:"result_chars"`
	Oracle      string    `json:"oracle,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsStale returns true if the entry is at or older than the TTL.
func (m *Metadata) IsStale(ttl time.Duration) bool {
	return time.Since(m.CreatedAt) >= ttl
}

// Age returns human-readable age string.
func (m *Metadata) Age() string {
	return humanAge(time.Since(m.CreatedAt))
}

func humanAge(duration time.Duration) string {
	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		mins := int(duration.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case duration < 24*time.Hour:
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	default:
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}
