package entities

import (
	"fmt"
	"time"
)

// Window is a leaderboard time window.
type Window string

const (
	WindowWeekly  Window = "weekly"
	WindowMonthly Window = "monthly"
	WindowAllTime Window = "alltime"
)

// AllWindows lists every configured leaderboard window.
func AllWindows() []Window {
	return []Window{WindowWeekly, WindowMonthly, WindowAllTime}
}

// ParseWindow validates a window string.
func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case WindowWeekly, WindowMonthly, WindowAllTime:
		return Window(s), nil
	default:
		return "", fmt.Errorf("invalid leaderboard window: %q", s)
	}
}

// Bucket returns the storage bucket for this window at the given time.
// Weekly buckets follow the ISO week, monthly buckets the calendar month.
func (w Window) Bucket(now time.Time) string {
	switch w {
	case WindowWeekly:
		year, week := now.UTC().ISOWeek()
		return fmt.Sprintf("weekly:%d-%02d", year, week)
	case WindowMonthly:
		return fmt.Sprintf("monthly:%s", now.UTC().Format("2006-01"))
	default:
		return "alltime"
	}
}

// LeaderboardEntry is one ranked row of a leaderboard window. Rank is
// descending by score (1 = highest); ties between equal scores order by
// user ID, which makes ranking deterministic.
type LeaderboardEntry struct {
	UserID   UserID `json:"userId"`
	Username string `json:"username"`
	Score    Points `json:"score"`
	Rank     int64  `json:"rank"`
	Window   Window `json:"window"`
}
