package domain

import (
	"time"
)

// RankingEntry is one member's position in a leaderboard. Not persisted.
type RankingEntry struct {
	Name  string        `json:"name"`
	Rank  int           `json:"rank"` // 1-based, sequential even for equal totals
	Total time.Duration `json:"total"`
}

// RankingPage is a slice of a leaderboard plus the caller's own entry.
type RankingPage struct {
	MyRank  int            `json:"myRank"`
	MyName  string         `json:"myName"`
	MyTotal time.Duration  `json:"myTotal"`
	Entries []RankingEntry `json:"entries"`
	Page    int            `json:"page"`
	Size    int            `json:"size"`
	HasNext bool           `json:"hasNext"`
}
