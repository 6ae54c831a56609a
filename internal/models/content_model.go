package models

import "time"

// Content types.
const (
	ContentSeries = "series"
	ContentMovie  = "movie"
)

// Content represents a piece of streamable content. TotalWatchMinutes and
// FollowerCount are counters incremented atomically by playback and follow
// actions from many concurrent sessions.
type Content struct {
	ID                string `json:"id" firestore:"-"`
	Title             string `json:"title" firestore:"title"`
	Type              string `json:"type" firestore:"type"`
	TotalWatchMinutes int64  `json:"totalWatchMinutes" firestore:"totalWatchMinutes"`
	FollowerCount     int64  `json:"followerCount" firestore:"followerCount"`
}

// WeeklyBucket is a per-content, per-ISO-week accumulator of watched minutes,
// stored at content/{contentId}/weekly/{YYYY_Wnn} and upserted via
// merge-increment.
type WeeklyBucket struct {
	Minutes   int64     `json:"minutes" firestore:"minutes"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// Package is a row of the "packages" catalog collection.
type Package struct {
	ID            string   `json:"id" firestore:"-"`
	Name          string   `json:"name" firestore:"name"`
	Price         float64  `json:"price" firestore:"price"`
	DurationDays  int      `json:"durationDays" firestore:"durationDays"`
	Features      []string `json:"features,omitempty" firestore:"features"`
	StripePriceID string   `json:"stripePriceId,omitempty" firestore:"stripePriceId"`
}
