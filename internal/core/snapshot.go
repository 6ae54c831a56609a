package core

import (
	"time"

	"cartoonclub-backend-go/internal/models"
)

// Snapshot is an immutable in-memory copy of the source data read at one
// instant; it is the sole input to every metric of an aggregation run, so all
// numbers in one summary are mutually consistent.
//
// Members is pre-filtered: admin accounts are removed once, here, and the
// metric functions have no knowledge of roles. Payments are likewise already
// restricted to succeeded rows belonging to members, and all store-native
// timestamp/amount representations were normalized at the read boundary.
type Snapshot struct {
	Now      time.Time
	Members  []*models.User
	Content  []*models.Content
	Payments []*models.Payment

	// WeeklyMinutes maps content ID to watched minutes of the ISO week
	// containing Now. Content without a bucket is simply absent (reads as 0).
	WeeklyMinutes map[string]int64
}

// NewSnapshot builds a snapshot from raw store reads: users are partitioned
// into the member view and payments are restricted to those members.
func NewSnapshot(now time.Time, users []*models.User, content []*models.Content, payments []*models.Payment, weeklyMinutes map[string]int64) *Snapshot {
	members := make([]*models.User, 0, len(users))
	memberIDs := make(map[string]bool, len(users))
	for _, u := range users {
		if u.IsAdmin() {
			continue
		}
		members = append(members, u)
		memberIDs[u.ID] = true
	}

	memberPayments := make([]*models.Payment, 0, len(payments))
	for _, p := range payments {
		if p.Status != models.PaymentSucceeded {
			continue
		}
		if !memberIDs[p.UserID] {
			continue
		}
		memberPayments = append(memberPayments, p)
	}

	return &Snapshot{
		Now:           now,
		Members:       members,
		Content:       content,
		Payments:      memberPayments,
		WeeklyMinutes: weeklyMinutes,
	}
}
