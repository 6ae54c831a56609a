package models

import "time"

// User roles. Admin accounts are excluded from every member-facing metric.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Subscription statuses.
const (
	SubscriptionActive   = "active"
	SubscriptionInactive = "inactive"
	SubscriptionExpired  = "expired"
	SubscriptionPastDue  = "past_due"
)

// Package identifiers. Unknown package ids fall back to PackageFree.
const (
	PackageFree    = "free"
	PackageMonthly = "monthly"
	PackageYearly  = "yearly"
)

// Subscription is the nested subscription sub-object of a user document.
// It is mutated by admin edits and billing events; the reporting side only
// ever reads it.
type Subscription struct {
	Status    string     `json:"status" firestore:"status"`
	PackageID string     `json:"packageId" firestore:"packageId"`
	StartDate time.Time  `json:"startDate" firestore:"startDate"`
	EndDate   *time.Time `json:"endDate,omitempty" firestore:"endDate"`
	AutoRenew bool       `json:"autoRenew" firestore:"autoRenew"`
}

// User represents a user in the system. The Firebase Auth UID is the
// Firestore document ID.
type User struct {
	ID           string        `json:"id" firestore:"-"`
	Email        string        `json:"email" firestore:"email"`
	DisplayName  string        `json:"displayName,omitempty" firestore:"displayName"`
	Role         string        `json:"role" firestore:"role"`
	CreatedAt    time.Time     `json:"createdAt" firestore:"createdAt"`
	Subscription *Subscription `json:"subscription,omitempty" firestore:"subscription"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CurrentPackageID returns the user's subscription package id, defaulting to
// free when no subscription exists.
func (u *User) CurrentPackageID() string {
	if u.Subscription == nil || u.Subscription.PackageID == "" {
		return PackageFree
	}
	return u.Subscription.PackageID
}
