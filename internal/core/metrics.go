package core

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"cartoonclub-backend-go/internal/models"
)

// RenewalVariant selects which of the two historical renewal-rate rules to
// apply. The dashboards disagreed: the scheduled summary counted a renewal
// whenever the subscription came out the other side still active, while the
// in-page calculator additionally required autoRenew to be set.
type RenewalVariant string

const (
	// RenewalVariantActive counts a due subscription as renewed when its
	// status is active.
	RenewalVariantActive RenewalVariant = "active"
	// RenewalVariantAutoRenew additionally requires autoRenew == true.
	RenewalVariantAutoRenew RenewalVariant = "autorenew"
)

const newMemberWindow = 30 * 24 * time.Hour

// TotalRevenue sums the amounts of all succeeded member payments. Amounts
// were coerced at the read boundary, so a malformed row contributes zero
// rather than poisoning the sum.
func (s *Snapshot) TotalRevenue() float64 {
	total := decimal.Zero
	for _, p := range s.Payments {
		total = total.Add(p.Amount)
	}
	return total.InexactFloat64()
}

// NewMemberCount counts members whose account was created within the
// trailing 30 days.
func (s *Snapshot) NewMemberCount() int {
	cutoff := s.Now.Add(-newMemberWindow)
	n := 0
	for _, u := range s.Members {
		if u.CreatedAt.IsZero() {
			continue
		}
		if !u.CreatedAt.Before(cutoff) {
			n++
		}
	}
	return n
}

// ActiveMemberCount counts members with an active subscription.
func (s *Snapshot) ActiveMemberCount() int {
	n := 0
	for _, u := range s.Members {
		if u.Subscription != nil && u.Subscription.Status == models.SubscriptionActive {
			n++
		}
	}
	return n
}

// ChurnRate is the percentage of members active at the start of the current
// month whose subscription ended during the month with an expired or
// inactive status. Clamped to [0,100], one decimal, and 0 whenever the
// denominator is 0 or the ratio is not finite.
func (s *Snapshot) ChurnRate() float64 {
	startOfMonth := time.Date(s.Now.Year(), s.Now.Month(), 1, 0, 0, 0, 0, s.Now.Location())

	activeAtStart := 0
	churned := 0
	for _, u := range s.Members {
		sub := u.Subscription
		if sub == nil {
			continue
		}

		if u.CreatedAt.Before(startOfMonth) {
			stillOpen := sub.EndDate == nil || !sub.EndDate.Before(startOfMonth)
			if stillOpen || sub.Status == models.SubscriptionActive {
				activeAtStart++
			}
		}

		if sub.EndDate != nil &&
			!sub.EndDate.Before(startOfMonth) && sub.EndDate.Before(s.Now) &&
			(sub.Status == models.SubscriptionExpired || sub.Status == models.SubscriptionInactive) {
			churned++
		}
	}

	if activeAtStart == 0 {
		return 0
	}
	rate := float64(churned) / float64(activeAtStart) * 100
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0
	}
	if rate < 0 {
		rate = 0
	}
	if rate > 100 {
		rate = 100
	}
	return round1(rate)
}

// RenewalRate is the percentage of members whose subscription came due in
// the trailing 30 days and who renewed, per the selected variant. One
// decimal; 0 when nobody was due.
func (s *Snapshot) RenewalRate(variant RenewalVariant) float64 {
	windowStart := s.Now.Add(-newMemberWindow)

	due := 0
	renewed := 0
	for _, u := range s.Members {
		sub := u.Subscription
		if sub == nil || sub.EndDate == nil {
			continue
		}
		end := *sub.EndDate
		if end.Before(windowStart) || end.After(s.Now) {
			continue
		}
		due++

		if sub.Status != models.SubscriptionActive {
			continue
		}
		if variant == RenewalVariantAutoRenew && !sub.AutoRenew {
			continue
		}
		renewed++
	}

	if due == 0 {
		return 0
	}
	return round1(float64(renewed) / float64(due) * 100)
}

// PackageDistribution buckets active members by package. Unrecognized
// package ids fall back to free.
func (s *Snapshot) PackageDistribution() models.PackageDistribution {
	var dist models.PackageDistribution
	for _, u := range s.Members {
		if u.Subscription == nil || u.Subscription.Status != models.SubscriptionActive {
			continue
		}
		switch u.Subscription.PackageID {
		case models.PackageMonthly:
			dist.Monthly++
		case models.PackageYearly:
			dist.Yearly++
		default:
			dist.Free++
		}
	}
	return dist
}

// RevenueByPackage sums succeeded-payment amounts per package, using the
// payment's own packageId and falling back to the paying member's current
// package when the payment lacks one. Unrecognized ids fall back to free.
func (s *Snapshot) RevenueByPackage() models.RevenueByPackage {
	memberPackage := make(map[string]string, len(s.Members))
	for _, u := range s.Members {
		memberPackage[u.ID] = u.CurrentPackageID()
	}

	free, monthly, yearly := decimal.Zero, decimal.Zero, decimal.Zero
	for _, p := range s.Payments {
		pkg := p.PackageID
		if pkg == "" {
			pkg = memberPackage[p.UserID]
		}
		switch pkg {
		case models.PackageMonthly:
			monthly = monthly.Add(p.Amount)
		case models.PackageYearly:
			yearly = yearly.Add(p.Amount)
		default:
			free = free.Add(p.Amount)
		}
	}

	return models.RevenueByPackage{
		Free:    free.InexactFloat64(),
		Monthly: monthly.InexactFloat64(),
		Yearly:  yearly.InexactFloat64(),
	}
}

// TopContent ranks content by all-time watch minutes, descending, ties
// broken by content ID ascending for determinism.
func (s *Snapshot) TopContent(n int) []models.ContentRanking {
	ranked := make([]models.ContentRanking, 0, len(s.Content))
	for _, c := range s.Content {
		ranked = append(ranked, models.ContentRanking{
			ContentID:     c.ID,
			Title:         titleOrUnknown(c.Title),
			WatchMinutes:  c.TotalWatchMinutes,
			FollowerCount: c.FollowerCount,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].WatchMinutes != ranked[j].WatchMinutes {
			return ranked[i].WatchMinutes > ranked[j].WatchMinutes
		}
		return ranked[i].ContentID < ranked[j].ContentID
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// TopContentWeekly ranks content by watch minutes of the current ISO week
// (absent buckets read as 0), ties broken by follower count descending, then
// content ID ascending.
func (s *Snapshot) TopContentWeekly(n int) []models.ContentRanking {
	ranked := make([]models.ContentRanking, 0, len(s.Content))
	for _, c := range s.Content {
		ranked = append(ranked, models.ContentRanking{
			ContentID:     c.ID,
			Title:         titleOrUnknown(c.Title),
			WatchMinutes:  s.WeeklyMinutes[c.ID],
			FollowerCount: c.FollowerCount,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].WatchMinutes != ranked[j].WatchMinutes {
			return ranked[i].WatchMinutes > ranked[j].WatchMinutes
		}
		if ranked[i].FollowerCount != ranked[j].FollowerCount {
			return ranked[i].FollowerCount > ranked[j].FollowerCount
		}
		return ranked[i].ContentID < ranked[j].ContentID
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// MonthlyTrends produces the trailing 12 calendar months, oldest first, with
// the revenue and new-member count of each month.
func (s *Snapshot) MonthlyTrends() []models.MonthlyTrend {
	trends := make([]models.MonthlyTrend, 0, 12)
	currentMonth := time.Date(s.Now.Year(), s.Now.Month(), 1, 0, 0, 0, 0, s.Now.Location())

	for i := 11; i >= 0; i-- {
		monthStart := currentMonth.AddDate(0, -i, 0)
		nextMonth := monthStart.AddDate(0, 1, 0)

		revenue := decimal.Zero
		for _, p := range s.Payments {
			if p.Date.IsZero() {
				continue
			}
			if !p.Date.Before(monthStart) && p.Date.Before(nextMonth) {
				revenue = revenue.Add(p.Amount)
			}
		}

		newMembers := 0
		for _, u := range s.Members {
			if u.CreatedAt.IsZero() {
				continue
			}
			if !u.CreatedAt.Before(monthStart) && u.CreatedAt.Before(nextMonth) {
				newMembers++
			}
		}

		trends = append(trends, models.MonthlyTrend{
			Year:       monthStart.Year(),
			Month:      int(monthStart.Month()),
			Revenue:    revenue.InexactFloat64(),
			NewMembers: newMembers,
		})
	}
	return trends
}

func titleOrUnknown(title string) string {
	if title == "" {
		return "Unknown"
	}
	return title
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
