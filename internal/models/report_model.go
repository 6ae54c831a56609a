package models

import "time"

// PackageDistribution counts active members per package.
type PackageDistribution struct {
	Free    int `json:"free" firestore:"free"`
	Monthly int `json:"monthly" firestore:"monthly"`
	Yearly  int `json:"yearly" firestore:"yearly"`
}

// RevenueByPackage sums succeeded-payment amounts per package.
type RevenueByPackage struct {
	Free    float64 `json:"free" firestore:"free"`
	Monthly float64 `json:"monthly" firestore:"monthly"`
	Yearly  float64 `json:"yearly" firestore:"yearly"`
}

// ContentRanking is one row of a top-N content list.
type ContentRanking struct {
	ContentID     string `json:"contentId" firestore:"contentId"`
	Title         string `json:"title" firestore:"title"`
	WatchMinutes  int64  `json:"watchMinutes" firestore:"watchMinutes"`
	FollowerCount int64  `json:"followerCount" firestore:"followerCount"`
}

// MonthlyTrend is one month of the trailing-12-month trend series.
// Month is 1-12.
type MonthlyTrend struct {
	Year       int     `json:"year" firestore:"year"`
	Month      int     `json:"month" firestore:"month"`
	Revenue    float64 `json:"revenue" firestore:"revenue"`
	NewMembers int     `json:"newMembers" firestore:"newMembers"`
}

// MainSummary is the reports/main_summary document: the full metric set
// including the 12-month trend series. It is overwritten wholesale on every
// aggregation run and must never be hand-edited.
type MainSummary struct {
	TotalRevenue        float64             `json:"totalRevenue" firestore:"totalRevenue"`
	NewMembers          int                 `json:"newMembers" firestore:"newMembers"`
	ChurnRate           float64             `json:"churnRate" firestore:"churnRate"`
	RenewalRate         float64             `json:"renewalRate" firestore:"renewalRate"`
	TotalMembers        int                 `json:"totalMembers" firestore:"totalMembers"`
	PackageDistribution PackageDistribution `json:"packageDistribution" firestore:"packageDistribution"`
	RevenueByPackage    RevenueByPackage    `json:"revenueByPackage" firestore:"revenueByPackage"`
	Top10Content        []ContentRanking    `json:"top10Content" firestore:"top10Content"`
	Top10Weekly         []ContentRanking    `json:"top10Weekly" firestore:"top10Weekly"`
	MonthlyTrends       []MonthlyTrend      `json:"monthlyTrends" firestore:"monthlyTrends"`
	LastUpdated         time.Time           `json:"lastUpdated" firestore:"lastUpdated,serverTimestamp"`
}

// DailySummary is the reports/daily_summary document: the dashboard metric
// set without the trend series.
type DailySummary struct {
	TotalRevenue        float64             `json:"totalRevenue" firestore:"totalRevenue"`
	NewMembers          int                 `json:"newMembers" firestore:"newMembers"`
	ChurnRate           float64             `json:"churnRate" firestore:"churnRate"`
	RenewalRate         float64             `json:"renewalRate" firestore:"renewalRate"`
	TotalMembers        int                 `json:"totalMembers" firestore:"totalMembers"`
	PackageDistribution PackageDistribution `json:"packageDistribution" firestore:"packageDistribution"`
	RevenueByPackage    RevenueByPackage    `json:"revenueByPackage" firestore:"revenueByPackage"`
	Top10Content        []ContentRanking    `json:"top10Content" firestore:"top10Content"`
	Top10Weekly         []ContentRanking    `json:"top10Weekly" firestore:"top10Weekly"`
	LastUpdated         time.Time           `json:"lastUpdated" firestore:"lastUpdated,serverTimestamp"`
}

// MonthlyReport is one reports/monthly_{YYYY}_{MM} document.
type MonthlyReport struct {
	Year        int       `json:"year" firestore:"year"`
	Month       int       `json:"month" firestore:"month"`
	Revenue     float64   `json:"revenue" firestore:"revenue"`
	NewMembers  int       `json:"newMembers" firestore:"newMembers"`
	LastUpdated time.Time `json:"lastUpdated" firestore:"lastUpdated,serverTimestamp"`
}
