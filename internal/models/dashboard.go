package models

import "time"

// DashboardSummary aggregates inventory and loan counters.
type DashboardSummary struct {
	TotalItems       int            `json:"totalItems"`
	ItemsByStatus    map[string]int `json:"itemsByStatus"`
	ActiveLoans      int            `json:"activeLoans"`
	OverdueLoans     int            `json:"overdueLoans"`
	UnassignedQR     int            `json:"unassignedQrCodes"`
	RecentActivities []Activity     `json:"recentActivities"`
	GeneratedAt      time.Time      `json:"generatedAt"`
}

// StatusCount is one row of a grouped count query.
type StatusCount struct {
	Status string `db:"status"`
	Count  int    `db:"count"`
}
