package database

import (
	"time"

	"go-cargo-portal/internal/models"
)

// RevenueReportResult holds collected-payment totals for a date range
type RevenueReportResult struct {
	TotalCollected float64
	PaymentCount   int64
}

// GetRevenueReport sums captured payments within a date range
func GetRevenueReport(start, end time.Time) (*RevenueReportResult, error) {
	var result RevenueReportResult

	// COALESCE ensures we get 0 instead of NULL if no payments exist
	err := DB.Model(&models.Payment{}).
		Where("created_at BETWEEN ? AND ? AND status = ?", start, end, "captured").
		Select("COALESCE(SUM(amount), 0)").
		Scan(&result.TotalCollected).Error
	if err != nil {
		return nil, err
	}

	err = DB.Model(&models.Payment{}).
		Where("created_at BETWEEN ? AND ? AND status = ?", start, end, "captured").
		Count(&result.PaymentCount).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// StatusCount is one row of the packages-by-status breakdown
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// CountPackagesByStatus groups packages by status. Soft-deleted packages
// show up under "deleted" so the back-office can see them, but
// ActivePackageCount excludes them.
func CountPackagesByStatus() ([]StatusCount, error) {
	var counts []StatusCount
	err := DB.Model(&models.Package{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&counts).Error
	return counts, err
}

// ActivePackageCount counts everything except soft-deleted packages
func ActivePackageCount() (int64, error) {
	var n int64
	err := DB.Model(&models.Package{}).
		Where("status <> ?", "deleted").
		Count(&n).Error
	return n, err
}

// OutstandingBalanceTotal sums balance due across unpaid invoices
func OutstandingBalanceTotal() (float64, error) {
	var total float64
	err := DB.Model(&models.Invoice{}).
		Where("status IN ?", []string{"sent", "partially_paid", "overdue"}).
		Select("COALESCE(SUM(balance_due), 0)").
		Scan(&total).Error
	return total, err
}
