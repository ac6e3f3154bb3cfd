package handlers

import (
	"net/http"
	"time"

	"go-cargo-portal/internal/database"
	"go-cargo-portal/internal/models"

	"github.com/gin-gonic/gin"
)

// DashboardData is the back-office landing page payload.
type DashboardData struct {
	ActivePackages     int64                  `json:"active_packages"`
	PackagesByStatus   []database.StatusCount `json:"packages_by_status"`
	OutstandingBalance float64                `json:"outstanding_balance"`
	RecentPayments     []models.Payment       `json:"recent_payments"`
}

// GetDashboard aggregates the operational overview in one call.
func GetDashboard(c *gin.Context) {
	var data DashboardData

	active, err := database.ActivePackageCount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count packages"})
		return
	}
	data.ActivePackages = active

	data.PackagesByStatus, err = database.CountPackagesByStatus()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to group packages"})
		return
	}

	data.OutstandingBalance, err = database.OutstandingBalanceTotal()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sum outstanding balances"})
		return
	}

	err = database.DB.Where("status = ?", "captured").
		Order("created_at DESC").Limit(10).
		Find(&data.RecentPayments).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recent payments"})
		return
	}

	c.JSON(http.StatusOK, data)
}

// GetRevenueReport sums captured payments over ?start=YYYY-MM-DD&end=...
// Defaults to the current month.
func GetRevenueReport(c *gin.Context) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := now

	if s := c.Query("start"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start must be YYYY-MM-DD"})
			return
		}
		start = parsed
	}
	if e := c.Query("end"); e != "" {
		parsed, err := time.Parse("2006-01-02", e)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end must be YYYY-MM-DD"})
			return
		}
		end = parsed.Add(23*time.Hour + 59*time.Minute)
	}

	report, err := database.GetRevenueReport(start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to calculate revenue"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"start":           start.Format("2006-01-02"),
		"end":             end.Format("2006-01-02"),
		"total_collected": report.TotalCollected,
		"payment_count":   report.PaymentCount,
	})
}

// GetAuditLog pages through back-office actions, newest first.
func GetAuditLog(c *gin.Context) {
	q := database.DB.Model(&models.AuditLog{})
	if action := c.Query("action"); action != "" {
		q = q.Where("action = ?", action)
	}

	var entries []models.AuditLog
	if err := q.Order("created_at DESC").Limit(200).Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch audit log"})
		return
	}
	c.JSON(http.StatusOK, entries)
}
