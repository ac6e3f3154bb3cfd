package handlers

import (
	"net/http"
	"time"

	"go-cargo-portal/internal/database"
	"go-cargo-portal/internal/models"

	"github.com/gin-gonic/gin"
)

type PreAlertRequest struct {
	TrackingNumber string `json:"tracking_number" binding:"required"`
	Carrier        string `json:"carrier"`
	OriginCountry  string `json:"origin_country"`
	ExpectedDate   string `json:"expected_date"` // YYYY-MM-DD
}

// CreatePreAlert files advance notice of an incoming package. When the
// parcel later arrives at the warehouse, intake matches on the tracking
// number and approves the alert automatically.
func CreatePreAlert(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	var req PreAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	var expected time.Time
	if req.ExpectedDate != "" {
		var err error
		expected, err = time.Parse("2006-01-02", req.ExpectedDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "expected_date must be YYYY-MM-DD"})
			return
		}
	}

	// One open alert per tracking number per customer
	var open int64
	database.DB.Model(&models.PreAlert{}).
		Where("user_id = ? AND tracking_number = ? AND status = ?", userID, req.TrackingNumber, "submitted").
		Count(&open)
	if open > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "A pre-alert for this tracking number is already open"})
		return
	}

	alert := models.PreAlert{
		UserID:         userID,
		TrackingNumber: req.TrackingNumber,
		Carrier:        req.Carrier,
		OriginCountry:  req.OriginCountry,
		ExpectedDate:   expected,
		Status:         "submitted",
	}
	if err := database.DB.Create(&alert).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create pre-alert"})
		return
	}

	c.JSON(http.StatusCreated, alert)
}

// GetMyPreAlerts lists the calling customer's pre-alerts, newest first.
func GetMyPreAlerts(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	var alerts []models.PreAlert
	err := database.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&alerts).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pre-alerts"})
		return
	}
	c.JSON(http.StatusOK, alerts)
}

// ListPreAlerts is the back-office view, filterable by status.
func ListPreAlerts(c *gin.Context) {
	q := database.DB.Model(&models.PreAlert{})
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var alerts []models.PreAlert
	if err := q.Order("created_at DESC").Limit(200).Find(&alerts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pre-alerts"})
		return
	}
	c.JSON(http.StatusOK, alerts)
}

// RejectPreAlert closes an alert that will never match (wrong carrier
// data, cancelled shipment). Only open alerts can be rejected.
func RejectPreAlert(c *gin.Context) {
	id := c.Param("id")
	actorID := c.MustGet("userID").(uint)

	var alert models.PreAlert
	if err := database.DB.First(&alert, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pre-alert not found"})
		return
	}
	if alert.Status != "submitted" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only open pre-alerts can be rejected"})
		return
	}

	alert.Status = "rejected"
	if err := database.DB.Save(&alert).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update pre-alert"})
		return
	}

	audit(actorID, "prealert.reject", "pre_alert", alert.TrackingNumber, "")
	c.JSON(http.StatusOK, gin.H{"message": "Pre-alert rejected", "pre_alert": alert})
}
