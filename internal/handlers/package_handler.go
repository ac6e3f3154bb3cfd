package handlers

import (
	"errors"
	"net/http"

	"go-cargo-portal/internal/database"
	"go-cargo-portal/internal/lifecycle"
	"go-cargo-portal/internal/models"

	"github.com/gin-gonic/gin"
)

// --- ADMIN ---

// GetPackages lists packages for the back office, optionally filtered by
// status or owner. Soft-deleted packages are hidden unless asked for.
func GetPackages(c *gin.Context) {
	q := database.DB.Model(&models.Package{})

	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	} else {
		q = q.Where("status <> ?", lifecycle.StatusDeleted)
	}
	if userID := c.Query("user_id"); userID != "" {
		q = q.Where("user_id = ?", userID)
	}

	var pkgs []models.Package
	if err := q.Order("created_at DESC").Limit(200).Find(&pkgs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch packages"})
		return
	}
	c.JSON(http.StatusOK, pkgs)
}

// GetPackage returns one package with its full history and invoices.
func GetPackage(c *gin.Context) {
	tn := c.Param("tracking_number")

	var pkg models.Package
	err := database.DB.Preload("History").Preload("Invoices").
		Where("tracking_number = ?", tn).First(&pkg).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Package not found"})
		return
	}
	c.JSON(http.StatusOK, pkg)
}

type PackageRequest struct {
	TrackingNumber string  `json:"tracking_number" binding:"required"`
	UserID         uint    `json:"user_id"`
	Description    string  `json:"description"`
	WeightKg       float64 `json:"weight_kg"`
	LengthCm       float64 `json:"length_cm"`
	WidthCm        float64 `json:"width_cm"`
	HeightCm       float64 `json:"height_cm"`
	DeclaredValue  float64 `json:"declared_value"`
	ServiceMode    string  `json:"service_mode"`
	OriginCountry  string  `json:"origin_country"`
	DestCountry    string  `json:"dest_country"`
	Note           string  `json:"note"`
}

func (r PackageRequest) intakeInput() lifecycle.IntakeInput {
	return lifecycle.IntakeInput{
		TrackingNumber: r.TrackingNumber,
		UserID:         r.UserID,
		Description:    r.Description,
		WeightKg:       r.WeightKg,
		LengthCm:       r.LengthCm,
		WidthCm:        r.WidthCm,
		HeightCm:       r.HeightCm,
		DeclaredValue:  r.DeclaredValue,
		ServiceMode:    r.ServiceMode,
		OriginCountry:  r.OriginCountry,
		DestCountry:    r.DestCountry,
		Note:           r.Note,
	}
}

// CreatePackage registers a package from the back office. Same intake
// path as the warehouse scanner, so pre-alert matching applies here too.
func CreatePackage(c *gin.Context) {
	var req PackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	pkg, alert, err := packages.Intake(req.intakeInput())
	if err != nil {
		if errors.Is(err, lifecycle.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Tracking number already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create package"})
		return
	}

	resp := gin.H{"package": pkg}
	if alert != nil {
		resp["matched_pre_alert"] = alert.ID
	}
	c.JSON(http.StatusCreated, resp)
}

// UpdatePackage does a partial update of package attributes. Status is
// deliberately excluded: status moves only through the lifecycle
// endpoint so history stays complete.
func UpdatePackage(c *gin.Context) {
	tn := c.Param("tracking_number")

	var pkg models.Package
	if err := database.DB.Where("tracking_number = ?", tn).First(&pkg).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Package not found"})
		return
	}

	var updateData map[string]interface{}
	if err := c.ShouldBindJSON(&updateData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	delete(updateData, "status")
	delete(updateData, "tracking_number")
	delete(updateData, "id")

	if err := database.DB.Model(&pkg).Updates(updateData).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update package"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Package updated", "package": pkg})
}

type StatusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// UpdatePackageStatus moves a package through its lifecycle and appends
// a history event.
func UpdatePackageStatus(c *gin.Context) {
	tn := c.Param("tracking_number")

	var req StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	pkg, err := packages.UpdateStatus(tn, req.Status, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Package not found"})
		case errors.Is(err, lifecycle.ErrUnknownStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status: " + req.Status})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Status updated", "package": pkg})
}

// DeletePackage soft-deletes: the row and its history stay for audit,
// the package just leaves every active view.
func DeletePackage(c *gin.Context) {
	tn := c.Param("tracking_number")
	actorID := c.MustGet("userID").(uint)

	pkg, err := packages.SoftDelete(tn, "removed by back office")
	if err != nil {
		if errors.Is(err, lifecycle.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Package not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete package"})
		return
	}

	audit(actorID, "package.delete", "package", pkg.TrackingNumber, "")
	c.JSON(http.StatusOK, gin.H{"message": "Package deleted", "tracking_number": pkg.TrackingNumber})
}

// GetPackageHistory returns the append-only event log, oldest first.
func GetPackageHistory(c *gin.Context) {
	tn := c.Param("tracking_number")

	events, err := packages.History(tn)
	if err != nil {
		if errors.Is(err, lifecycle.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Package not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch history"})
		return
	}
	c.JSON(http.StatusOK, events)
}

// --- CUSTOMER ---

// GetMyPackages lists the calling customer's packages.
func GetMyPackages(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	var pkgs []models.Package
	err := database.DB.
		Where("user_id = ? AND status <> ?", userID, lifecycle.StatusDeleted).
		Order("created_at DESC").
		Find(&pkgs).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch packages"})
		return
	}
	c.JSON(http.StatusOK, pkgs)
}

// TrackPackage returns one of the customer's own packages with history.
// Ownership is enforced in the query, so someone else's tracking number
// just comes back as not found.
func TrackPackage(c *gin.Context) {
	userID := c.MustGet("userID").(uint)
	tn := c.Param("tracking_number")

	var pkg models.Package
	err := database.DB.Preload("History").
		Where("tracking_number = ? AND user_id = ? AND status <> ?", tn, userID, lifecycle.StatusDeleted).
		First(&pkg).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Package not found"})
		return
	}
	c.JSON(http.StatusOK, pkg)
}

// --- WAREHOUSE ---

// IntakePackage is the scanner-facing intake endpoint. If the customer
// pre-alerted this tracking number, the alert is approved and linked in
// the same transaction.
func IntakePackage(c *gin.Context) {
	var req PackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	pkg, alert, err := packages.Intake(req.intakeInput())
	if err != nil {
		if errors.Is(err, lifecycle.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Tracking number already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register package"})
		return
	}

	resp := gin.H{"package": pkg}
	if alert != nil {
		resp["matched_pre_alert"] = alert.ID
	}
	c.JSON(http.StatusCreated, resp)
}
