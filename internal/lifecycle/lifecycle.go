package lifecycle

import (
	"errors"
	"time"

	"go-cargo-portal/internal/models"

	"gorm.io/gorm"
)

// Package statuses. "unknown" is a real stored value for packages whose
// carrier state could not be determined, not an error marker.
const (
	StatusReceived     = "received"
	StatusInProcessing = "in_processing"
	StatusReadyToShip  = "ready_to_ship"
	StatusShipped      = "shipped"
	StatusInTransit    = "in_transit"
	StatusDelivered    = "delivered"
	StatusDeleted      = "deleted"
	StatusUnknown      = "unknown"
)

var validStatuses = map[string]bool{
	StatusReceived:     true,
	StatusInProcessing: true,
	StatusReadyToShip:  true,
	StatusShipped:      true,
	StatusInTransit:    true,
	StatusDelivered:    true,
	StatusDeleted:      true,
	StatusUnknown:      true,
}

var (
	ErrNotFound      = errors.New("package not found")
	ErrUnknownStatus = errors.New("unknown package status")
	ErrDuplicate     = errors.New("tracking number already exists")
)

// ValidStatus reports whether s is a storable package status.
func ValidStatus(s string) bool {
	return validStatuses[s]
}

// Manager owns package status transitions and the history log. Every write
// appends an immutable PackageEvent; history rows are never updated.
type Manager struct {
	db *gorm.DB
}

func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// UpdateStatus moves a package to a new status and appends a history entry,
// both in one transaction. Role checks happen at the route layer before we
// get here.
func (m *Manager) UpdateStatus(trackingNumber, status, note string) (*models.Package, error) {
	if !ValidStatus(status) {
		return nil, ErrUnknownStatus
	}

	var pkg models.Package
	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tracking_number = ?", trackingNumber).First(&pkg).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		pkg.Status = status
		if err := tx.Save(&pkg).Error; err != nil {
			return err
		}

		event := models.PackageEvent{
			PackageID: pkg.ID,
			Status:    status,
			Note:      note,
			At:        time.Now(),
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

// SoftDelete marks a package deleted instead of removing the row. Deleted
// packages drop out of active-count aggregations but stay for audit.
func (m *Manager) SoftDelete(trackingNumber, note string) (*models.Package, error) {
	return m.UpdateStatus(trackingNumber, StatusDeleted, note)
}

// IntakeInput is what the warehouse records when a parcel arrives.
type IntakeInput struct {
	TrackingNumber string
	UserID         uint
	Description    string
	WeightKg       float64
	LengthCm       float64
	WidthCm        float64
	HeightCm       float64
	DeclaredValue  float64
	ServiceMode    string
	OriginCountry  string
	DestCountry    string
	Note           string
}

// Intake registers a received package. If the customer filed a pre-alert
// for the same tracking number, it is approved and linked in the SAME
// transaction - either both writes land or neither does. When the intake
// has no owner yet, the pre-alert's customer claims the package.
func (m *Manager) Intake(in IntakeInput) (*models.Package, *models.PreAlert, error) {
	var (
		pkg     models.Package
		matched *models.PreAlert
	)

	err := m.db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Package{}).
			Where("tracking_number = ?", in.TrackingNumber).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicate
		}

		var alert models.PreAlert
		err := tx.Where("tracking_number = ? AND status = ?", in.TrackingNumber, "submitted").
			Order("created_at DESC").
			First(&alert).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		hasAlert := err == nil

		owner := in.UserID
		if owner == 0 && hasAlert {
			owner = alert.UserID
		}

		pkg = models.Package{
			TrackingNumber: in.TrackingNumber,
			UserID:         owner,
			Description:    in.Description,
			WeightKg:       in.WeightKg,
			LengthCm:       in.LengthCm,
			WidthCm:        in.WidthCm,
			HeightCm:       in.HeightCm,
			DeclaredValue:  in.DeclaredValue,
			ServiceMode:    in.ServiceMode,
			OriginCountry:  in.OriginCountry,
			DestCountry:    in.DestCountry,
			Status:         StatusReceived,
		}
		if err := tx.Create(&pkg).Error; err != nil {
			return err
		}

		event := models.PackageEvent{
			PackageID: pkg.ID,
			Status:    StatusReceived,
			Note:      in.Note,
			At:        time.Now(),
		}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}

		if hasAlert {
			alert.Status = "approved"
			alert.MatchedPackageID = &pkg.ID
			if err := tx.Save(&alert).Error; err != nil {
				return err
			}
			matched = &alert
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &pkg, matched, nil
}

// History returns the append-only event log, oldest first.
func (m *Manager) History(trackingNumber string) ([]models.PackageEvent, error) {
	var pkg models.Package
	if err := m.db.Where("tracking_number = ?", trackingNumber).First(&pkg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var events []models.PackageEvent
	err := m.db.Where("package_id = ?", pkg.ID).Order("id ASC").Find(&events).Error
	return events, err
}
