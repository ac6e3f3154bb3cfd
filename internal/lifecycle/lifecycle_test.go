package lifecycle

import (
	"errors"
	"fmt"
	"testing"

	"go-cargo-portal/internal/database"
	"go-cargo-portal/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// A second pooled connection would see an empty in-memory database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestIntakeCreatesPackageWithHistory(t *testing.T) {
	db := testDB(t)
	m := NewManager(db)

	pkg, alert, err := m.Intake(IntakeInput{
		TrackingNumber: "TRK-1001",
		UserID:         7,
		WeightKg:       3.5,
		ServiceMode:    "air",
		Note:           "received at Miami warehouse",
	})
	if err != nil {
		t.Fatalf("intake: %v", err)
	}
	if alert != nil {
		t.Errorf("expected no pre-alert match, got %+v", alert)
	}
	if pkg.Status != StatusReceived {
		t.Errorf("status: expected %q, got %q", StatusReceived, pkg.Status)
	}

	events, err := m.History("TRK-1001")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(events) != 1 || events[0].Status != StatusReceived {
		t.Fatalf("expected single received event, got %+v", events)
	}
}

func TestIntakeRejectsDuplicateTracking(t *testing.T) {
	db := testDB(t)
	m := NewManager(db)

	if _, _, err := m.Intake(IntakeInput{TrackingNumber: "TRK-DUP", UserID: 1}); err != nil {
		t.Fatalf("first intake: %v", err)
	}
	if _, _, err := m.Intake(IntakeInput{TrackingNumber: "TRK-DUP", UserID: 1}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestIntakeAutoApprovesPreAlert(t *testing.T) {
	db := testDB(t)
	m := NewManager(db)

	alert := models.PreAlert{
		UserID:         42,
		TrackingNumber: "TRK-2002",
		Carrier:        "DHL",
		Status:         "submitted",
	}
	if err := db.Create(&alert).Error; err != nil {
		t.Fatalf("seed pre-alert: %v", err)
	}

	// Warehouse intake with no known owner: the pre-alert claims it
	pkg, matched, err := m.Intake(IntakeInput{TrackingNumber: "TRK-2002"})
	if err != nil {
		t.Fatalf("intake: %v", err)
	}
	if matched == nil {
		t.Fatal("expected pre-alert to be matched")
	}
	if matched.Status != "approved" {
		t.Errorf("pre-alert status: expected approved, got %q", matched.Status)
	}
	if matched.MatchedPackageID == nil || *matched.MatchedPackageID != pkg.ID {
		t.Errorf("pre-alert should link to package %d, got %v", pkg.ID, matched.MatchedPackageID)
	}
	if pkg.UserID != 42 {
		t.Errorf("package owner: expected 42 (from pre-alert), got %d", pkg.UserID)
	}

	// Approval is persisted, not just in memory
	var stored models.PreAlert
	if err := db.First(&stored, alert.ID).Error; err != nil {
		t.Fatalf("reload pre-alert: %v", err)
	}
	if stored.Status != "approved" {
		t.Errorf("stored pre-alert status: expected approved, got %q", stored.Status)
	}
}

func TestUpdateStatusAppendsHistory(t *testing.T) {
	db := testDB(t)
	m := NewManager(db)

	if _, _, err := m.Intake(IntakeInput{TrackingNumber: "TRK-3003", UserID: 1}); err != nil {
		t.Fatalf("intake: %v", err)
	}

	transitions := []string{StatusInProcessing, StatusReadyToShip, StatusShipped, StatusInTransit, StatusDelivered}
	prevLen := 1
	for _, status := range transitions {
		pkg, err := m.UpdateStatus("TRK-3003", status, "")
		if err != nil {
			t.Fatalf("update to %s: %v", status, err)
		}
		if pkg.Status != status {
			t.Errorf("status: expected %q, got %q", status, pkg.Status)
		}

		events, err := m.History("TRK-3003")
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		// History only ever grows, and the tail matches the current status
		if len(events) != prevLen+1 {
			t.Fatalf("history length: expected %d, got %d", prevLen+1, len(events))
		}
		if events[len(events)-1].Status != status {
			t.Errorf("latest event: expected %q, got %q", status, events[len(events)-1].Status)
		}
		prevLen = len(events)
	}
}

func TestUpdateStatusErrors(t *testing.T) {
	db := testDB(t)
	m := NewManager(db)

	if _, err := m.UpdateStatus("NOPE", StatusShipped, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if _, _, err := m.Intake(IntakeInput{TrackingNumber: "TRK-4004", UserID: 1}); err != nil {
		t.Fatalf("intake: %v", err)
	}
	if _, err := m.UpdateStatus("TRK-4004", "vaporized", ""); !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestSoftDeleteExcludedFromActiveCount(t *testing.T) {
	db := testDB(t)
	m := NewManager(db)

	for _, tn := range []string{"TRK-A", "TRK-B", "TRK-C"} {
		if _, _, err := m.Intake(IntakeInput{TrackingNumber: tn, UserID: 1}); err != nil {
			t.Fatalf("intake %s: %v", tn, err)
		}
	}

	if _, err := m.SoftDelete("TRK-B", "duplicate entry"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	var active int64
	if err := db.Model(&models.Package{}).Where("status <> ?", StatusDeleted).Count(&active).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if active != 2 {
		t.Errorf("active count: expected 2, got %d", active)
	}

	// The record itself is retained for audit, with its history intact
	var pkg models.Package
	if err := db.Where("tracking_number = ?", "TRK-B").First(&pkg).Error; err != nil {
		t.Fatalf("deleted package should still exist: %v", err)
	}
	if pkg.Status != StatusDeleted {
		t.Errorf("status: expected deleted, got %q", pkg.Status)
	}
	events, _ := m.History("TRK-B")
	if len(events) != 2 {
		t.Errorf("history: expected 2 events, got %d", len(events))
	}
}
