package outbox

import (
	"encoding/json"

	"go-cargo-portal/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Enqueue stores a side-effect job (email, receipt, notification) for the
// background dispatcher. Call it inside the primary transaction when one
// exists so the job and the write land together.
func Enqueue(db *gorm.DB, kind string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := models.OutboxJob{
		JobID:   uuid.NewString(),
		Kind:    kind,
		Payload: string(body),
		Status:  "pending",
	}
	return db.Create(&job).Error
}
