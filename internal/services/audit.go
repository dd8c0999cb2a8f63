package services

import (
	"encoding/json"
	"log"
	"time"

	"github.com/taskhive-dev/taskhive/db"
	"github.com/taskhive-dev/taskhive/internal/models"
	"gorm.io/datatypes"
)

// LogAction appends an audit entry for a successful mutation. It is
// best-effort: failures are logged and swallowed so they can never fail
// the mutation that triggered them.
func LogAction(userID uint, taskID *uint, boardID uint, action string, details string, entity interface{}) {
	entry := models.ActionLog{
		UserID:    userID,
		BoardID:   boardID,
		TaskID:    taskID,
		Action:    action,
		Details:   details,
		Timestamp: time.Now(),
	}

	if entity != nil {
		metadata, err := json.Marshal(entity)
		if err != nil {
			log.Printf("Failed to marshal action log metadata: %v", err)
		} else {
			entry.Metadata = datatypes.JSON(metadata)
		}
	}

	if err := db.DB.Create(&entry).Error; err != nil {
		log.Printf("Action logging failed: %v", err)
	}
}
