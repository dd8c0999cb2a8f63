package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskhive-dev/taskhive/db"
	"github.com/taskhive-dev/taskhive/internal/models"
)

// The activity feed shows only the latest entries; older ones are reaped
// by the retention sweeper.
const recentActionsLimit = 20

type ActionLogEntry struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	UserName  string    `json:"user_name"`
	BoardID   uint      `json:"board_id"`
	TaskID    *uint     `json:"task_id"`
	TaskTitle string    `json:"task_title,omitempty"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

func GetRecentActions(ctx *gin.Context) {
	var logs []models.ActionLog

	err := db.DB.Preload("User").Preload("Task").
		Order("timestamp DESC, id DESC").
		Limit(recentActionsLimit).
		Find(&logs).Error

	if err != nil {
		log.Printf("Failed to fetch action logs: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch action logs"})
		return
	}

	entries := make([]ActionLogEntry, 0, len(logs))

	for _, entry := range logs {
		item := ActionLogEntry{
			ID:        entry.ID,
			UserID:    entry.UserID,
			UserName:  entry.User.FullName,
			BoardID:   entry.BoardID,
			TaskID:    entry.TaskID,
			Action:    entry.Action,
			Details:   entry.Details,
			Timestamp: entry.Timestamp,
		}

		if entry.Task != nil {
			item.TaskTitle = entry.Task.Title
		}

		entries = append(entries, item)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"logs":       entries,
		"total_logs": len(entries),
	})
}
