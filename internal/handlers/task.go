package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskhive-dev/taskhive/db"
	"github.com/taskhive-dev/taskhive/internal/middleware"
	"github.com/taskhive-dev/taskhive/internal/models"
	"github.com/taskhive-dev/taskhive/internal/services"
	"github.com/taskhive-dev/taskhive/internal/types"
	"github.com/taskhive-dev/taskhive/internal/utils"
	"gorm.io/gorm"
)

type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	BoardID     uint   `json:"board_id"`
	AssignedTo  uint   `json:"assigned_to"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
}

// UpdateTaskRequest is a partial merge: only present fields are applied.
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	AssignedTo  *uint   `json:"assigned_to"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
}

type TaskResponse struct {
	ID           uint                 `json:"id"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	BoardID      uint                 `json:"board_id"`
	AssignedTo   *types.UserResponse  `json:"assigned_to"`
	Status       string               `json:"status"`
	Priority     string               `json:"priority"`
	LastModified time.Time            `json:"last_modified"`
}

func taskResponse(task models.Task) TaskResponse {
	resp := TaskResponse{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		BoardID:      task.BoardID,
		Status:       task.Status,
		Priority:     task.Priority,
		LastModified: task.LastModified,
	}

	if task.AssignedTo != nil {
		resp.AssignedTo = &types.UserResponse{
			ID:         task.AssignedTo.ID,
			FullName:   task.AssignedTo.FullName,
			Email:      task.AssignedTo.Email,
			ProfilePic: task.AssignedTo.ProfilePic,
		}
	}

	return resp
}

func CreateTask(ctx *gin.Context) {
	var body CreateTaskRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	if body.Title == "" || body.Description == "" || body.BoardID == 0 ||
		body.AssignedTo == 0 || body.Status == "" || body.Priority == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
		return
	}

	if !types.ValidStatus(body.Status) || !types.ValidPriority(body.Priority) {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "Invalid status or priority"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"message": "User not authenticated"})
		return
	}

	title := utils.Normalize(body.Title)

	if title == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
		return
	}

	if types.IsColumnName(title) {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "Title cannot match column names"})
		return
	}

	board, ok := requireMembership(ctx, body.BoardID, currentUser.ID)
	if !ok {
		return
	}

	if !membershipExists(board.ID, body.AssignedTo) {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "Assignee must be a member of this board"})
		return
	}

	var existing models.Task

	err = db.DB.Where("board_id = ? AND title = ?", board.ID, title).First(&existing).Error

	if err == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "Title must be unique per board"})
		return
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Database error when checking task title: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	task := models.Task{
		Title:        title,
		Description:  body.Description,
		BoardID:      board.ID,
		AssignedToID: &body.AssignedTo,
		Status:       body.Status,
		Priority:     body.Priority,
		LastModified: time.Now(),
	}

	if err := db.DB.Create(&task).Error; err != nil {
		// The unique index catches the race two concurrent creates with
		// the same title would otherwise win together.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			ctx.JSON(http.StatusBadRequest, gin.H{"message": "Title must be unique per board"})
			return
		}
		log.Printf("Failed to create task: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	var assignee models.User
	if err := db.DB.First(&assignee, body.AssignedTo).Error; err == nil {
		task.AssignedTo = &assignee
	}

	details := strings.ToUpper(title) + " task is created !"
	services.LogAction(currentUser.ID, &task.ID, board.ID, types.ActionCreated, details, taskResponse(task))
	go services.NotifyActivity(board, currentUser.FullName, types.ActionCreated, details)

	BroadcastToBoard(board.ID, "task:create", taskResponse(task))
	BroadcastRecentActions(board.ID)

	ctx.JSON(http.StatusCreated, taskResponse(task))
}

func UpdateTask(ctx *gin.Context) {
	task, body, currentUser, ok := bindTaskUpdate(ctx)
	if !ok {
		return
	}

	board, ok := requireMembership(ctx, task.BoardID, currentUser.ID)
	if !ok {
		return
	}

	if !applyTaskUpdates(ctx, &task, body, board) {
		return
	}

	if !saveTask(ctx, &task) {
		return
	}

	details := strings.ToUpper(task.Title) + " task is updated !"
	services.LogAction(currentUser.ID, &task.ID, task.BoardID, types.ActionUpdated, details, taskResponse(task))
	go services.NotifyActivity(board, currentUser.FullName, types.ActionUpdated, details)

	BroadcastToBoard(task.BoardID, "task:update", taskResponse(task))
	BroadcastRecentActions(task.BoardID)

	ctx.JSON(http.StatusOK, taskResponse(task))
}

// UpdateTaskStatus serves drag-and-drop moves and reassignment. When a call
// carries both a status and an assignee change, only the move is audited.
func UpdateTaskStatus(ctx *gin.Context) {
	task, body, currentUser, ok := bindTaskUpdate(ctx)
	if !ok {
		return
	}

	board, ok := requireMembership(ctx, task.BoardID, currentUser.ID)
	if !ok {
		return
	}

	if !applyTaskUpdates(ctx, &task, body, board) {
		return
	}

	if !saveTask(ctx, &task) {
		return
	}

	if body.Status != nil {
		details := strings.ToUpper(task.Title) + " task is moved to " + task.Status + "!"
		services.LogAction(currentUser.ID, &task.ID, task.BoardID, types.ActionMoved, details, taskResponse(task))
		go services.NotifyActivity(board, currentUser.FullName, types.ActionMoved, details)
	} else if body.AssignedTo != nil {
		assigneeName := ""
		if task.AssignedTo != nil {
			assigneeName = task.AssignedTo.FullName
		}
		details := strings.ToUpper(task.Title) + " task is reassigned to " + assigneeName + " !"
		services.LogAction(currentUser.ID, &task.ID, task.BoardID, types.ActionAssigned, details, taskResponse(task))
		go services.NotifyActivity(board, currentUser.FullName, types.ActionAssigned, details)
	}

	BroadcastToBoard(task.BoardID, "task:statusupdate", taskResponse(task))
	BroadcastRecentActions(task.BoardID)

	ctx.JSON(http.StatusOK, taskResponse(task))
}

func DeleteTask(ctx *gin.Context) {
	taskID, err := utils.GetTaskID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"message": "User not authenticated"})
		return
	}

	var task models.Task

	if err := db.DB.First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
		} else {
			log.Printf("Failed to retrieve task: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		}
		return
	}

	snapshot := taskResponse(task)

	if err := db.DB.Unscoped().Delete(&task).Error; err != nil {
		log.Printf("Failed to delete task: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	details := strings.ToUpper(task.Title) + " task is deleted !"
	services.LogAction(currentUser.ID, &task.ID, task.BoardID, types.ActionDeleted, details, snapshot)

	var board models.Board
	if err := db.DB.First(&board, task.BoardID).Error; err == nil {
		go services.NotifyActivity(board, currentUser.FullName, types.ActionDeleted, details)
	}

	BroadcastToBoard(task.BoardID, "task:delete", gin.H{"id": task.ID})
	BroadcastRecentActions(task.BoardID)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
		"task":    snapshot,
	})
}

func GetTasksByBoard(ctx *gin.Context) {
	boardID, err := utils.GetBoardID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"message": "User not authenticated"})
		return
	}

	board, ok := requireMembership(ctx, boardID, userID)
	if !ok {
		return
	}

	var tasks []models.Task

	err = db.DB.Preload("AssignedTo").
		Where("board_id = ?", board.ID).
		Order("id ASC").
		Find(&tasks).Error

	if err != nil {
		log.Printf("Failed to retrieve tasks: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	response := make([]TaskResponse, 0, len(tasks))

	for _, task := range tasks {
		response = append(response, taskResponse(task))
	}

	ctx.JSON(http.StatusOK, response)
}

func GetSmartAssignedUser(ctx *gin.Context) {
	boardID, err := utils.GetBoardID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	user, err := services.SmartAssign(boardID)

	if err != nil {
		if errors.Is(err, services.ErrBoardNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "Board not found"})
			return
		}
		log.Printf("Smart assign failed: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, types.UserResponse{
		ID:         user.ID,
		FullName:   user.FullName,
		Email:      user.Email,
		ProfilePic: user.ProfilePic,
	})
}

func bindTaskUpdate(ctx *gin.Context) (models.Task, UpdateTaskRequest, middleware.AuthenticatedUser, bool) {
	var task models.Task
	var body UpdateTaskRequest

	taskID, err := utils.GetTaskID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return task, body, middleware.AuthenticatedUser{}, false
	}

	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"message": "User not authenticated"})
		return task, body, currentUser, false
	}

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return task, body, currentUser, false
	}

	if err := db.DB.First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
		} else {
			log.Printf("Failed to retrieve task: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		}
		return task, body, currentUser, false
	}

	return task, body, currentUser, true
}

// applyTaskUpdates merges the present fields into the task, re-running
// normalization and invariant checks for any it touches. Responds and
// returns false on the first violation.
func applyTaskUpdates(ctx *gin.Context, task *models.Task, body UpdateTaskRequest, board models.Board) bool {
	if body.Title != nil {
		title := utils.Normalize(*body.Title)

		if title == "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"message": "Title cannot be empty"})
			return false
		}

		if types.IsColumnName(title) {
			ctx.JSON(http.StatusBadRequest, gin.H{"message": "Title cannot match column names"})
			return false
		}

		var dup models.Task

		err := db.DB.Where("board_id = ? AND title = ? AND id != ?", task.BoardID, title, task.ID).
			First(&dup).Error

		if err == nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"message": "Title must be unique per board"})
			return false
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Database error when checking task title: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
			return false
		}

		task.Title = title
	}

	if body.Description != nil {
		task.Description = *body.Description
	}

	if body.Status != nil {
		if !types.ValidStatus(*body.Status) {
			ctx.JSON(http.StatusBadRequest, gin.H{"message": "Invalid status"})
			return false
		}
		task.Status = *body.Status
	}

	if body.Priority != nil {
		if !types.ValidPriority(*body.Priority) {
			ctx.JSON(http.StatusBadRequest, gin.H{"message": "Invalid priority"})
			return false
		}
		task.Priority = *body.Priority
	}

	if body.AssignedTo != nil {
		if !membershipExists(board.ID, *body.AssignedTo) {
			ctx.JSON(http.StatusBadRequest, gin.H{"message": "Assignee must be a member of this board"})
			return false
		}
		task.AssignedToID = body.AssignedTo
		task.AssignedTo = nil
	}

	return true
}

func saveTask(ctx *gin.Context, task *models.Task) bool {
	task.LastModified = time.Now()

	if err := db.DB.Save(task).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			ctx.JSON(http.StatusBadRequest, gin.H{"message": "Title must be unique per board"})
			return false
		}
		log.Printf("Failed to save task: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return false
	}

	// Reload the assignee so responses and audit messages carry the name.
	if task.AssignedToID != nil && task.AssignedTo == nil {
		var assignee models.User
		if err := db.DB.First(&assignee, *task.AssignedToID).Error; err == nil {
			task.AssignedTo = &assignee
		}
	}

	return true
}

// requireMembership loads the board and verifies the caller belongs to it,
// responding with 404 or 403 on failure.
func requireMembership(ctx *gin.Context, boardID uint, userID uint) (models.Board, bool) {
	var board models.Board

	if err := db.DB.First(&board, boardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "Board not found"})
		} else {
			log.Printf("Failed to retrieve board: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		}
		return board, false
	}

	if !membershipExists(board.ID, userID) {
		ctx.JSON(http.StatusForbidden, gin.H{"message": "User is not a member of this board"})
		return board, false
	}

	return board, true
}

func membershipExists(boardID uint, userID uint) bool {
	var count int64

	err := db.DB.Model(&models.BoardMembership{}).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		Count(&count).Error

	if err != nil {
		log.Printf("Failed to check membership: %v", err)
		return false
	}

	return count > 0
}
