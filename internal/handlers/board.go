package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/taskhive-dev/taskhive/db"
	"github.com/taskhive-dev/taskhive/internal/models"
	"github.com/taskhive-dev/taskhive/internal/services"
	"github.com/taskhive-dev/taskhive/internal/types"
	"github.com/taskhive-dev/taskhive/internal/utils"
	"gorm.io/gorm"
)

type CreateBoardRequest struct {
	Name           string `json:"name" binding:"required"`
	DiscordWebhook string `json:"discord_webhook"`
	SlackWebhook   string `json:"slack_webhook"`
}

type UpdateBoardRequest struct {
	Name string `json:"name" binding:"required"`
}

type AddMembersRequest struct {
	MemberIDs []uint `json:"member_ids" binding:"required"`
}

type BoardResponse struct {
	ID      uint                 `json:"id"`
	Name    string               `json:"name"`
	OwnerID uint                 `json:"owner_id"`
	Members []types.UserResponse `json:"members,omitempty"`
}

func boardResponse(board models.Board) BoardResponse {
	resp := BoardResponse{
		ID:      board.ID,
		Name:    board.Name,
		OwnerID: board.OwnerID,
	}

	for _, m := range board.Memberships {
		resp.Members = append(resp.Members, types.UserResponse{
			ID:         m.User.ID,
			FullName:   m.User.FullName,
			Email:      m.User.Email,
			ProfilePic: m.User.ProfilePic,
		})
	}

	return resp
}

func CreateBoard(ctx *gin.Context) {
	var body CreateBoardRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "Board name is required"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"message": "User not authenticated"})
		return
	}

	name := utils.Normalize(body.Name)

	if name == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "Board name is required"})
		return
	}

	var existing models.Board

	err = db.DB.Where("name = ?", name).First(&existing).Error

	if err == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "Board with this name already exists"})
		return
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Database error when checking board name: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	board := models.Board{
		Name:           name,
		OwnerID:        currentUser.ID,
		DiscordWebhook: body.DiscordWebhook,
		SlackWebhook:   body.SlackWebhook,
	}

	// The board row and the owner's membership land together or not at all.
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&board).Error; err != nil {
			return err
		}

		membership := models.BoardMembership{UserID: currentUser.ID, BoardID: board.ID}
		return tx.Create(&membership).Error
	})

	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			ctx.JSON(http.StatusBadRequest, gin.H{"message": "Board with this name already exists"})
			return
		}
		log.Printf("Failed to create board: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	details := strings.ToUpper(name) + " is created !"
	services.LogAction(currentUser.ID, nil, board.ID, types.ActionCreated, details, boardResponse(board))
	go services.NotifyActivity(board, currentUser.FullName, types.ActionCreated, details)

	Broadcast("board:create", boardResponse(board))
	BroadcastRecentActions(board.ID)

	ctx.JSON(http.StatusCreated, boardResponse(board))
}

// ListBoards returns the boards the caller is a member of, most recently
// updated first.
func ListBoards(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"message": "User not authenticated"})
		return
	}

	var boards []models.Board

	err = db.DB.
		Joins("JOIN board_memberships ON board_memberships.board_id = boards.id").
		Where("board_memberships.user_id = ? AND board_memberships.deleted_at IS NULL", userID).
		Order("boards.updated_at DESC").
		Find(&boards).Error

	if err != nil {
		log.Printf("Failed to list boards: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	response := make([]BoardResponse, 0, len(boards))

	for _, board := range boards {
		response = append(response, boardResponse(board))
	}

	ctx.JSON(http.StatusOK, response)
}

func GetBoard(ctx *gin.Context) {
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

	var board models.Board

	err = db.DB.Preload("Memberships", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("board_memberships.id ASC")
	}).Preload("Memberships.User").First(&board, boardID).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "Board not found"})
		} else {
			log.Printf("Failed to retrieve board: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		}
		return
	}

	if !isMember(board, userID) {
		ctx.JSON(http.StatusForbidden, gin.H{"message": "User is not member of this board"})
		return
	}

	ctx.JSON(http.StatusOK, boardResponse(board))
}

func UpdateBoard(ctx *gin.Context) {
	boardID, err := utils.GetBoardID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"message": "User not authenticated"})
		return
	}

	var body UpdateBoardRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "Board name is required"})
		return
	}

	var board models.Board

	if err := db.DB.First(&board, boardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "Board not found"})
		} else {
			log.Printf("Failed to retrieve board: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		}
		return
	}

	if board.OwnerID != currentUser.ID {
		ctx.JSON(http.StatusForbidden, gin.H{"message": "Only owner can edit"})
		return
	}

	name := utils.Normalize(body.Name)

	if name == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "Board name is required"})
		return
	}

	board.Name = name

	if err := db.DB.Save(&board).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			ctx.JSON(http.StatusBadRequest, gin.H{"message": "Board with this name already exists"})
			return
		}
		log.Printf("Failed to update board: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	details := strings.ToUpper(board.Name) + " is updated !"
	services.LogAction(currentUser.ID, nil, board.ID, types.ActionUpdated, details, boardResponse(board))
	go services.NotifyActivity(board, currentUser.FullName, types.ActionUpdated, details)

	Broadcast("board:update", boardResponse(board))
	BroadcastRecentActions(board.ID)

	ctx.JSON(http.StatusOK, boardResponse(board))
}

func DeleteBoard(ctx *gin.Context) {
	boardID, err := utils.GetBoardID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"message": "User not authenticated"})
		return
	}

	var board models.Board

	err = db.DB.Preload("Memberships", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("board_memberships.id ASC")
	}).Preload("Memberships.User").First(&board, boardID).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "Board not found"})
		} else {
			log.Printf("Failed to retrieve board: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		}
		return
	}

	if board.OwnerID != currentUser.ID {
		ctx.JSON(http.StatusForbidden, gin.H{"message": "Only owner can delete"})
		return
	}

	// Snapshot with members while the rows still exist; the broadcast and
	// audit entry carry the last populated view of the board.
	snapshot := boardResponse(board)

	// Tasks and memberships go with the board in one transaction, so a
	// deleted board never leaves orphaned rows behind. Hard deletes: the
	// unique name index must free the name for reuse.
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("board_id = ?", board.ID).Delete(&models.Task{}).Error; err != nil {
			return err
		}

		if err := tx.Unscoped().Where("board_id = ?", board.ID).Delete(&models.BoardMembership{}).Error; err != nil {
			return err
		}

		return tx.Unscoped().Delete(&board).Error
	})

	if err != nil {
		log.Printf("Failed to delete board: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	details := strings.ToUpper(board.Name) + " is deleted !"
	services.LogAction(currentUser.ID, nil, board.ID, types.ActionDeleted, details, snapshot)
	go services.NotifyActivity(board, currentUser.FullName, types.ActionDeleted, details)

	Broadcast("board:delete", snapshot)
	BroadcastRecentActions(board.ID)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Board deleted successfully",
		"board":   snapshot,
	})
}

// AddMembers appends the given users to the board's member set. Already
// present IDs are skipped; if nothing remains the call is a no-op success.
// Member additions intentionally write no audit entry.
func AddMembers(ctx *gin.Context) {
	boardID, err := utils.GetBoardID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	var body AddMembersRequest

	if err := ctx.BindJSON(&body); err != nil || len(body.MemberIDs) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "No members provided."})
		return
	}

	var board models.Board

	if err := db.DB.First(&board, boardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "Board not found"})
		} else {
			log.Printf("Failed to retrieve board: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		}
		return
	}

	var memberships []models.BoardMembership

	if err := db.DB.Where("board_id = ?", board.ID).Find(&memberships).Error; err != nil {
		log.Printf("Failed to load memberships: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	existing := make(map[uint]bool, len(memberships))
	for _, m := range memberships {
		existing[m.UserID] = true
	}

	var newMembers []models.BoardMembership

	for _, id := range body.MemberIDs {
		if existing[id] {
			continue
		}
		existing[id] = true
		newMembers = append(newMembers, models.BoardMembership{UserID: id, BoardID: board.ID})
	}

	if len(newMembers) == 0 {
		ctx.JSON(http.StatusOK, gin.H{"message": "Members are already added"})
		return
	}

	if err := db.DB.Create(&newMembers).Error; err != nil {
		log.Printf("Failed to add members: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	err = db.DB.Preload("Memberships", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("board_memberships.id ASC")
	}).Preload("Memberships.User").First(&board, board.ID).Error

	if err != nil {
		log.Printf("Failed to reload board: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	Broadcast("board:memberAdded", boardResponse(board))

	ctx.JSON(http.StatusOK, gin.H{"message": "Members added", "board": boardResponse(board)})
}

func isMember(board models.Board, userID uint) bool {
	for _, m := range board.Memberships {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
