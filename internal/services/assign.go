package services

import (
	"errors"

	"github.com/taskhive-dev/taskhive/db"
	"github.com/taskhive-dev/taskhive/internal/models"
	"github.com/taskhive-dev/taskhive/internal/types"
	"gorm.io/gorm"
)

var ErrBoardNotFound = errors.New("board not found")

type assigneeCount struct {
	AssignedToID uint
	Count        int64
}

// SmartAssign returns the board member with the fewest active tasks
// (status todo or in-progress). Members with no tasks count as zero. Ties
// go to the member who joined the board first; the owner joins at board
// creation, so an all-zero board resolves to the owner.
//
// SmartAssign has no side effects: callers use the returned user's ID in a
// subsequent create or reassign call.
func SmartAssign(boardID uint) (models.User, error) {
	var board models.Board

	if err := db.DB.First(&board, boardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrBoardNotFound
		}
		return models.User{}, err
	}

	var memberships []models.BoardMembership

	err := db.DB.Preload("User").
		Where("board_id = ?", boardID).
		Order("id ASC").
		Find(&memberships).Error

	if err != nil {
		return models.User{}, err
	}

	if len(memberships) == 0 {
		return models.User{}, ErrBoardNotFound
	}

	memberIDs := make([]uint, 0, len(memberships))
	for _, m := range memberships {
		memberIDs = append(memberIDs, m.UserID)
	}

	var counts []assigneeCount

	err = db.DB.Model(&models.Task{}).
		Select("assigned_to_id, count(*) as count").
		Where("board_id = ? AND status IN ? AND assigned_to_id IN ?",
			boardID, []string{types.StatusTodo, types.StatusInProgress}, memberIDs).
		Group("assigned_to_id").
		Scan(&counts).Error

	if err != nil {
		return models.User{}, err
	}

	countByUser := make(map[uint]int64, len(memberIDs))
	for _, id := range memberIDs {
		countByUser[id] = 0
	}
	for _, c := range counts {
		countByUser[c.AssignedToID] = c.Count
	}

	// Stable scan in join order so the first minimum wins.
	leastBusy := memberships[0].User
	minCount := countByUser[memberships[0].UserID]

	for _, m := range memberships[1:] {
		if countByUser[m.UserID] < minCount {
			minCount = countByUser[m.UserID]
			leastBusy = m.User
		}
	}

	return leastBusy, nil
}
