package handlers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskhive-dev/taskhive/db"
	"github.com/taskhive-dev/taskhive/internal/models"
)

func TestCreateBoardNormalizesAndStores(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	owner := createTestUser(t, "Ada Lovelace", "ada@example.com")

	boardID := seedBoard(t, r, owner, "  Sprint 1  ")

	var board models.Board
	require.NoError(t, db.DB.First(&board, boardID).Error)
	assert.Equal(t, "sprint 1", board.Name)
	assert.Equal(t, owner.ID, board.OwnerID)

	// Owner membership is inserted with the board.
	var count int64
	require.NoError(t, db.DB.Model(&models.BoardMembership{}).
		Where("board_id = ? AND user_id = ?", boardID, owner.ID).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// Exactly one audit entry for the creation.
	var logs []models.ActionLog
	require.NoError(t, db.DB.Where("board_id = ?", boardID).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "created", logs[0].Action)
}

func TestCreateBoardConflictIgnoresCaseAndWhitespace(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	owner := createTestUser(t, "Ada Lovelace", "ada@example.com")
	other := createTestUser(t, "Grace Hopper", "grace@example.com")

	seedBoard(t, r, owner, "Sprint 1")

	for _, name := range []string{"Sprint 1", "SPRINT 1", "  sprint 1  "} {
		w := doRequest(t, r, http.MethodPost, "/api/boards", tokenFor(t, other), gin.H{"name": name})
		assert.Equal(t, http.StatusBadRequest, w.Code, "name %q", name)
	}
}

func TestUpdateBoardOwnerOnly(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	owner := createTestUser(t, "Ada Lovelace", "ada@example.com")
	member := createTestUser(t, "Grace Hopper", "grace@example.com")

	boardID := seedBoard(t, r, owner, "sprint 1")
	addMember(t, r, owner, boardID, member.ID)

	w := doRequest(t, r, http.MethodPut, boardPath(boardID), tokenFor(t, member), gin.H{"name": "renamed"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, r, http.MethodPut, boardPath(boardID), tokenFor(t, owner), gin.H{"name": "Renamed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var board models.Board
	require.NoError(t, db.DB.First(&board, boardID).Error)
	assert.Equal(t, "renamed", board.Name)
}

func TestUpdateBoardNotFound(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	owner := createTestUser(t, "Ada Lovelace", "ada@example.com")

	w := doRequest(t, r, http.MethodPut, "/api/boards/9999", tokenFor(t, owner), gin.H{"name": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddMembersIdempotent(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	owner := createTestUser(t, "Ada Lovelace", "ada@example.com")
	member := createTestUser(t, "Grace Hopper", "grace@example.com")

	boardID := seedBoard(t, r, owner, "sprint 1")

	addMember(t, r, owner, boardID, member.ID)

	// Second call with the same set is a no-op success, not an error.
	w := doRequest(t, r, http.MethodPost,
		boardPath(boardID)+"/members", tokenFor(t, owner), gin.H{"member_ids": []uint{member.ID}})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Message string `json:"message"`
	}
	decodeBody(t, w, &resp)
	assert.Equal(t, "Members are already added", resp.Message)

	var count int64
	require.NoError(t, db.DB.Model(&models.BoardMembership{}).
		Where("board_id = ?", boardID).Count(&count).Error)
	assert.EqualValues(t, 2, count) // owner + one member, no duplicates

	// Member additions write no audit entries.
	var logCount int64
	require.NoError(t, db.DB.Model(&models.ActionLog{}).
		Where("board_id = ?", boardID).Count(&logCount).Error)
	assert.EqualValues(t, 1, logCount) // only the board creation
}

func TestGetBoardRequiresMembership(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	owner := createTestUser(t, "Ada Lovelace", "ada@example.com")
	stranger := createTestUser(t, "Mallory", "mallory@example.com")

	boardID := seedBoard(t, r, owner, "sprint 1")

	w := doRequest(t, r, http.MethodGet, boardPath(boardID), tokenFor(t, stranger), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, r, http.MethodGet, boardPath(boardID), tokenFor(t, owner), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListBoardsScopedToMembership(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	owner := createTestUser(t, "Ada Lovelace", "ada@example.com")
	member := createTestUser(t, "Grace Hopper", "grace@example.com")

	first := seedBoard(t, r, owner, "sprint 1")
	seedBoard(t, r, owner, "sprint 2")
	addMember(t, r, owner, first, member.ID)

	w := doRequest(t, r, http.MethodGet, "/api/boards", tokenFor(t, member), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var boards []struct {
		ID uint `json:"id"`
	}
	decodeBody(t, w, &boards)
	require.Len(t, boards, 1)
	assert.Equal(t, first, boards[0].ID)
}

func TestDeleteBoardCascadesAndFreesName(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	owner := createTestUser(t, "Ada Lovelace", "ada@example.com")
	member := createTestUser(t, "Grace Hopper", "grace@example.com")

	boardID := seedBoard(t, r, owner, "sprint 1")
	addMember(t, r, owner, boardID, member.ID)
	createTask(t, r, owner, boardID, "fix bug", owner.ID, "todo")

	// Members cannot delete.
	w := doRequest(t, r, http.MethodDelete, boardPath(boardID), tokenFor(t, member), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, r, http.MethodDelete, boardPath(boardID), tokenFor(t, owner), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var taskCount, membershipCount int64
	require.NoError(t, db.DB.Model(&models.Task{}).Where("board_id = ?", boardID).Count(&taskCount).Error)
	require.NoError(t, db.DB.Model(&models.BoardMembership{}).Where("board_id = ?", boardID).Count(&membershipCount).Error)
	assert.Zero(t, taskCount)
	assert.Zero(t, membershipCount)

	// The name is free for reuse after deletion.
	w = doRequest(t, r, http.MethodPost, "/api/boards", tokenFor(t, owner), gin.H{"name": "sprint 1"})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestDeleteBoardSnapshotIncludesMembers(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	owner := createTestUser(t, "Ada Lovelace", "ada@example.com")
	member := createTestUser(t, "Grace Hopper", "grace@example.com")

	boardID := seedBoard(t, r, owner, "sprint 1")
	addMember(t, r, owner, boardID, member.ID)

	w := doRequest(t, r, http.MethodDelete, boardPath(boardID), tokenFor(t, owner), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The response carries the last populated view of the board.
	var resp struct {
		Board struct {
			Members []struct {
				FullName string `json:"full_name"`
			} `json:"members"`
		} `json:"board"`
	}
	decodeBody(t, w, &resp)
	require.Len(t, resp.Board.Members, 2)
	assert.Equal(t, "Ada Lovelace", resp.Board.Members[0].FullName)
	assert.Equal(t, "Grace Hopper", resp.Board.Members[1].FullName)
}
