package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskhive-dev/taskhive/db"
	"github.com/taskhive-dev/taskhive/internal/models"
)

func createTask(t *testing.T, r *gin.Engine, caller models.User, boardID uint, title string, assignee uint, status string) uint {
	t.Helper()

	w := doRequest(t, r, http.MethodPost, "/api/tasks", tokenFor(t, caller), gin.H{
		"title":       title,
		"description": "some work",
		"board_id":    boardID,
		"assigned_to": assignee,
		"status":      status,
		"priority":    "medium",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		ID uint `json:"id"`
	}
	decodeBody(t, w, &resp)
	return resp.ID
}

func TestCreateTaskRequiresAllFields(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	owner := createTestUser(t, "Ada Lovelace", "ada@example.com")
	boardID := seedBoard(t, r, owner, "sprint 1")

	w := doRequest(t, r, http.MethodPost, "/api/tasks", tokenFor(t, owner), gin.H{
		"title":    "fix bug",
		"board_id": boardID,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Message string `json:"message"`
	}
	decodeBody(t, w, &resp)
	assert.Equal(t, "All fields are required", resp.Message)
}

func TestCreateTaskRejectsWhitespaceTitle(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	owner := createTestUser(t, "Ada Lovelace", "ada@example.com")
	boardID := seedBoard(t, r, owner, "sprint 1")

	// Whitespace normalizes to the empty string and must fail the same
	// way a missing title does.
	w := doRequest(t, r, http.MethodPost, "/api/tasks", tokenFor(t, owner), gin.H{
		"title":       "   ",
		"description": "some work",
		"board_id":    boardID,
		"assigned_to": owner.ID,
		"status":      "todo",
		"priority":    "low",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Message string `json:"message"`
	}
	decodeBody(t, w, &resp)
	assert.Equal(t, "All fields are required", resp.Message)

	var count int64
	require.NoError(t, db.DB.Model(&models.Task{}).Where("board_id = ?", boardID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateTaskRejectsColumnNameTitles(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	owner := createTestUser(t, "Ada Lovelace", "ada@example.com")
	boardID := seedBoard(t, r, owner, "sprint 1")

	for _, title := range []string{"todo", "In-Progress", " DONE "} {
		w := doRequest(t, r, http.MethodPost, "/api/tasks", tokenFor(t, owner), gin.H{
			"title":       title,
			"description": "some work",
			"board_id":    boardID,
			"assigned_to": owner.ID,
			"status":      "todo",
			"priority":    "low",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code, "title %q", title)
	}
}

func TestCreateTaskTitleUniquePerBoard(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	owner := createTestUser(t, "Ada Lovelace", "ada@example.com")
	first := seedBoard(t, r, owner, "sprint 1")
	second := seedBoard(t, r, owner, "sprint 2")

	createTask(t, r, owner, first, "Fix Bug", owner.ID, "todo")

	// Same normalized title on the same board conflicts.
	w := doRequest(t, r, http.MethodPost, "/api/tasks", tokenFor(t, owner), gin.H{
		"title":       "  fix bug ",
		"description": "other work",
		"board_id":    first,
		"assigned_to": owner.ID,
		"status":      "todo",
		"priority":    "high",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The same title on another board is fine.
	createTask(t, r, owner, second, "Fix Bug", owner.ID, "todo")
}

func TestCreateTaskRequiresBoardAndMembership(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	owner := createTestUser(t, "Ada Lovelace", "ada@example.com")
	stranger := createTestUser(t, "Mallory", "mallory@example.com")
	boardID := seedBoard(t, r, owner, "sprint 1")

	body := gin.H{
		"title":       "fix bug",
		"description": "some work",
		"board_id":    uint(9999),
		"assigned_to": owner.ID,
		"status":      "todo",
		"priority":    "low",
	}

	w := doRequest(t, r, http.MethodPost, "/api/tasks", tokenFor(t, owner), body)
	assert.Equal(t, http.StatusNotFound, w.Code)

	body["board_id"] = boardID
	w = doRequest(t, r, http.MethodPost, "/api/tasks", tokenFor(t, stranger), body)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateTaskAssigneeMustBeMember(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	owner := createTestUser(t, "Ada Lovelace", "ada@example.com")
	outsider := createTestUser(t, "Mallory", "mallory@example.com")
	boardID := seedBoard(t, r, owner, "sprint 1")

	w := doRequest(t, r, http.MethodPost, "/api/tasks", tokenFor(t, owner), gin.H{
		"title":       "fix bug",
		"description": "some work",
		"board_id":    boardID,
		"assigned_to": outsider.ID,
		"status":      "todo",
		"priority":    "low",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateTaskMergesPartialFields(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	owner := createTestUser(t, "Ada Lovelace", "ada@example.com")
	boardID := seedBoard(t, r, owner, "sprint 1")
	taskID := createTask(t, r, owner, boardID, "fix bug", owner.ID, "todo")

	w := doRequest(t, r, http.MethodPut, "/api/tasks/"+uintString(taskID), tokenFor(t, owner), gin.H{
		"description": "updated description",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var task models.Task
	require.NoError(t, db.DB.First(&task, taskID).Error)
	assert.Equal(t, "fix bug", task.Title) // untouched
	assert.Equal(t, "updated description", task.Description)

	var logs []models.ActionLog
	require.NoError(t, db.DB.Where("task_id = ?", taskID).Order("id ASC").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, "created", logs[0].Action)
	assert.Equal(t, "updated", logs[1].Action)
}

func TestUpdateTaskStatusStampsLastModified(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	owner := createTestUser(t, "Ada Lovelace", "ada@example.com")
	boardID := seedBoard(t, r, owner, "sprint 1")
	taskID := createTask(t, r, owner, boardID, "fix bug", owner.ID, "todo")

	var before models.Task
	require.NoError(t, db.DB.First(&before, taskID).Error)

	time.Sleep(10 * time.Millisecond)

	w := doRequest(t, r, http.MethodPatch, "/api/tasks/"+uintString(taskID), tokenFor(t, owner), gin.H{
		"status": "done",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var after models.Task
	require.NoError(t, db.DB.First(&after, taskID).Error)
	assert.Equal(t, "done", after.Status)
	assert.True(t, after.LastModified.After(before.LastModified))
}

func TestUpdateTaskStatusAuditsStatusOverAssignment(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	owner := createTestUser(t, "Ada Lovelace", "ada@example.com")
	member := createTestUser(t, "Grace Hopper", "grace@example.com")
	boardID := seedBoard(t, r, owner, "sprint 1")
	addMember(t, r, owner, boardID, member.ID)
	taskID := createTask(t, r, owner, boardID, "fix bug", owner.ID, "todo")

	// Both fields in one call: only the move is audited.
	w := doRequest(t, r, http.MethodPatch, "/api/tasks/"+uintString(taskID), tokenFor(t, owner), gin.H{
		"status":      "in-progress",
		"assigned_to": member.ID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var logs []models.ActionLog
	require.NoError(t, db.DB.Where("task_id = ?", taskID).Order("id ASC").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, "moved", logs[1].Action)
	assert.Contains(t, logs[1].Details, "in-progress")

	// Assignment alone is audited as "assigned" with the assignee's name.
	w = doRequest(t, r, http.MethodPatch, "/api/tasks/"+uintString(taskID), tokenFor(t, owner), gin.H{
		"assigned_to": owner.ID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.NoError(t, db.DB.Where("task_id = ?", taskID).Order("id ASC").Find(&logs).Error)
	require.Len(t, logs, 3)
	assert.Equal(t, "assigned", logs[2].Action)
	assert.Contains(t, logs[2].Details, "Ada Lovelace")
}

func TestDeleteTaskRemovesDocument(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	owner := createTestUser(t, "Ada Lovelace", "ada@example.com")
	boardID := seedBoard(t, r, owner, "sprint 1")
	taskID := createTask(t, r, owner, boardID, "fix bug", owner.ID, "todo")

	w := doRequest(t, r, http.MethodDelete, "/api/tasks/"+uintString(taskID), tokenFor(t, owner), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var count int64
	require.NoError(t, db.DB.Model(&models.Task{}).Where("id = ?", taskID).Count(&count).Error)
	assert.Zero(t, count)

	// The title is usable again.
	createTask(t, r, owner, boardID, "fix bug", owner.ID, "todo")

	w = doRequest(t, r, http.MethodDelete, "/api/tasks/9999", tokenFor(t, owner), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTasksByBoardResolvesAssignee(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	owner := createTestUser(t, "Ada Lovelace", "ada@example.com")
	boardID := seedBoard(t, r, owner, "sprint 1")
	createTask(t, r, owner, boardID, "fix bug", owner.ID, "todo")

	w := doRequest(t, r, http.MethodGet, boardPath(boardID)+"/tasks", tokenFor(t, owner), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var tasks []struct {
		Title      string `json:"title"`
		AssignedTo *struct {
			FullName string `json:"full_name"`
		} `json:"assigned_to"`
	}
	decodeBody(t, w, &tasks)
	require.Len(t, tasks, 1)
	require.NotNil(t, tasks[0].AssignedTo)
	assert.Equal(t, "Ada Lovelace", tasks[0].AssignedTo.FullName)
}

func TestGetTasksByBoardRequiresMembership(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	owner := createTestUser(t, "Ada Lovelace", "ada@example.com")
	stranger := createTestUser(t, "Mallory", "mallory@example.com")
	boardID := seedBoard(t, r, owner, "sprint 1")
	createTask(t, r, owner, boardID, "fix bug", owner.ID, "todo")

	w := doRequest(t, r, http.MethodGet, boardPath(boardID)+"/tasks", tokenFor(t, stranger), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, r, http.MethodGet, "/api/boards/9999/tasks", tokenFor(t, owner), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecentActionsCappedNewestFirst(t *testing.T) {
	setupTestDB(t)
	r := newTestRouter()
	owner := createTestUser(t, "Ada Lovelace", "ada@example.com")
	boardID := seedBoard(t, r, owner, "sprint 1")

	// Board creation wrote one entry; 24 task creations push past the cap.
	for i := 0; i < 24; i++ {
		createTask(t, r, owner, boardID, "task "+uintString(uint(i)), owner.ID, "todo")
	}

	w := doRequest(t, r, http.MethodGet, "/api/actions/recent", tokenFor(t, owner), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Logs []struct {
			Details string `json:"details"`
		} `json:"logs"`
		TotalLogs int `json:"total_logs"`
	}
	decodeBody(t, w, &resp)
	assert.Equal(t, 20, resp.TotalLogs)
	require.Len(t, resp.Logs, 20)
	assert.Contains(t, resp.Logs[0].Details, "TASK 23")
}
