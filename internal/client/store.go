// Package client keeps a live, per-column view of one board's tasks. It
// subscribes to the push channel and, on any task-scoped event for the
// watched board, re-fetches the full task list and re-partitions it by
// status. There is no incremental patching and therefore no client-side
// merge logic.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Task mirrors the server's task resource.
type Task struct {
	ID           uint      `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	BoardID      uint      `json:"board_id"`
	AssignedTo   *User     `json:"assigned_to"`
	Status       string    `json:"status"`
	Priority     string    `json:"priority"`
	LastModified time.Time `json:"last_modified"`
}

type User struct {
	ID       uint   `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type roomMessage struct {
	Type    string `json:"type"`
	BoardID uint   `json:"board_id"`
}

// Store is safe for concurrent use: Run owns the websocket read loop while
// callers snapshot the partitions from other goroutines.
type Store struct {
	baseURL string
	token   string
	httpc   *http.Client

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu         sync.RWMutex
	boardID    uint
	todo       []Task
	inProgress []Task
	done       []Task

	// OnActivity, when set, is called with the board ID from every
	// recentActions ping. The ping carries nothing else; consumers
	// re-query the activity feed.
	OnActivity func(boardID uint)

	// OnOnlineUsers, when set, receives presence updates.
	OnOnlineUsers func(userIDs []uint)
}

// New connects the push channel. baseURL is the server's HTTP origin, e.g.
// "http://localhost:3000".
func New(baseURL, token string) (*Store, error) {
	s := &Store{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}

	wsURL := "ws" + strings.TrimPrefix(s.baseURL, "http") + "/api/ws"

	header := http.Header{}
	header.Set("Cookie", "token="+token)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("dial push channel: %w", err)
	}

	s.conn = conn
	return s, nil
}

// WatchBoard switches the store to a board: leave the previous room, join
// the new one, and load the board's tasks from scratch.
func (s *Store) WatchBoard(boardID uint) error {
	s.mu.Lock()
	previous := s.boardID
	s.boardID = boardID
	s.mu.Unlock()

	if previous != 0 && previous != boardID {
		if err := s.sendRoom("leaveBoard", previous); err != nil {
			return err
		}
	}

	if err := s.sendRoom("joinBoard", boardID); err != nil {
		return err
	}

	return s.refetch()
}

// Snapshot returns copies of the three status partitions.
func (s *Store) Snapshot() (todo, inProgress, done []Task) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]Task(nil), s.todo...),
		append([]Task(nil), s.inProgress...),
		append([]Task(nil), s.done...)
}

// Run drives the read loop until the context is cancelled or the
// connection drops.
func (s *Store) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		var ev event

		if err := json.Unmarshal(message, &ev); err != nil {
			log.Printf("Ignoring malformed push event: %v", err)
			continue
		}

		s.handle(ev)
	}
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) handle(ev event) {
	switch ev.Event {
	case "task:create", "task:update", "task:statusupdate", "task:delete":
		// Room-scoped, so it concerns the watched board. Full refetch.
		if err := s.refetch(); err != nil {
			log.Printf("Task refetch failed: %v", err)
		}
	case "board:delete":
		var board struct {
			ID uint `json:"id"`
		}
		if err := json.Unmarshal(ev.Data, &board); err != nil {
			return
		}

		s.mu.Lock()
		if s.boardID == board.ID {
			s.boardID = 0
			s.todo, s.inProgress, s.done = nil, nil, nil
		}
		s.mu.Unlock()
	case "recentActions":
		if s.OnActivity == nil {
			return
		}
		var ping struct {
			BoardID uint `json:"board_id"`
		}
		if err := json.Unmarshal(ev.Data, &ping); err != nil {
			return
		}
		s.OnActivity(ping.BoardID)
	case "getOnlineUsers":
		if s.OnOnlineUsers == nil {
			return
		}
		var ids []uint
		if err := json.Unmarshal(ev.Data, &ids); err != nil {
			return
		}
		s.OnOnlineUsers(ids)
	}
}

// refetch replaces all three partitions from the server's task list.
func (s *Store) refetch() error {
	s.mu.RLock()
	boardID := s.boardID
	s.mu.RUnlock()

	if boardID == 0 {
		return nil
	}

	url := fmt.Sprintf("%s/api/boards/%d/tasks", s.baseURL, boardID)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("fetch tasks: status %d: %s", resp.StatusCode, body)
	}

	var tasks []Task

	if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		return err
	}

	var todo, inProgress, done []Task

	for _, task := range tasks {
		switch task.Status {
		case "todo":
			todo = append(todo, task)
		case "in-progress":
			inProgress = append(inProgress, task)
		case "done":
			done = append(done, task)
		}
	}

	s.mu.Lock()
	// A WatchBoard may have switched boards while the fetch was in
	// flight; stale results must not overwrite the new board's view.
	if s.boardID == boardID {
		s.todo, s.inProgress, s.done = todo, inProgress, done
	}
	s.mu.Unlock()

	return nil
}

func (s *Store) sendRoom(msgType string, boardID uint) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.conn.WriteJSON(roomMessage{Type: msgType, BoardID: boardID})
}
