package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/taskhive-dev/taskhive/internal/types"
	"github.com/taskhive-dev/taskhive/internal/utils"
)

// wsClient wraps a connection with a write mutex: broadcasts arrive from
// handler goroutines while the ping ticker writes from its own, and
// gorilla connections allow only one concurrent writer.
type wsClient struct {
	conn    *websocket.Conn
	userID  uint
	writeMu sync.Mutex
}

var (
	clients   = make(map[*wsClient]bool)
	rooms     = make(map[uint]map[*wsClient]bool) // board ID -> subscribed clients
	online    = make(map[uint]int)                // user ID -> open connection count
	clientsMu sync.RWMutex
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Event is the wire envelope for every server-to-client push.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// RecentActionsPing carries only the board ID. Consumers re-query the
// activity log instead of trusting a payload shape.
type RecentActionsPing struct {
	BoardID uint `json:"board_id"`
}

type clientMessage struct {
	Type    string `json:"type"` // "joinBoard", "leaveBoard"
	BoardID uint   `json:"board_id"`
}

func (c *wsClient) send(event string, data interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return c.conn.WriteJSON(Event{Event: event, Data: data})
}

func (c *wsClient) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// Broadcast delivers an event to every connected client. Delivery is
// fire-and-forget: failed connections are dropped, the caller never waits.
func Broadcast(event string, data interface{}) {
	clientsMu.RLock()
	targets := make([]*wsClient, 0, len(clients))
	for c := range clients {
		targets = append(targets, c)
	}
	clientsMu.RUnlock()

	deliver(targets, event, data)
}

// BroadcastToBoard delivers an event to clients that joined the board's room.
func BroadcastToBoard(boardID uint, event string, data interface{}) {
	clientsMu.RLock()
	room, exists := rooms[boardID]
	if !exists || len(room) == 0 {
		clientsMu.RUnlock()
		return
	}

	targets := make([]*wsClient, 0, len(room))
	for c := range room {
		targets = append(targets, c)
	}
	clientsMu.RUnlock()

	deliver(targets, event, data)
}

// BroadcastRecentActions pings all clients that the activity log changed.
func BroadcastRecentActions(boardID uint) {
	Broadcast("recentActions", RecentActionsPing{BoardID: boardID})
}

func deliver(targets []*wsClient, event string, data interface{}) {
	for _, c := range targets {
		if err := c.send(event, data); err != nil {
			log.Printf("Failed to deliver %s event: %v", event, err)
			unregister(c)
			c.conn.Close()
		}
	}
}

// OnlineUserIDs returns the sorted IDs of users with at least one open
// connection.
func OnlineUserIDs() []uint {
	clientsMu.RLock()
	ids := make([]uint, 0, len(online))
	for id := range online {
		ids = append(ids, id)
	}
	clientsMu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func register(c *wsClient) {
	clientsMu.Lock()
	clients[c] = true
	online[c.userID]++
	clientsMu.Unlock()
}

func unregister(c *wsClient) {
	clientsMu.Lock()

	if _, exists := clients[c]; !exists {
		clientsMu.Unlock()
		return
	}

	delete(clients, c)

	for boardID, room := range rooms {
		if room[c] {
			delete(room, c)
			if len(room) == 0 {
				delete(rooms, boardID)
			}
		}
	}

	online[c.userID]--
	if online[c.userID] <= 0 {
		delete(online, c.userID)
	}

	clientsMu.Unlock()
}

func joinRoom(c *wsClient, boardID uint) {
	clientsMu.Lock()
	if rooms[boardID] == nil {
		rooms[boardID] = make(map[*wsClient]bool)
	}
	rooms[boardID][c] = true
	clientsMu.Unlock()
}

func leaveRoom(c *wsClient, boardID uint) {
	clientsMu.Lock()
	if room, exists := rooms[boardID]; exists {
		delete(room, c)
		if len(room) == 0 {
			delete(rooms, boardID)
		}
	}
	clientsMu.Unlock()
}

// WebSocket upgrades the request and serves the push channel. The auth
// middleware has already resolved the user, so presence is keyed to a
// verified identity rather than a handshake query parameter.
func WebSocket(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"message": "User not authenticated"})
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range types.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{conn: conn, userID: currentUser.ID}

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Failed to set initial read deadline: %v", err)
		conn.Close()
		return
	}
	conn.SetPongHandler(func(string) error {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("Failed to set read deadline in pong handler: %v", err)
		}
		return nil
	})

	register(client)
	Broadcast("getOnlineUsers", OnlineUserIDs())

	defer func() {
		unregister(client)
		conn.Close()
		Broadcast("getOnlineUsers", OnlineUserIDs())
		log.Printf("WebSocket connection closed for user %d", currentUser.ID)
	}()

	if err := client.send("connected", gin.H{"message": "WebSocket connection established"}); err != nil {
		log.Printf("Failed to send welcome message: %v", err)
		return
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		// Send pings periodically
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := client.ping(); err != nil {
					log.Printf("Ping failed for user %d: %v", currentUser.ID, err)
					return
				}
			}
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("Failed to set read deadline for user %d: %v", currentUser.ID, err)
			break
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error for user %d: %v", currentUser.ID, err)
			}
			break
		}

		var msg clientMessage

		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Ignoring malformed client message from user %d: %v", currentUser.ID, err)
			continue
		}

		switch msg.Type {
		case "joinBoard":
			joinRoom(client, msg.BoardID)
		case "leaveBoard":
			leaveRoom(client, msg.BoardID)
		default:
			log.Printf("Unknown client message type %q from user %d", msg.Type, currentUser.ID)
		}
	}
}
