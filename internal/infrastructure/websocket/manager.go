package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"matchchat/internal/domain/entity"
	"matchchat/internal/domain/repository"
	"matchchat/internal/usecase"
	"matchchat/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 32
)

// Client is one websocket connection watching one chat.
type Client struct {
	ID     string
	UserID string
	ChatID string
	Conn   *websocket.Conn
	Send   chan []byte

	// snapshots holds at most the newest feed frame; older ones are dropped
	// because every frame is a full replace.
	snapshots chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, userID, chatID string) *Client {
	return &Client{
		ID:        uuid.New().String(),
		UserID:    userID,
		ChatID:    chatID,
		Conn:      conn,
		Send:      make(chan []byte, sendBuffer),
		snapshots: make(chan []byte, 1),
		done:      make(chan struct{}),
	}
}

// Manager tracks live connections and runs their message feeds.
type Manager struct {
	chatRepo    repository.ChatRepository
	messageRepo repository.MessageRepository
	dispatcher  *Dispatcher
	log         *zap.SugaredLogger

	clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex
}

func NewManager(chatRepo repository.ChatRepository, messageRepo repository.MessageRepository, dispatcher *Dispatcher) *Manager {
	return &Manager{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		dispatcher:  dispatcher,
		log:         logger.Named("websocket"),
		clients:     make(map[string]*Client),
		Register:    make(chan *Client),
		Unregister:  make(chan *Client),
	}
}

// Start runs the registration loop until ctx is done, then closes every
// remaining connection.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				m.clients[client.ID] = client
				m.mutex.Unlock()
				m.log.Infow("Client registered", "client_id", client.ID, "user_id", client.UserID, "chat_id", client.ChatID)

			case client := <-m.Unregister:
				m.mutex.Lock()
				if _, ok := m.clients[client.ID]; ok {
					delete(m.clients, client.ID)
					client.close()
				}
				m.mutex.Unlock()
				m.log.Infow("Client unregistered", "client_id", client.ID, "user_id", client.UserID)

			case <-ctx.Done():
				m.mutex.Lock()
				for id, client := range m.clients {
					client.close()
					delete(m.clients, id)
				}
				m.mutex.Unlock()
				return
			}
		}
	}()
}

// Count reports the live connections watching chatID.
func (m *Manager) Count(chatID string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	n := 0
	for _, client := range m.clients {
		if client.ChatID == chatID {
			n++
		}
	}
	return n
}

// Authorize fails unless userID is a participant of an existing chatID.
func (m *Manager) Authorize(ctx context.Context, userID, chatID string) error {
	_, err := usecase.AuthorizeParticipant(ctx, m.chatRepo, chatID, userID)
	return err
}

// Serve runs conn until either side closes it. Start must be running. Each
// connection gets its own SubscriptionManager so one client re-subscribing
// never detaches another. Callers outside the chat are closed with a policy
// violation before any message is read.
func (m *Manager) Serve(ctx context.Context, conn *websocket.Conn, userID, chatID string) {
	if err := m.Authorize(ctx, userID, chatID); err != nil {
		m.log.Warnw("Feed rejected", "user_id", userID, "chat_id", chatID, "error", err)
		closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "not a participant")
		conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))
		conn.Close()
		return
	}

	client := newClient(conn, userID, chatID)
	ctx = usecase.WithUserID(ctx, userID)

	feeds := usecase.NewSubscriptionManager(m.messageRepo)
	defer feeds.Close()

	m.Register <- client
	go client.WritePump()

	feeds.Subscribe(ctx, chatID, func(messages []*entity.Message) {
		frame, err := newFrame(FrameMessages, chatID, toMessageData(messages, userID))
		if err != nil {
			m.log.Errorw("Failed to encode feed frame", "chat_id", chatID, "error", err)
			return
		}
		client.pushSnapshot(frame)
	})

	client.ReadPump(ctx, m)
}

// ReadPump reads client frames until the connection fails.
func (c *Client) ReadPump(ctx context.Context, m *Manager) {
	defer func() {
		select {
		case m.Unregister <- c:
		case <-c.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.log.Warnw("Unexpected close", "client_id", c.ID, "error", err)
			}
			return
		}
		m.HandleClientMessage(ctx, c, message)
	}
}

// WritePump writes queued frames and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			if err := c.write(websocket.TextMessage, message); err != nil {
				return
			}

		case message := <-c.snapshots:
			if err := c.write(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.write(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(messageType, data)
}

func (c *Client) pushSnapshot(frame []byte) {
	for {
		select {
		case c.snapshots <- frame:
			return
		case <-c.done:
			return
		default:
		}
		select {
		case <-c.snapshots:
		default:
		}
	}
}

// enqueue drops the frame if the client is too slow to keep up.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}
