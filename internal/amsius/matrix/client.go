// Package matrix is the channel adapter: it delivers inbound room messages
// to the core as plain (room, sender, text) events and best-effort sends
// replay text back. The core never sees mautrix types.
package matrix

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/amsius/amsius/common/retry"
)

// Config holds Matrix client configuration.
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
	// Rooms are the room IDs the bot joins and listens on.
	Rooms []string
	// DB is an optional SQLite connection used to persist the Matrix sync
	// token (next_batch) across restarts. When nil, an in-memory store is
	// used and room history will be replayed on every restart.
	DB *sql.DB
}

// Message is one inbound room message, reduced to what the core needs.
type Message struct {
	Room   string
	Sender string // localpart of the Matrix user ID
	Text   string
	Echo   bool // true when the message is the bot's own output
}

// MessageHandler processes incoming room messages.
type MessageHandler func(ctx context.Context, msg Message)

// Client wraps the mautrix client.
type Client struct {
	client     *mautrix.Client
	config     *Config
	stopCh     chan struct{}
	msgHandler MessageHandler
}

// New creates a new Matrix client.
func New(config *Config) (*Client, error) {
	client, err := mautrix.NewClient(config.Homeserver, id.UserID(config.UserID), config.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("matrix: create client: %w", err)
	}

	c := &Client{
		client: client,
		config: config,
		stopCh: make(chan struct{}),
	}

	// A persistent sync store lets the bot resume from the last known
	// position after a restart instead of replaying the full room history
	// into the learner.
	if config.DB != nil {
		client.Store = newSQLSyncStore(config.DB)
		slog.Info("Matrix sync store: using persistent SQLite store")
	} else {
		slog.Warn("Matrix sync store: no DB configured, using in-memory store (history will replay on restart)")
	}

	return c, nil
}

// Start joins the configured rooms and begins syncing with the homeserver.
// Inbound text messages are delivered to handler one at a time, in arrival
// order, from the sync loop goroutine.
func (c *Client) Start(ctx context.Context, handler MessageHandler) error {
	c.msgHandler = handler

	syncer := c.client.Syncer.(*mautrix.DefaultSyncer)
	syncer.OnEventType(event.EventMessage, c.handleMessage)

	for _, roomID := range c.config.Rooms {
		if err := c.joinRoom(roomID); err != nil {
			return fmt.Errorf("matrix: join room %s: %w", roomID, err)
		}
	}

	// Sync in the background with exponential back-off reconnection. A
	// transient homeserver error would otherwise silently kill the sync
	// goroutine and leave the bot deaf.
	go func() {
		var backoff time.Duration
		for {
			started := time.Now()
			if err := c.client.Sync(); err != nil {
				select {
				case <-c.stopCh:
					return
				default:
				}
				backoff = reconnectDelay(backoff, time.Since(started))
				slog.Error("Matrix sync stopped; reconnecting", "err", err, "backoff", backoff)
				select {
				case <-c.stopCh:
					return
				case <-time.After(backoff):
				}
				continue
			}
			// Sync returned nil — only happens on a clean StopSync() call.
			return
		}
	}()

	return nil
}

const (
	backoffMin = 2 * time.Second
	backoffMax = 5 * time.Minute
	// backoffStable is how long a sync must stay up before a subsequent
	// failure is treated as fresh rather than a consecutive one.
	backoffStable = time.Minute
)

// reconnectDelay returns the wait before the next sync attempt. Quick
// consecutive failures double the previous delay up to backoffMax; a sync
// that stayed up for backoffStable or longer resets the progression.
func reconnectDelay(prev, uptime time.Duration) time.Duration {
	if prev <= 0 || uptime >= backoffStable {
		return backoffMin
	}
	next := prev * 2
	if next > backoffMax {
		next = backoffMax
	}
	return next
}

// Stop stops the Matrix client.
func (c *Client) Stop() {
	close(c.stopCh)
	c.client.StopSync()
}

// SendMessage delivers text to a room, retrying transient failures a few
// times. Delivery is best-effort: the final error is returned for logging
// only and callers are expected to drop it.
func (c *Client) SendMessage(ctx context.Context, roomID, text string) error {
	err := retry.Do(ctx, retry.Config{MaxAttempts: 3, InitialDelay: time.Second}, func() error {
		_, sendErr := c.client.SendText(ctx, id.RoomID(roomID), text)
		return sendErr
	})
	if err != nil {
		return fmt.Errorf("matrix: send message: %w", err)
	}
	return nil
}

// UserID returns the client's full Matrix user ID.
func (c *Client) UserID() string {
	return c.config.UserID
}

// handleMessage converts a room event into a Message and hands it to the
// registered handler.
func (c *Client) handleMessage(ctx context.Context, evt *event.Event) {
	msgContent := evt.Content.AsMessage()
	if msgContent == nil || msgContent.MsgType != event.MsgText {
		return
	}
	if !c.isWatchedRoom(evt.RoomID.String()) {
		return
	}
	if c.msgHandler == nil {
		return
	}

	c.msgHandler(ctx, Message{
		Room:   evt.RoomID.String(),
		Sender: localpart(evt.Sender),
		Text:   msgContent.Body,
		Echo:   evt.Sender == id.UserID(c.config.UserID),
	})
}

// isWatchedRoom checks whether the bot is configured to listen on roomID.
func (c *Client) isWatchedRoom(roomID string) bool {
	for _, r := range c.config.Rooms {
		if r == roomID {
			return true
		}
	}
	return false
}

// joinRoom attempts to join a room.
func (c *Client) joinRoom(roomID string) error {
	_, err := c.client.JoinRoomByID(context.Background(), id.RoomID(roomID))
	if err != nil {
		// M_FORBIDDEN is returned by homeservers when the bot is already a
		// member of the room.
		if errors.Is(err, mautrix.MForbidden) {
			slog.Warn("joinRoom: already a member or access denied, continuing", "room", roomID)
			return nil
		}
		return err
	}
	return nil
}

// localpart extracts the username part of a Matrix user ID
// ("@amsius:example.org" → "amsius").
func localpart(userID id.UserID) string {
	s := strings.TrimPrefix(userID.String(), "@")
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	return s
}
