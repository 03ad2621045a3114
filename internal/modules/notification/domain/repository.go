package domain

import (
	"context"
	"time"
)

// NotificationAPI is the backend's REST contract for the notification feed.
type NotificationAPI interface {
	List(ctx context.Context) ([]Notification, error)
	MarkAsRead(ctx context.Context, id ID) error
	MarkAllAsRead(ctx context.Context) error
}

// Conn is one live upstream socket.
type Conn interface {
	// ReadMessage blocks until the next text frame arrives or the socket fails.
	ReadMessage() ([]byte, error)
	Close() error
}

// Dialer opens the upstream real-time feed.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Journal records live frames as they arrive.
type Journal interface {
	Append(ctx context.Context, n Notification, receivedAt time.Time) error
}
