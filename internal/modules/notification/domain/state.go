package domain

import (
	"fmt"
	"net/url"
	"strings"
)

type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// FeedPath is appended to the API base URL to reach the live feed.
const FeedPath = "/notifications/ws"

// FeedURL derives the live feed address from the API base URL by swapping
// http for ws and https for wss. The base path is kept.
func FeedURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedBaseURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrMalformedBaseURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrMalformedBaseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/") + FeedPath
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
