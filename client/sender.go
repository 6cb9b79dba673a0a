// Package client implements the controller-side command sender: a
// fire-and-forget connection that delivers one command to the relay and
// closes. An unreachable relay is reported as a Result, never a panic.
package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"tunecast/logger"
	"tunecast/relay"

	"github.com/gorilla/websocket"
)

// Result is the outcome of a send, including how many attempts it took.
type Result struct {
	OK       bool
	Attempts int
	Err      error
}

// Sender delivers single commands over short-lived connections with a
// bounded retry policy.
type Sender struct {
	url      string
	attempts int
	backoff  time.Duration
	dialer   *websocket.Dialer
}

// RelayURL builds the websocket URL for a relay on host:port.
func RelayURL(host string, port int) string {
	u := url.URL{Scheme: "ws", Host: host + ":" + strconv.Itoa(port), Path: "/ws"}
	return u.String()
}

// NewSender creates a sender with the default policy: 5 attempts,
// 500ms fixed backoff.
func NewSender(relayURL string) *Sender {
	return &Sender{
		url:      relayURL,
		attempts: 5,
		backoff:  500 * time.Millisecond,
		dialer:   &websocket.Dialer{HandshakeTimeout: 3 * time.Second},
	}
}

// NewSenderWithPolicy creates a sender with an explicit retry policy.
func NewSenderWithPolicy(relayURL string, attempts int, backoff time.Duration) *Sender {
	s := NewSender(relayURL)
	if attempts > 0 {
		s.attempts = attempts
	}
	s.backoff = backoff
	return s
}

// Send opens a connection, writes one command, and closes. Each failed
// attempt waits the fixed backoff before retrying; after the last
// attempt the failure is surfaced in the Result.
func (s *Sender) Send(ctx context.Context, msg *relay.Message) Result {
	var lastErr error

	for attempt := 1; attempt <= s.attempts; attempt++ {
		if err := s.sendOnce(ctx, msg); err == nil {
			return Result{OK: true, Attempts: attempt}
		} else {
			lastErr = err
			logger.Debug("send attempt failed",
				logger.ErrorField(err),
				logger.Int("attempt", attempt),
				logger.String("command", string(msg.Command)))
		}

		if attempt < s.attempts {
			select {
			case <-time.After(s.backoff):
			case <-ctx.Done():
				return Result{OK: false, Attempts: attempt, Err: ctx.Err()}
			}
		}
	}

	return Result{
		OK:       false,
		Attempts: s.attempts,
		Err:      fmt.Errorf("relay unreachable after %d attempts: %w", s.attempts, lastErr),
	}
}

func (s *Sender) sendOnce(ctx context.Context, msg *relay.Message) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(3 * time.Second))
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write command: %w", err)
	}

	// 正常关闭，让中继立刻回收这条连接
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return nil
}
