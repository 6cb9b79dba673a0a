package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tunecast/relay"

	"github.com/gorilla/websocket"
)

// fakeRelay 接收一条指令就算成功
func fakeRelay(t *testing.T) (string, chan relay.Message) {
	t.Helper()

	received := make(chan relay.Message, 8)
	upgrader := websocket.Upgrader{}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var msg relay.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		received <- msg
	}))
	t.Cleanup(ts.Close)

	return "ws" + strings.TrimPrefix(ts.URL, "http"), received
}

func TestSendDeliversCommand(t *testing.T) {
	url, received := fakeRelay(t)

	value := 42
	sender := NewSender(url)
	result := sender.Send(context.Background(), &relay.Message{
		Command: relay.CmdVolume,
		Value:   &value,
	})

	if !result.OK {
		t.Fatalf("Send() = %+v; want OK", result)
	}
	if result.Attempts != 1 {
		t.Errorf("attempts = %d; want 1", result.Attempts)
	}

	select {
	case msg := <-received:
		if msg.Command != relay.CmdVolume || msg.Value == nil || *msg.Value != 42 {
			t.Errorf("relay received %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay never received the command")
	}
}

func TestSendExhaustsRetries(t *testing.T) {
	// 没有任何进程监听这个地址
	sender := NewSenderWithPolicy("ws://127.0.0.1:1/ws", 2, 10*time.Millisecond)

	result := sender.Send(context.Background(), &relay.Message{Command: relay.CmdNext})
	if result.OK {
		t.Fatal("Send() succeeded against an unreachable relay")
	}
	if result.Attempts != 2 {
		t.Errorf("attempts = %d; want 2", result.Attempts)
	}
	if result.Err == nil {
		t.Error("Err is nil after exhausted retries")
	}
}

func TestSendHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := NewSenderWithPolicy("ws://127.0.0.1:1/ws", 5, time.Minute)
	start := time.Now()
	result := sender.Send(ctx, &relay.Message{Command: relay.CmdNext})

	if result.OK {
		t.Fatal("Send() succeeded with a cancelled context")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Send() took %v; cancelled context should stop the backoff wait", elapsed)
	}
}

func TestRelayURL(t *testing.T) {
	if got := RelayURL("127.0.0.1", 8765); got != "ws://127.0.0.1:8765/ws" {
		t.Errorf("RelayURL() = %q", got)
	}
}
