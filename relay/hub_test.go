package relay

import (
	"encoding/json"
	"testing"
	"time"

	"tunecast/model"
)

// recvMsg 解析下发给订阅端的消息
type recvMsg struct {
	Command string           `json:"command"`
	Params  model.NowPlaying `json:"params"`
	Value   *int             `json:"value"`
}

func mustRecv(t *testing.T, ch chan []byte) recvMsg {
	t.Helper()
	select {
	case raw, ok := <-ch:
		if !ok {
			t.Fatal("send channel closed while waiting for a message")
		}
		var msg recvMsg
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("unparsable message %s: %v", raw, err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
	}
	return recvMsg{}
}

func expectSilence(t *testing.T, ch chan []byte) {
	t.Helper()
	select {
	case raw := <-ch:
		t.Fatalf("unexpected message: %s", raw)
	case <-time.After(100 * time.Millisecond):
	}
}

func testClient(h *Hub, buffer int) *Client {
	return &Client{hub: h, Send: make(chan []byte, buffer), ID: "test"}
}

func waitForCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count = %d; want %d", h.ClientCount(), want)
}

func TestHydrationAfterUpdates(t *testing.T) {
	// 订阅端在 N 次更新之后连接，水合消息必须是最新状态而不是默认值
	player := playerWith(trackA(), trackB())
	if _, err := player.LoadTrack(1); err != nil {
		t.Fatal(err)
	}
	if err := player.SetVolume(30); err != nil {
		t.Fatal(err)
	}

	hub := NewHub(player)
	go hub.Run()
	defer hub.Stop()

	client := testClient(hub, 16)
	hub.Register(client)

	first := mustRecv(t, client.Send)
	if first.Command != string(CmdNowPlaying) {
		t.Fatalf("first message command = %q; want nowPlaying", first.Command)
	}
	if first.Params.CurrentIndex != 1 || first.Params.VideoID != trackB().ID {
		t.Errorf("hydration snapshot = %+v; want track B at index 1", first.Params)
	}

	second := mustRecv(t, client.Send)
	if second.Command != string(CmdVolumeUpdate) {
		t.Fatalf("second message command = %q; want volumeUpdate", second.Command)
	}
	if second.Value == nil || *second.Value != 30 {
		t.Errorf("hydration volume = %v; want 30", second.Value)
	}
}

func TestHydrationDefaultState(t *testing.T) {
	hub := NewHub(NewPlayer())
	go hub.Run()
	defer hub.Stop()

	client := testClient(hub, 16)
	hub.Register(client)

	first := mustRecv(t, client.Send)
	if first.Params.Title != "No song playing" || first.Params.CurrentIndex != model.NoActiveTrack {
		t.Errorf("default hydration snapshot = %+v", first.Params)
	}

	second := mustRecv(t, client.Send)
	if second.Value == nil || *second.Value != 100 {
		t.Errorf("default hydration volume = %v; want 100", second.Value)
	}
}

func TestBroadcastDropsStalledSubscriber(t *testing.T) {
	player := NewPlayer()
	hub := NewHub(player)
	go hub.Run()
	defer hub.Stop()

	healthy1 := testClient(hub, 16)
	// 缓冲刚好被两条水合消息填满，下一次广播把它判定为停滞
	stalled := testClient(hub, 2)
	healthy2 := testClient(hub, 16)

	hub.Register(healthy1)
	hub.Register(stalled)
	hub.Register(healthy2)
	waitForCount(t, hub, 3)

	payload, err := encodeNowPlaying(player.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	hub.Broadcast(payload)

	// 停滞订阅端被移除，其余订阅端照常收到广播
	waitForCount(t, hub, 2)

	for _, c := range []*Client{healthy1, healthy2} {
		mustRecv(t, c.Send) // hydration snapshot
		mustRecv(t, c.Send) // hydration volume
		msg := mustRecv(t, c.Send)
		if msg.Command != string(CmdNowPlaying) {
			t.Errorf("broadcast command = %q; want nowPlaying", msg.Command)
		}
	}
}

func TestSendToDroppedSubscriber(t *testing.T) {
	player := NewPlayer()
	hub := NewHub(player)
	go hub.Run()
	defer hub.Stop()

	// 缓冲被两条水合消息填满，下一次广播把它移除并关闭 Send
	stalled := testClient(hub, 2)
	hub.Register(stalled)
	waitForCount(t, hub, 1)

	payload, err := encodeNowPlaying(player.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	hub.Broadcast(payload)
	waitForCount(t, hub, 0)

	// 已移除的订阅端再收到定向消息只是安静地丢弃，中继不能崩溃
	hub.SendTo(stalled, payload)

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("client count = %d; want 0", got)
	}
}

func TestUnregisterIdempotent(t *testing.T) {
	hub := NewHub(NewPlayer())
	go hub.Run()
	defer hub.Stop()

	client := testClient(hub, 16)
	hub.Register(client)
	waitForCount(t, hub, 1)

	hub.Unregister(client)
	waitForCount(t, hub, 0)

	// 重复注销不会 panic 也不会改变状态
	hub.Unregister(client)
	waitForCount(t, hub, 0)
}
