package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tunecast/model"
	"tunecast/relay"

	"github.com/gorilla/websocket"
)

type wireMessage struct {
	Command string           `json:"command"`
	Params  model.NowPlaying `json:"params"`
	Value   *int             `json:"value"`
}

// relayFixture 起一套完整的中继和 HTTP 服务
func relayFixture(t *testing.T) (*httptest.Server, *relay.Player) {
	t.Helper()

	player := relay.NewPlayer()
	hub := relay.NewHub(player)
	go hub.Run()
	t.Cleanup(hub.Stop)

	manager := relay.NewManager(player, hub, nil, nil)
	ts := httptest.NewServer(NewRouter(NewHandler(player, hub, manager)))
	t.Cleanup(ts.Close)
	return ts, player
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readWire(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg wireMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read message: %v", err)
	}
	return msg
}

func TestWebSocketHydration(t *testing.T) {
	ts, _ := relayFixture(t)
	conn := dialWS(t, ts)

	first := readWire(t, conn)
	if first.Command != "nowPlaying" {
		t.Fatalf("first message = %q; want nowPlaying", first.Command)
	}
	if first.Params.Title != "No song playing" || first.Params.CurrentIndex != model.NoActiveTrack {
		t.Errorf("hydration snapshot = %+v", first.Params)
	}

	second := readWire(t, conn)
	if second.Command != "volumeUpdate" {
		t.Fatalf("second message = %q; want volumeUpdate", second.Command)
	}
	if second.Value == nil || *second.Value != 100 {
		t.Errorf("hydration volume = %v; want 100", second.Value)
	}
}

func TestWebSocketAddVideoBroadcast(t *testing.T) {
	ts, _ := relayFixture(t)

	sender := dialWS(t, ts)
	watcher := dialWS(t, ts)
	readWire(t, sender)
	readWire(t, sender)
	readWire(t, watcher)
	readWire(t, watcher)

	err := sender.WriteJSON(&relay.Message{
		Command: relay.CmdAddVideo,
		URL:     "https://youtu.be/dQw4w9WgXcQ",
		Info:    &model.Track{Title: "Never Gonna Give You Up", Author: "Rick Astley"},
	})
	if err != nil {
		t.Fatal(err)
	}

	for name, conn := range map[string]*websocket.Conn{"sender": sender, "watcher": watcher} {
		msg := readWire(t, conn)
		if msg.Command != "nowPlaying" {
			t.Errorf("%s got %q; want nowPlaying", name, msg.Command)
		}
		if msg.Params.VideoID != "dQw4w9WgXcQ" || msg.Params.CurrentIndex != 0 {
			t.Errorf("%s snapshot = %+v", name, msg.Params)
		}
	}
}

func TestWebSocketMalformedMessageKeepsConnection(t *testing.T) {
	ts, _ := relayFixture(t)
	conn := dialWS(t, ts)
	readWire(t, conn)
	readWire(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{broken json")); err != nil {
		t.Fatal(err)
	}

	// 连接还活着，后续指令仍被处理
	if err := conn.WriteJSON(&relay.Message{Command: relay.CmdVolume, Value: intPtr(55)}); err != nil {
		t.Fatal(err)
	}
	msg := readWire(t, conn)
	if msg.Command != "volumeUpdate" || msg.Value == nil || *msg.Value != 55 {
		t.Errorf("message after malformed input = %+v", msg)
	}
}

func intPtr(v int) *int { return &v }

func TestNowPlayingEndpoint(t *testing.T) {
	ts, player := relayFixture(t)
	player.AddTrack(model.Track{ID: "dQw4w9WgXcQ", Title: "Never Gonna Give You Up", Author: "Rick Astley"})

	resp, err := http.Get(ts.URL + "/api/nowplaying")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS header = %q; want *", got)
	}

	var snapshot model.NowPlaying
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		t.Fatal(err)
	}
	if snapshot.VideoID != "dQw4w9WgXcQ" || snapshot.CurrentIndex != 0 {
		t.Errorf("snapshot = %+v", snapshot)
	}
}

func TestPlaylistEndpoint(t *testing.T) {
	ts, player := relayFixture(t)
	player.AddTrack(model.Track{ID: "AAAAAAAAAAA", Title: "Track A", Author: "One"})
	player.AddTrack(model.Track{ID: "BBBBBBBBBBB", Title: "Track B", Author: "Two"})

	resp, err := http.Get(ts.URL + "/api/playlist")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Playlist     []model.Track `json:"playlist"`
		CurrentIndex int           `json:"currentIndex"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Playlist) != 2 || body.CurrentIndex != 0 {
		t.Errorf("playlist response = %+v", body)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := relayFixture(t)
	conn := dialWS(t, ts)
	// 水合消息到达即注册完成
	readWire(t, conn)
	readWire(t, conn)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Status  string `json:"status"`
		Clients int    `json:"clients"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q", body.Status)
	}
	if body.Clients != 1 {
		t.Errorf("clients = %d; want 1", body.Clients)
	}
}
