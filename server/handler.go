package server

import (
	"context"
	"encoding/json"
	"net/http"

	"tunecast/logger"
	"tunecast/relay"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Handler 中继的 HTTP 处理器：WebSocket 升级入口和只读的状态查询端点
type Handler struct {
	player   *relay.Player
	hub      *relay.Hub
	manager  *relay.Manager
	upgrader websocket.Upgrader
}

// NewHandler 创建处理器
func NewHandler(player *relay.Player, hub *relay.Hub, manager *relay.Manager) *Handler {
	return &Handler{
		player:  player,
		hub:     hub,
		manager: manager,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// WebSocketHandler 处理订阅端连接
func (h *Handler) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	client := relay.NewClient(h.hub, conn)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(context.Background(), h.manager.HandleMessage)

	logger.Info("websocket connection established",
		logger.String("client", client.ID),
		logger.String("remote", r.RemoteAddr))
}

// NowPlayingHandler 返回当前快照
func (h *Handler) NowPlayingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.player.Snapshot())
}

// PlaylistResponse 播放列表查询响应
type PlaylistResponse struct {
	Playlist     interface{} `json:"playlist"`
	CurrentIndex int         `json:"currentIndex"`
}

// PlaylistHandler 返回中继自己的播放列表副本
func (h *Handler) PlaylistHandler(w http.ResponseWriter, r *http.Request) {
	tracks, index := h.player.Playlist()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&PlaylistResponse{Playlist: tracks, CurrentIndex: index})
}

// HealthHandler 健康检查，附带当前订阅端数量
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"clients": h.hub.ClientCount(),
	})
}

// NewRouter 创建路由器并注册全部端点
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()

	// OBS 浏览器源从 file:// 或任意本地端口加载，放开 CORS
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	router.HandleFunc("/ws", h.WebSocketHandler)
	router.HandleFunc("/api/nowplaying", h.NowPlayingHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/playlist", h.PlaylistHandler).Methods(http.MethodGet)
	router.HandleFunc("/healthz", h.HealthHandler).Methods(http.MethodGet)

	return router
}
