package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tunecast/config"
	"tunecast/logger"
	"tunecast/metadata"
	"tunecast/relay"
	"tunecast/store"
)

// Run 启动中继并阻塞到收到 SIGINT/SIGTERM。绑定失败时返回错误，
// 由调用方决定退出码。
func Run(cfg *config.Config) error {
	player := relay.NewPlayer()
	hub := relay.NewHub(player)
	playlistStore := store.NewPlaylistStore(cfg.PlaylistFile)
	manager := relay.NewManager(player, hub, playlistStore, metadata.NewClient())

	// 恢复上次保存的播放列表，有曲目时第一首（或保存的下标）成为当前快照
	saved, err := playlistStore.Load()
	if err != nil {
		logger.Warn("load saved playlist failed, starting empty", logger.ErrorField(err))
	} else if len(saved.Playlist) > 0 {
		player.ResetPlaylist(saved.Playlist, saved.CurrentIndex)
		logger.Info("restored saved playlist",
			logger.Int("tracks", len(saved.Playlist)),
			logger.Int("currentIndex", saved.CurrentIndex))
	}

	// 先探测再绑定，失败时不写任何边车文件
	listener, port, err := Listen(cfg.Host, cfg.Port, cfg.AutoPort, cfg.PortProbeLimit)
	if err != nil {
		return err
	}
	if port != cfg.Port {
		logger.Warn("preferred port unavailable, using fallback",
			logger.Int("preferred", cfg.Port),
			logger.Int("bound", port))
	}

	if err := WritePortFile(cfg.PortFile, port); err != nil {
		logger.Warn("publish port file failed", logger.ErrorField(err))
	}
	defer RemovePortFile(cfg.PortFile)

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()

	go hub.Run()
	defer hub.Stop()

	// 监听播放列表文件的外部修改，变化时重建状态并广播
	go func() {
		if err := playlistStore.Watch(watchCtx, func(saved store.SavedPlaylist) {
			manager.ResetPlaylist(saved.Playlist, saved.CurrentIndex)
		}); err != nil {
			logger.Warn("playlist watcher stopped", logger.ErrorField(err))
		}
	}()

	handler := NewHandler(player, hub, manager)
	httpServer := &http.Server{
		Handler:     NewRouter(handler),
		IdleTimeout: 120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("relay listening",
			logger.String("host", cfg.Host),
			logger.Int("port", port),
			logger.String("portFile", cfg.PortFile))

		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped unexpectedly", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down relay")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", logger.ErrorField(err))
	}

	logger.Info("relay stopped")
	return nil
}
