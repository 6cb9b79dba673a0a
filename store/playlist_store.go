package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"tunecast/logger"
	"tunecast/model"

	"github.com/fsnotify/fsnotify"
)

// SavedPlaylist 是播放列表文件的内容
type SavedPlaylist struct {
	Playlist     []model.Track `json:"playlist"`
	CurrentIndex int           `json:"currentIndex"`
}

// PlaylistStore 把播放列表持久化到一个本地 JSON 文件，并可监听该文件
// 的外部修改。记录最近一次自己写入的内容，监听时用来跳过自身写入
// 触发的事件。
type PlaylistStore struct {
	mu        sync.Mutex
	path      string
	lastSaved []byte
}

// NewPlaylistStore 创建播放列表存储
func NewPlaylistStore(path string) *PlaylistStore {
	return &PlaylistStore{path: path}
}

// Path 返回存储文件路径
func (s *PlaylistStore) Path() string {
	return s.path
}

// Load 读取保存的播放列表。文件不存在时返回空列表，不算错误。
func (s *PlaylistStore) Load() (SavedPlaylist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *PlaylistStore) loadLocked() (SavedPlaylist, error) {
	empty := SavedPlaylist{Playlist: []model.Track{}, CurrentIndex: model.NoActiveTrack}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return empty, nil
	}
	if err != nil {
		return empty, fmt.Errorf("read playlist file: %w", err)
	}

	var saved SavedPlaylist
	if err := json.Unmarshal(data, &saved); err != nil {
		return empty, fmt.Errorf("parse playlist file %s: %w", s.path, err)
	}
	if saved.Playlist == nil {
		saved.Playlist = []model.Track{}
	}
	return saved, nil
}

// Save 写入播放列表文件
func (s *PlaylistStore) Save(tracks []model.Track, currentIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(&SavedPlaylist{
		Playlist:     tracks,
		CurrentIndex: currentIndex,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode playlist: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write playlist file: %w", err)
	}
	s.lastSaved = data
	return nil
}

// Watch 监听播放列表文件的外部修改，每次变化调用 onChange。
// 阻塞直到 ctx 结束。
func (s *PlaylistStore) Watch(ctx context.Context, onChange func(SavedPlaylist)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// 监听目录而不是文件本身，编辑器的原子保存会替换文件
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target, err := filepath.Abs(s.path)
	if err != nil {
		return err
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || name != target {
				continue
			}
			s.handleFileEvent(onChange)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("playlist watcher error", logger.ErrorField(err))

		case <-ctx.Done():
			return nil
		}
	}
}

// handleFileEvent 重新读取文件，内容和自己最近一次写入相同时跳过
func (s *PlaylistStore) handleFileEvent(onChange func(SavedPlaylist)) {
	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	if err == nil && bytes.Equal(data, s.lastSaved) {
		s.mu.Unlock()
		return
	}
	saved, loadErr := s.loadLocked()
	s.mu.Unlock()

	if loadErr != nil {
		logger.Warn("reload playlist file failed", logger.ErrorField(loadErr))
		return
	}

	logger.Info("playlist file changed externally", logger.String("path", s.path))
	onChange(saved)
}
