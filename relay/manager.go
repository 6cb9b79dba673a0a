package relay

import (
	"context"
	"encoding/json"
	"sync"

	"tunecast/logger"
	"tunecast/metadata"
	"tunecast/model"
	"tunecast/ytid"
)

// MetadataResolver 按视频ID查询标题和作者
type MetadataResolver interface {
	Resolve(ctx context.Context, videoID string) (model.Track, error)
}

// PlaylistSaver 持久化播放列表
type PlaylistSaver interface {
	Save(tracks []model.Track, currentIndex int) error
}

// Manager 指令处理器。所有状态变更和对应的广播入队都在同一把锁内
// 完成，两个并发指令不会交错出半更新状态。
type Manager struct {
	mu       sync.Mutex
	player   *Player
	hub      *Hub
	saver    PlaylistSaver    // 可为 nil，表示不持久化
	resolver MetadataResolver // 可为 nil，addVideo 直接使用占位元数据
}

// NewManager 创建指令处理器
func NewManager(player *Player, hub *Hub, saver PlaylistSaver, resolver MetadataResolver) *Manager {
	return &Manager{
		player:   player,
		hub:      hub,
		saver:    saver,
		resolver: resolver,
	}
}

// HandleMessage 按指令分发处理。校验失败的指令记日志后丢弃，
// 永远不会让中继崩溃。
func (m *Manager) HandleMessage(ctx context.Context, client *Client, msg *Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch msg.Command {
	case CmdNowPlaying:
		m.handleNowPlaying(client, msg.Params)

	case CmdPlay, CmdPause:
		// 传输提示，中继不拥有播放器，只记录
		logger.Debug("transport hint received",
			logger.String("command", string(msg.Command)),
			logger.String("client", client.ID))

	case CmdNext:
		m.handleAdvance(Next)

	case CmdPrevious:
		m.handleAdvance(Previous)

	case CmdAddVideo:
		m.handleAddVideo(ctx, msg)

	case CmdLoadVideo:
		m.handleLoadVideo(msg)

	case CmdVolume:
		m.handleVolume(msg)

	case CmdRequestSong:
		m.handleRequestSong(client)

	case CmdPing:
		logger.Debug("ping received", logger.String("client", client.ID))

	default:
		logger.Warn("unrecognized command",
			logger.String("command", string(msg.Command)),
			logger.String("client", client.ID))
	}
}

// handleNowPlaying 整体替换快照并广播
func (m *Manager) handleNowPlaying(client *Client, params json.RawMessage) {
	if len(params) == 0 {
		logger.Warn("nowPlaying without params", logger.String("client", client.ID))
		return
	}

	var snapshot model.NowPlaying
	if err := json.Unmarshal(params, &snapshot); err != nil {
		logger.Warn("nowPlaying params unparsable",
			logger.ErrorField(err),
			logger.String("client", client.ID))
		return
	}

	applied, err := m.player.SetNowPlaying(snapshot)
	if err != nil {
		logger.Warn("nowPlaying rejected",
			logger.ErrorField(err),
			logger.String("client", client.ID))
		return
	}

	m.broadcastNowPlaying(applied)
	logger.Info("now playing updated",
		logger.String("title", applied.Title),
		logger.String("author", applied.Author))
}

// handleAdvance 处理 next/previous 环形切歌
func (m *Manager) handleAdvance(direction Direction) {
	snapshot, ok := m.player.Advance(direction)
	if !ok {
		logger.Debug("advance ignored, playlist empty")
		return
	}

	m.broadcastNowPlaying(snapshot)
	m.persist()
	logger.Info("advanced to track",
		logger.Int("index", snapshot.CurrentIndex),
		logger.String("videoId", snapshot.VideoID))
}

// handleAddVideo 解析视频ID并追加到播放列表。解析失败时指令被拒绝，
// 状态不变。
func (m *Manager) handleAddVideo(ctx context.Context, msg *Message) {
	videoID, ok := ytid.ExtractVideoID(msg.URL)
	if !ok {
		if _, isPlaylist := ytid.ExtractPlaylistID(msg.URL); isPlaylist {
			logger.Warn("addVideo rejected, got a playlist URL", logger.String("url", msg.URL))
		} else {
			logger.Warn("addVideo rejected, unresolvable video ID", logger.String("url", msg.URL))
		}
		return
	}

	track := m.resolveTrack(ctx, videoID, msg.Info)

	snapshot, first := m.player.AddTrack(track)
	m.broadcastNowPlaying(snapshot)
	m.persist()
	logger.Info("video added to playlist",
		logger.String("videoId", videoID),
		logger.String("title", track.Title),
		logger.Bool("nowPlaying", first))
}

// resolveTrack 优先使用指令里自带的元数据，其次远程查询，最后退回占位
func (m *Manager) resolveTrack(ctx context.Context, videoID string, provided *model.Track) model.Track {
	if provided != nil && provided.Title != "" {
		track := *provided
		track.ID = videoID
		return track
	}

	if m.resolver != nil {
		if track, err := m.resolver.Resolve(ctx, videoID); err == nil {
			return track
		} else {
			logger.Warn("metadata lookup failed, using placeholder",
				logger.ErrorField(err),
				logger.String("videoId", videoID))
		}
	}
	return metadata.Placeholder(videoID)
}

// handleLoadVideo 切换到指定下标，越界时不广播
func (m *Manager) handleLoadVideo(msg *Message) {
	if msg.Index == nil {
		logger.Warn("loadVideo without index")
		return
	}

	snapshot, err := m.player.LoadTrack(*msg.Index)
	if err != nil {
		logger.Warn("loadVideo rejected", logger.ErrorField(err), logger.Int("index", *msg.Index))
		return
	}

	m.broadcastNowPlaying(snapshot)
	m.persist()
	logger.Info("loaded track", logger.Int("index", snapshot.CurrentIndex))
}

// handleVolume 设置音量并广播 volumeUpdate
func (m *Manager) handleVolume(msg *Message) {
	if msg.Value == nil {
		logger.Warn("volume without value")
		return
	}

	if err := m.player.SetVolume(*msg.Value); err != nil {
		logger.Warn("volume rejected", logger.ErrorField(err), logger.Int("value", *msg.Value))
		return
	}

	payload, err := encodeVolume(*msg.Value)
	if err != nil {
		logger.Error("encode volume message failed", logger.ErrorField(err))
		return
	}
	m.hub.Broadcast(payload)
	logger.Info("volume set", logger.Int("value", *msg.Value))
}

// handleRequestSong 只给请求方重发当前快照
func (m *Manager) handleRequestSong(client *Client) {
	payload, err := encodeNowPlaying(m.player.Snapshot())
	if err != nil {
		logger.Error("encode snapshot failed", logger.ErrorField(err))
		return
	}
	m.hub.SendTo(client, payload)
	logger.Debug("snapshot re-sent", logger.String("client", client.ID))
}

// ResetPlaylist 用外部加载的播放列表重建状态并广播，
// 启动恢复和播放列表文件被外部修改时调用。
func (m *Manager) ResetPlaylist(tracks []model.Track, currentIndex int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.player.ResetPlaylist(tracks, currentIndex)
	m.broadcastNowPlaying(snapshot)
	logger.Info("playlist reloaded",
		logger.Int("tracks", len(tracks)),
		logger.Int("currentIndex", snapshot.CurrentIndex))
}

// broadcastNowPlaying 编码并广播快照，调用方需持有 m.mu
func (m *Manager) broadcastNowPlaying(snapshot model.NowPlaying) {
	payload, err := encodeNowPlaying(snapshot)
	if err != nil {
		logger.Error("encode snapshot failed", logger.ErrorField(err))
		return
	}
	m.hub.Broadcast(payload)
}

// persist 保存播放列表，失败只记日志
func (m *Manager) persist() {
	if m.saver == nil {
		return
	}
	tracks, index := m.player.Playlist()
	if err := m.saver.Save(tracks, index); err != nil {
		logger.Warn("persist playlist failed", logger.ErrorField(err))
	}
}
