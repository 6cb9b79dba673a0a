package relay

import (
	"fmt"
	"sync"

	"tunecast/model"
)

// Direction 切歌方向
type Direction int

const (
	Next Direction = iota
	Previous
)

// Player 持有中继的全部共享可变状态：当前快照、中继自己的播放列表
// 副本和音量。所有读写都经过同一把互斥锁。
//
// nowPlaying 指令整体替换 current，但不覆盖 playlist 副本；
// next/previous/loadVideo 永远基于 playlist 副本重建快照。
type Player struct {
	mu       sync.Mutex
	current  model.NowPlaying
	playlist []model.Track
	volume   int
}

// NewPlayer 创建初始状态的播放器
func NewPlayer() *Player {
	return &Player{
		current:  model.DefaultNowPlaying(),
		playlist: []model.Track{},
		volume:   100,
	}
}

// Snapshot 返回当前快照的副本
func (p *Player) Snapshot() model.NowPlaying {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneSnapshot(p.current)
}

// Volume 返回当前音量
func (p *Player) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Playlist 返回播放列表副本和当前下标
func (p *Player) Playlist() ([]model.Track, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneTracks(p.playlist), p.current.CurrentIndex
}

// SetNowPlaying 校验并整体替换当前快照。下标越界时拒绝，状态不变。
func (p *Player) SetNowPlaying(snapshot model.NowPlaying) (model.NowPlaying, error) {
	if err := snapshot.Validate(); err != nil {
		return model.NowPlaying{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if snapshot.Playlist == nil {
		snapshot.Playlist = []model.Track{}
	}
	p.current = snapshot
	return cloneSnapshot(p.current), nil
}

// Advance 按 direction 环形切换当前曲目。播放列表为空时不做任何事。
func (p *Player) Advance(direction Direction) (model.NowPlaying, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.playlist) == 0 {
		return model.NowPlaying{}, false
	}

	index := p.current.CurrentIndex
	if direction == Next {
		index++
	} else {
		index--
	}
	// 归一化取模，保证结果非负
	index = ((index % len(p.playlist)) + len(p.playlist)) % len(p.playlist)

	p.current = p.snapshotAt(index)
	return cloneSnapshot(p.current), true
}

// AddTrack 追加曲目。第一首自动成为当前曲目；之后只刷新快照里的
// 播放列表字段。允许重复添加同一个视频ID。
func (p *Player) AddTrack(track model.Track) (model.NowPlaying, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.playlist = append(p.playlist, track)

	first := len(p.playlist) == 1
	if first {
		p.current = p.snapshotAt(0)
	} else {
		p.current.Playlist = cloneTracks(p.playlist)
	}
	return cloneSnapshot(p.current), first
}

// LoadTrack 切换到指定下标的曲目，越界时拒绝
func (p *Player) LoadTrack(index int) (model.NowPlaying, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= len(p.playlist) {
		return model.NowPlaying{}, fmt.Errorf("index %d out of range for playlist of %d", index, len(p.playlist))
	}

	p.current = p.snapshotAt(index)
	return cloneSnapshot(p.current), nil
}

// SetVolume 设置音量，超出 [0,100] 时拒绝且不改变已存的值
func (p *Player) SetVolume(volume int) error {
	if !model.ValidVolume(volume) {
		return fmt.Errorf("volume %d out of range [%d,%d]", volume, model.MinVolume, model.MaxVolume)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	return nil
}

// ResetPlaylist 用持久化的播放列表重建状态，启动和外部文件变更时调用。
// currentIndex 有效时对应曲目成为当前曲目，否则回到哨兵快照。
func (p *Player) ResetPlaylist(tracks []model.Track, currentIndex int) model.NowPlaying {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.playlist = cloneTracks(tracks)
	if currentIndex >= 0 && currentIndex < len(p.playlist) {
		p.current = p.snapshotAt(currentIndex)
	} else {
		p.current = model.DefaultNowPlaying()
		p.current.Playlist = cloneTracks(p.playlist)
	}
	return cloneSnapshot(p.current)
}

// hydrationPayloads 编码新订阅端的初始两条消息：最新快照和当前音量。
// 在同一个临界区里取值，保证两者一致。
func (p *Player) hydrationPayloads() ([]byte, []byte, error) {
	p.mu.Lock()
	snapshot := cloneSnapshot(p.current)
	volume := p.volume
	p.mu.Unlock()

	snapMsg, err := encodeNowPlaying(snapshot)
	if err != nil {
		return nil, nil, err
	}
	volMsg, err := encodeVolume(volume)
	if err != nil {
		return nil, nil, err
	}
	return snapMsg, volMsg, nil
}

// snapshotAt 基于播放列表第 index 首构造快照，调用方需持有锁
func (p *Player) snapshotAt(index int) model.NowPlaying {
	track := p.playlist[index]
	return model.NowPlaying{
		Title:        track.Title,
		Author:       track.Author,
		VideoID:      track.ID,
		Playlist:     cloneTracks(p.playlist),
		CurrentIndex: index,
	}
}

func cloneTracks(tracks []model.Track) []model.Track {
	out := make([]model.Track, len(tracks))
	copy(out, tracks)
	return out
}

func cloneSnapshot(snapshot model.NowPlaying) model.NowPlaying {
	snapshot.Playlist = cloneTracks(snapshot.Playlist)
	return snapshot
}
