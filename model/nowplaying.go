package model

import "fmt"

// Track represents one entry of the overlay playlist.
// ID is the 11-character YouTube video identifier; the same ID may
// appear more than once in a playlist.
type Track struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// NowPlaying is the snapshot broadcast to every overlay subscriber.
// It is always replaced wholesale, never patched field by field.
type NowPlaying struct {
	Title        string  `json:"title"`
	Author       string  `json:"author"`
	VideoID      string  `json:"videoId"`
	Playlist     []Track `json:"playlist"`
	CurrentIndex int     `json:"currentIndex"` // -1 means no active track
}

// NoActiveTrack is the CurrentIndex sentinel when nothing is playing.
const NoActiveTrack = -1

// DefaultNowPlaying returns the snapshot used before any track is known.
func DefaultNowPlaying() NowPlaying {
	return NowPlaying{
		Title:        "No song playing",
		Author:       "",
		VideoID:      "",
		Playlist:     []Track{},
		CurrentIndex: NoActiveTrack,
	}
}

// Validate checks the index invariant: CurrentIndex is either the
// no-track sentinel or a valid position inside Playlist.
func (n *NowPlaying) Validate() error {
	if n.CurrentIndex == NoActiveTrack {
		return nil
	}
	if n.CurrentIndex < 0 || n.CurrentIndex >= len(n.Playlist) {
		return fmt.Errorf("currentIndex %d out of range for playlist of %d", n.CurrentIndex, len(n.Playlist))
	}
	return nil
}

// Volume bounds. The relay stores a single process-wide volume,
// independent of the NowPlaying snapshot.
const (
	MinVolume = 0
	MaxVolume = 100
)

// ValidVolume reports whether v is inside the accepted range.
func ValidVolume(v int) bool {
	return v >= MinVolume && v <= MaxVolume
}
