// Package ytid resolves YouTube video and playlist identifiers from the
// URL shapes users paste in: watch URLs, youtu.be short links, embed and
// legacy /v/ URLs, and bare IDs.
package ytid

import "regexp"

var bareVideoID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

var videoURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/embed/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/v/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/(?:.*?)#(?:.*?)v=([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/watch\?(?:.*?)v=([A-Za-z0-9_-]{11})`),
}

// ExtractVideoID returns the 11-character video ID contained in raw,
// which may be a bare ID or any recognized URL shape. The second return
// is false when no shape matches.
func ExtractVideoID(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	if bareVideoID.MatchString(raw) {
		return raw, true
	}
	for _, p := range videoURLPatterns {
		if m := p.FindStringSubmatch(raw); m != nil {
			return m[1], true
		}
	}
	return "", false
}

var barePlaylistID = regexp.MustCompile(`^(?:PL|UU|LL|FL|RD|OL)[A-Za-z0-9_-]{16,32}$`)

var playlistURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/playlist\?list=([A-Za-z0-9_-]{16,})`),
	regexp.MustCompile(`youtube\.com/watch\?.*?list=([A-Za-z0-9_-]{16,})`),
	regexp.MustCompile(`youtu\.be/.*?[?&]list=([A-Za-z0-9_-]{16,})`),
}

// ExtractPlaylistID returns the playlist ID contained in raw, if any.
// Used to give a pointed rejection when someone feeds a playlist URL
// where a single video is expected.
func ExtractPlaylistID(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	if barePlaylistID.MatchString(raw) {
		return raw, true
	}
	for _, p := range playlistURLPatterns {
		if m := p.FindStringSubmatch(raw); m != nil {
			return m[1], true
		}
	}
	return "", false
}
