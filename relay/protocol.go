package relay

import (
	"encoding/json"

	"tunecast/model"
)

// Command 指令类型
type Command string

const (
	// 中继接收的指令
	CmdNowPlaying  Command = "nowPlaying"             // 整体替换当前播放快照
	CmdPlay        Command = "play"                   // 播放（传输提示，中继不处理）
	CmdPause       Command = "pause"                  // 暂停（传输提示，中继不处理）
	CmdNext        Command = "next"                   // 下一首
	CmdPrevious    Command = "previous"               // 上一首
	CmdAddVideo    Command = "addVideo"               // 添加视频到播放列表
	CmdLoadVideo   Command = "loadVideo"              // 播放指定下标的视频
	CmdVolume      Command = "volume"                 // 设置音量
	CmdRequestSong Command = "requestCurrentSongInfo" // 请求当前快照
	CmdPing        Command = "ping"                   // 心跳，静默忽略

	// 中继下发的指令
	CmdVolumeUpdate Command = "volumeUpdate" // 音量变更通知
)

// Message 线路消息结构。payload 字段因指令而异：nowPlaying 携带
// params，addVideo 携带 url 和可选的 info，loadVideo 携带 index，
// volume 携带 value。
type Message struct {
	Command Command         `json:"command"`
	Params  json.RawMessage `json:"params,omitempty"`
	URL     string          `json:"url,omitempty"`
	Info    *model.Track    `json:"info,omitempty"`
	Index   *int            `json:"index,omitempty"`
	Value   *int            `json:"value,omitempty"`
}

// outMessage 下发给订阅端的消息
type outMessage struct {
	Command Command     `json:"command"`
	Params  interface{} `json:"params,omitempty"`
	Value   *int        `json:"value,omitempty"`
}

// encodeNowPlaying 编码快照广播消息
func encodeNowPlaying(snapshot model.NowPlaying) ([]byte, error) {
	return json.Marshal(&outMessage{
		Command: CmdNowPlaying,
		Params:  snapshot,
	})
}

// encodeVolume 编码音量广播消息
func encodeVolume(volume int) ([]byte, error) {
	return json.Marshal(&outMessage{
		Command: CmdVolumeUpdate,
		Value:   &volume,
	})
}
