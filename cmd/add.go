package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"tunecast/client"
	"tunecast/metadata"
	"tunecast/relay"
	"tunecast/ytid"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "解析视频链接并加入播放列表",
	Long:  `解析 YouTube 视频链接或 11 位视频ID，查询元数据后发送 addVideo 指令。`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		url := args[0]

		videoID, ok := ytid.ExtractVideoID(url)
		if !ok {
			if _, isPlaylist := ytid.ExtractPlaylistID(url); isPlaylist {
				log.Fatalf("这是一个播放列表链接，目前只支持单个视频: %s", url)
			}
			log.Fatalf("无法解析视频ID: %s", url)
		}

		// 在发送端解析好元数据，中继端就不需要再查一次
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		track, err := metadata.NewClient().Resolve(ctx, videoID)
		if err != nil {
			log.Printf("元数据查询失败，使用占位信息: %v", err)
			track = metadata.Placeholder(videoID)
		}

		msg := &relay.Message{
			Command: relay.CmdAddVideo,
			URL:     url,
			Info:    &track,
		}

		result := client.NewSender(discoverRelayURL()).Send(ctx, msg)
		if !result.OK {
			log.Fatalf("发送失败: %v", result.Err)
		}
		fmt.Printf("已添加: %s - %s\n", track.Title, track.Author)
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}
