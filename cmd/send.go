package cmd

import (
	"context"
	"fmt"
	"log"

	"tunecast/client"
	"tunecast/relay"
	"tunecast/server"

	"github.com/spf13/cobra"
)

var (
	sendValue int
	sendIndex int
)

var sendCmd = &cobra.Command{
	Use:   "send <command>",
	Short: "向运行中的中继发送一条指令",
	Long: `向运行中的中继发送一条指令，比如 next、previous、volume。
中继端口从边车文件读取，读不到时退回配置的默认端口。`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		msg := &relay.Message{Command: relay.Command(args[0])}
		if cmd.Flags().Changed("value") {
			msg.Value = &sendValue
		}
		if cmd.Flags().Changed("index") {
			msg.Index = &sendIndex
		}

		sender := client.NewSender(discoverRelayURL())
		result := sender.Send(context.Background(), msg)
		if !result.OK {
			log.Fatalf("发送失败: %v", result.Err)
		}
		fmt.Printf("指令 %s 已发送（第%d次尝试成功）\n", args[0], result.Attempts)
	},
}

// discoverRelayURL 通过边车文件发现中继端口
func discoverRelayURL() string {
	port, err := server.ReadPortFile(cfg.PortFile)
	if err != nil {
		port = cfg.Port
	}
	return client.RelayURL(cfg.Host, port)
}

func init() {
	sendCmd.Flags().IntVar(&sendValue, "value", 0, "value payload, e.g. volume level")
	sendCmd.Flags().IntVar(&sendIndex, "index", 0, "index payload for loadVideo")
	rootCmd.AddCommand(sendCmd)
}
