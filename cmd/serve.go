package cmd

import (
	"tunecast/logger"
	"tunecast/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 WebSocket 中继",
	Long:  `启动本地 WebSocket 中继，向所有已连接的 OBS 浏览器源推送播放状态`,
	Run: func(cmd *cobra.Command, args []string) {
		runServe(cmd)
	},
}

func runServe(cmd *cobra.Command) {
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("auto-port") {
		cfg.AutoPort, _ = cmd.Flags().GetBool("auto-port")
	}

	if err := server.Run(cfg); err != nil {
		// 绑定失败是唯一的致命错误类别
		logger.Fatal("relay failed to start", logger.ErrorField(err))
	}
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().Int("port", 0, "port to bind the relay to (overrides RELAY_PORT)")
		c.Flags().Bool("auto-port", false, "probe for the next free port when the preferred one is taken")
	}
	rootCmd.AddCommand(serveCmd)
}
