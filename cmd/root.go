package cmd

import (
	"fmt"
	"os"

	"tunecast/config"
	"tunecast/logger"

	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "tunecast",
	Short: "Tunecast relays now-playing state to OBS overlays.",
	Long: `Tunecast is a personal desktop companion that broadcasts YouTube
"now playing" metadata to OBS browser-source overlays over a local
WebSocket relay.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			OutputPath: cfg.LogPath,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		})
	},
	// 不带子命令时直接启动中继
	Run: func(cmd *cobra.Command, args []string) {
		runServe(cmd)
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
