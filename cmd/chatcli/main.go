package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "chatcli",
	Short:         "Terminal client for the GST chat assistant",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadSettings()
	},
}

var (
	flagAPI      string
	flagStateDir string
	flagLogLevel string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagAPI, "api", "", "backend base URL (overrides GST_API_BASE)")
	flags.StringVar(&flagStateDir, "state-dir", "", "directory for session cookies and preferences (overrides GST_STATE_DIR)")
	flags.StringVar(&flagLogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	rootCmd.AddCommand(loginCmd, registerCmd, chatCmd, logoutCmd, darkCmd, exportCmd)
}

func main() {
	// .env is optional; the real environment wins.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Fatal().Err(err).Msg("chatcli failed")
	}
}
