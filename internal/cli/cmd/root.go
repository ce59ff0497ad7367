package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rudransh-shrivastava/pairlink/internal/config"
	"github.com/rudransh-shrivastava/pairlink/internal/logger"
	"github.com/spf13/cobra"
)

var configFlags *config.Flags

var rootCmd = &cobra.Command{
	Use:   `pairlink`,
	Short: `direct peer-to-peer chat and file transfer`,
	Long: `pairlink connects two machines over WebRTC without a signalling server.
One side runs "pairlink offer" and pastes the printed offer to the other side,
which runs "pairlink answer" and pastes the answer back. Once connected, both
sides can chat and send files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.NewLogger().Error(err)
		stop()
		os.Exit(1)
	}
}

func init() {
	configFlags = config.BindFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(offerCmd)
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(historyCmd)
}
