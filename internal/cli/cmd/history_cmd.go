package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/rudransh-shrivastava/pairlink/internal/msglog"
	"github.com/rudransh-shrivastava/pairlink/internal/store"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "show archived messages",
	Long:  `list past sessions, or the messages of one session when its id is given`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configFlags.Resolve()
		if err != nil {
			return err
		}
		if cfg.HistoryPath == "" {
			return fmt.Errorf("message history is disabled")
		}

		db, err := store.Open(cfg.HistoryPath)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close(db) }()

		repo := store.NewMessageStore(db)
		out := cmd.OutOrStdout()
		if len(args) == 1 {
			return printSession(cmd.Context(), out, repo, args[0])
		}
		return printSessions(cmd.Context(), out, repo, historyLimit)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of recent messages to show with the session list")
}

func printSessions(ctx context.Context, out io.Writer, repo store.MessageRepository, limit int) error {
	sessions, err := repo.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No archived sessions.")
		return nil
	}

	for _, s := range sessions {
		fmt.Fprintf(out, "%s  %3d messages  %s\n",
			color.YellowString(s.SessionID), s.Messages, humanize.Time(time.UnixMilli(s.LastAt)))
	}

	recent, err := repo.ListRecent(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list messages: %w", err)
	}
	fmt.Fprintln(out)
	for _, row := range recent {
		printArchived(out, row.ToLog())
	}
	return nil
}

func printSession(ctx context.Context, out io.Writer, repo store.MessageRepository, sessionID string) error {
	rows, err := repo.ListBySession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to list messages: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("no messages for session %s", sessionID)
	}
	for _, row := range rows {
		printArchived(out, row.ToLog())
	}
	return nil
}

func printArchived(out io.Writer, m msglog.Message) {
	who := color.GreenString("you")
	if m.Sender == msglog.Remote {
		who = color.CyanString("peer")
	}
	ts := m.Timestamp.Format("2006-01-02 15:04:05")

	if m.Kind == msglog.KindFile {
		fmt.Fprintf(out, "[%s] %s: file %s (%s) %s\n", ts, who, m.File.Name, humanize.Bytes(uint64(m.File.Size)), m.Handle)
		return
	}
	fmt.Fprintf(out, "[%s] %s: %s\n", ts, who, m.Content)
}
