package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"github.com/rudransh-shrivastava/pairlink/internal/cli"
	"github.com/rudransh-shrivastava/pairlink/internal/config"
	"github.com/rudransh-shrivastava/pairlink/internal/logger"
	"github.com/rudransh-shrivastava/pairlink/internal/rtc"
	"github.com/rudransh-shrivastava/pairlink/internal/session"
	"github.com/rudransh-shrivastava/pairlink/internal/store"
	"github.com/rudransh-shrivastava/pairlink/internal/transfer"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
	"gorm.io/gorm"
)

// app is everything one interactive command needs.
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	rl      *readline.Instance
	session *session.Session
	db      *gorm.DB
}

func newApp() (*app, error) {
	cfg, err := configFlags.Resolve()
	if err != nil {
		return nil, err
	}

	rl, err := cli.NewReadline("> ", "")
	if err != nil {
		return nil, fmt.Errorf("failed to init prompt: %w", err)
	}
	out := rl.Stdout()
	log := logger.New(rl.Stderr(), cfg.Level())

	blobs, err := transfer.NewDirBlobs(cfg.DownloadDir)
	if err != nil {
		_ = rl.Close()
		return nil, err
	}

	a := &app{cfg: cfg, logger: log, rl: rl}

	var archive session.Archive
	if cfg.HistoryPath != "" {
		db, err := store.Open(cfg.HistoryPath)
		if err != nil {
			log.Warnf("Message history disabled: %v", err)
		} else {
			a.db = db
			archive = store.NewMessageStore(db)
		}
	}

	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	a.session = session.New(session.Options{
		Factory: rtc.NewFactory(rtc.Config{
			ICEServers:      cfg.ICEServers,
			IncludeLoopback: cfg.IncludeLoopback,
		}),
		Logger:            log,
		Blobs:             blobs,
		Archive:           archive,
		Threshold:         cfg.BufferedAmountLowThreshold,
		GatherTimeout:     cfg.GatherTimeout,
		Compact:           cfg.Compact,
		OnSendProgress:    cli.NewProgress(out, "sending", interactive).Update,
		OnReceiveProgress: cli.NewProgress(out, "receiving", interactive).Update,
	})
	return a, nil
}

func (a *app) Close() {
	a.session.Reset()
	if a.db != nil {
		_ = store.Close(a.db)
	}
	_ = a.rl.Close()
}

func (a *app) out() io.Writer {
	return a.rl.Stdout()
}

// readBlob prompts for a pasted description.
func (a *app) readBlob(prompt string) (string, error) {
	a.rl.SetPrompt(prompt)
	defer a.rl.SetPrompt("> ")
	return cli.ReadBlob(a.rl)
}

// chat waits for the channel and runs the console until the user leaves.
// It returns cli.ErrRestart when the user asked to negotiate again.
func (a *app) chat(ctx context.Context) error {
	fmt.Fprintln(a.out(), "Waiting for the peer to connect...")
	if err := cli.WaitConnected(ctx, a.session); err != nil {
		return fmt.Errorf("connection not established: %w", err)
	}
	fmt.Fprintf(a.out(), "Connected. Received files go to %s\n", a.cfg.DownloadDir)
	return cli.NewConsole(a.session, a.rl, a.out(), a.logger).Run(ctx)
}
