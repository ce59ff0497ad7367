package cmd

import (
	"errors"
	"fmt"

	"github.com/rudransh-shrivastava/pairlink/internal/cli"
	"github.com/spf13/cobra"
)

var answerCmd = &cobra.Command{
	Use:   "answer [offer]",
	Short: "answer a peer's offer",
	Long:  `join a session by answering the offer printed by "pairlink offer"; the offer is read from the prompt when not given`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		var offer string
		if len(args) == 1 {
			offer = args[0]
		}

		for {
			if offer == "" {
				offer, err = a.readBlob("paste offer> ")
				if err != nil {
					return err
				}
			}

			answer, err := a.session.CreateAnswer(ctx, offer)
			if err != nil {
				return fmt.Errorf("failed to answer: %w", err)
			}
			fmt.Fprintf(a.out(), "Send this answer back to your peer:\n\n%s\n\n", answer)

			err = a.chat(ctx)
			if errors.Is(err, cli.ErrRestart) {
				offer = ""
				continue
			}
			return err
		}
	},
}
