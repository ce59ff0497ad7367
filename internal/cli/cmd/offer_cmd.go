package cmd

import (
	"errors"
	"fmt"

	"github.com/rudransh-shrivastava/pairlink/internal/cli"
	"github.com/spf13/cobra"
)

var offerCmd = &cobra.Command{
	Use:   "offer",
	Short: "start a session and print an offer to share",
	Long:  `start a session as the offering side, print the offer for the peer, then wait for their answer to be pasted`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		for {
			a.logger.Debugf("Gathering candidates for offer")
			offer, err := a.session.CreateOffer(ctx)
			if err != nil {
				return fmt.Errorf("failed to create offer: %w", err)
			}
			fmt.Fprintf(a.out(), "Send this offer to your peer:\n\n%s\n\n", offer)

			answer, err := a.readBlob("paste answer> ")
			if err != nil {
				return err
			}
			if err := a.session.SetRemoteAnswer(answer); err != nil {
				return err
			}

			err = a.chat(ctx)
			if errors.Is(err, cli.ErrRestart) {
				continue
			}
			return err
		}
	},
}
