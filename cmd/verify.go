package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"receipt-verifier/config"
	"receipt-verifier/internal/receipt"
)

var errVerificationFailed = errors.New("receipt verification failed")

// newVerifyCommand runs a single verification from the command line and
// prints the result as JSON. It does not need the database or Redis.
func newVerifyCommand(cfg *config.Config) *cobra.Command {
	var username, reference string

	command := &cobra.Command{
		Use:          "verify [receipt-url]",
		Short:        "Verify a Cash App web receipt against a payment claim",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			verifier := newVerifier(cfg, logger, nil)

			result := verifier.Verify(ctx, receipt.Request{
				Username:   username,
				Reference:  reference,
				ReceiptURL: args[0],
			})

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}

			if !result.OK() {
				return errVerificationFailed
			}
			return nil
		},
	}

	command.Flags().StringVarP(&username, "username", "u", "", "Cash App username the payment was sent to")
	command.Flags().StringVarP(&reference, "reference", "r", "", "payment reference expected in the receipt notes")

	return command
}
