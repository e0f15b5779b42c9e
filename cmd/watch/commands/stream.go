package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Follow the hub's live event stream",
	Long: `Connects to the hub and prints every broadcast event until interrupted.

Events are printed one per line, coloured by type. Use --output json to
print the raw payloads instead, for piping into jq or similar tools.`,
	Args: cobra.NoArgs,
	RunE: runStream,
}

func init() {
	rootCmd.AddCommand(streamCmd)
}

func runStream(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := dial(ctx, hubURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	if outputFormat == outputText {
		green.Fprintf(cmd.ErrOrStderr(), "✓ Connected to %s\n", hubURL)
	}

	p := newPrinter(cmd.OutOrStdout(), outputFormat)
	err = readLoop(ctx, conn, func(msg []byte) bool {
		p.Print(msg)
		return true
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
