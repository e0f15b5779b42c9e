package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/urmzd/telemetry-hub/pkg/mirror"
)

var (
	redisAddr    string
	redisChannel string
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Follow events from the hub's Redis mirror",
	Long: `Subscribes to the Redis channel a hub mirrors its broadcasts to and prints
every event, without opening a connection to the hub itself.`,
	Args: cobra.NoArgs,
	RunE: runMirror,
}

func init() {
	mirrorCmd.Flags().StringVar(&redisAddr, "redis", "localhost:6379", "Redis address")
	mirrorCmd.Flags().StringVar(&redisChannel, "channel", mirror.DefaultChannel, "Mirror channel")
	rootCmd.AddCommand(mirrorCmd)
}

func runMirror(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := mirror.NewRedis(&redis.Options{Addr: redisAddr}, redisChannel)
	if err != nil {
		return err
	}
	defer r.Close()

	err = follow(ctx, r, newPrinter(cmd.OutOrStdout(), outputFormat))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func follow(ctx context.Context, r *mirror.Redis, p *printer) error {
	sub, err := r.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	for payload := range sub.Payloads {
		p.Print(payload)
	}
	return ctx.Err()
}
