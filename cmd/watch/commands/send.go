package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/urmzd/telemetry-hub/pkg/event"
)

var sendTimeout time.Duration

var sendCmd = &cobra.Command{
	Use:   "send <command> [name=value...]",
	Short: "Send a command and wait for its result",
	Long: `Sends a command to the hub and prints its results until a terminal one
(success or error) arrives.

Parameter values are parsed as JSON, so interval=2 is a number and
enabled=true a boolean; anything that is not valid JSON is sent as a string.`,
	Example: `  watch send get_status
  watch send set_update_interval interval=0.5
  watch send set_sensor_value sensor_id=temperature value=21.5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 30*time.Second, "How long to wait for a terminal result")
	rootCmd.AddCommand(sendCmd)
}

// errCommandFailed is returned when the command's terminal result is an error.
var errCommandFailed = errors.New("command failed")

func runSend(cmd *cobra.Command, args []string) error {
	params, err := parseParams(args[1:])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), sendTimeout)
	defer cancel()

	return send(ctx, hubURL, args[0], params, newPrinter(cmd.OutOrStdout(), outputFormat))
}

func send(ctx context.Context, url, name string, params map[string]event.Value, p *printer) error {
	payload, err := json.Marshal(struct {
		Command    string                 `json:"command"`
		Parameters map[string]event.Value `json:"parameters"`
	}{name, params})
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}

	conn, err := dial(ctx, url)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}

	var outcome error
	err = readLoop(ctx, conn, func(msg []byte) bool {
		e, decodeErr := event.Decode(msg)
		if decodeErr != nil {
			var refusal struct {
				Error string `json:"error"`
			}
			if json.Unmarshal(msg, &refusal) == nil && refusal.Error != "" {
				p.Print(msg)
				outcome = errors.New(refusal.Error)
				return false
			}
			return true
		}

		switch t := e.(type) {
		case *event.Command:
			if t.Name == name {
				p.Print(msg)
			}
		case *event.CommandResult:
			if t.Result.Command != name {
				return true
			}
			p.Print(msg)
			if t.Result.Status == event.StatusError {
				outcome = fmt.Errorf("%w: %s", errCommandFailed, t.Result.Message)
			}
			return !t.Result.Status.Terminal()
		}
		return true
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("no result for %s within the timeout", name)
	}
	if err != nil {
		return err
	}
	return outcome
}

// parseParams turns name=value arguments into command parameters. Values
// that are not valid JSON are taken as strings.
func parseParams(args []string) (map[string]event.Value, error) {
	params := make(map[string]event.Value, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected name=value", arg)
		}

		var v event.Value
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = event.String(raw)
		}
		params[name] = v
	}
	return params, nil
}
