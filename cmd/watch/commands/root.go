package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	outputText = "text"
	outputJSON = "json"
)

var (
	hubURL       string
	outputFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "watch",
	Short: "Telemetry hub client",
	Long: `watch connects to a running telemetry hub to follow its event stream
and to send commands to the producers registered with it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat != outputText && outputFormat != outputJSON {
			return fmt.Errorf("invalid --output %q: must be %q or %q", outputFormat, outputText, outputJSON)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	err := rootCmd.Execute()
	if err != nil {
		red.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// SetVersion sets the version reported by --version
func SetVersion(v string) {
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&hubURL, "url", "ws://localhost:8000/ws", "WebSocket endpoint of the hub")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", outputText, "Output format (text or json)")
}
