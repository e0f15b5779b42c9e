package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/urmzd/telemetry-hub/pkg/event"
)

func init() {
	// Users can disable colour with the NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green   = color.New(color.FgGreen)
	yellow  = color.New(color.FgYellow)
	red     = color.New(color.FgRed, color.Bold)
	cyan    = color.New(color.FgCyan)
	magenta = color.New(color.FgMagenta)
	faint   = color.New(color.Faint)
)

// printer renders hub payloads, one line each.
type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) *printer {
	return &printer{w: w, format: format}
}

// Print renders one raw payload received from the hub. Payloads that are
// not events, such as refusals addressed to this client, are printed as
// errors or verbatim.
func (p *printer) Print(raw []byte) {
	if p.format == outputJSON {
		fmt.Fprintln(p.w, strings.TrimSpace(string(raw)))
		return
	}

	e, err := event.Decode(raw)
	if err != nil {
		var refusal struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &refusal) == nil && refusal.Error != "" {
			red.Fprintf(p.w, "✗ %s\n", refusal.Error)
			return
		}
		fmt.Fprintln(p.w, strings.TrimSpace(string(raw)))
		return
	}
	p.Event(e)
}

// Event renders a decoded event.
func (p *printer) Event(e event.Event) {
	faint.Fprintf(p.w, "%s ", e.Time().Local().Format(time.TimeOnly))

	switch t := e.(type) {
	case *event.Telemetry:
		cyan.Fprintf(p.w, "%-14s", "data")
		fmt.Fprintf(p.w, " %s = %s\n", t.ID, t.Value)

	case *event.Command:
		yellow.Fprintf(p.w, "%-14s", "command")
		fmt.Fprintf(p.w, " %s%s\n", t.Name, formatParams(t.Parameters))

	case *event.CommandResult:
		c := green
		switch t.Result.Status {
		case event.StatusPending:
			c = yellow
		case event.StatusError:
			c = red
		}
		c.Fprintf(p.w, "%-14s", t.Result.Status)
		fmt.Fprintf(p.w, " %s: %s\n", t.Result.Command, t.Result.Message)

	case *event.DeviceMessage:
		magenta.Fprintf(p.w, "%-14s", "device")
		body, _ := json.Marshal(t.Value)
		fmt.Fprintf(p.w, " %s %s\n", t.ID, body)
	}
}

func formatParams(params map[string]event.Value) string {
	if len(params) == 0 {
		return ""
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, " %s=%s", name, params[name])
	}
	return b.String()
}
