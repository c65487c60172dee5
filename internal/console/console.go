package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/aescanero/autocal/pkg/ports"
)

// Console writes calibration progress to a terminal
type Console struct {
	mu  sync.Mutex
	out io.Writer

	box     lipgloss.Style
	header  lipgloss.Style
	inSpec  lipgloss.Style
	pending lipgloss.Style
	failed  lipgloss.Style
	dim     lipgloss.Style
}

// New creates a console writing to out. Colours follow the capabilities
// of out, so a plain buffer gets plain text.
func New(out io.Writer) *Console {
	r := lipgloss.NewRenderer(out)
	return &Console{
		out: out,
		box: r.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#7aa2f7")).
			Padding(0, 1),
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff9e64")),
		inSpec:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#9ece6a")),
		pending: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#e0af68")),
		failed:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#f7768e")),
		dim:     r.NewStyle().Foreground(lipgloss.Color("#565f89")),
	}
}

// Attach subscribes the console to the calibration topic of bus
func (c *Console) Attach(ctx context.Context, bus ports.EventBus) error {
	return bus.Subscribe(ctx, ports.TopicCalibration, c.Handle)
}

// ArrowChart draws the calibration order, each node indented one step
// further than its predecessor.
func (c *Console) ArrowChart(header string, nodes []string) string {
	lines := []string{c.header.Render(header)}
	for i, n := range nodes {
		lines = append(lines, strings.Repeat(" ", 2*i)+"↪ "+n)
	}
	return c.box.Render(strings.Join(lines, "\n"))
}

// Handle renders one event
func (c *Console) Handle(_ context.Context, event ports.Event) error {
	var line string
	switch event.Type {
	case ports.EventRunStarted:
		line = c.ArrowChart("Calibration order for "+str(event.Data["target"]), strs(event.Data["order"]))
	case ports.EventNodeInspected:
		if str(event.Data["status"]) == "in_spec" {
			line = " ✔  " + c.inSpec.Render("Node "+event.Node+" in spec")
		} else {
			line = " ✘  " + c.pending.Render("Calibration required for Node "+event.Node)
		}
	case ports.EventNodeCalibrating:
		line = c.dim.Render(" …  measuring " + event.Node)
	case ports.EventNodeCalibrated:
		line = " ✔  " + c.inSpec.Render("Node "+event.Node+" calibrated") + c.dim.Render(" "+str(event.Data["data_path"]))
	case ports.EventNodeFailed:
		line = " ✘  " + c.failed.Render(fmt.Sprintf("Node %s %s: %s", event.Node, str(event.Data["outcome"]), str(event.Data["error"])))
	case ports.EventRunCompleted:
		line = c.box.Render(c.inSpec.Render("Calibration of " + str(event.Data["target"]) + " completed"))
	case ports.EventRunCancelled:
		line = c.box.Render(c.pending.Render("Calibration of " + str(event.Data["target"]) + " cancelled"))
	case ports.EventRunFailed:
		line = c.box.Render(c.failed.Render("Calibration of " + str(event.Data["target"]) + " failed"))
	default:
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.out, line)
	return err
}

func str(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// strs accepts both in-process string slices and slices decoded from JSON.
func strs(v interface{}) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []interface{}:
		out := make([]string, len(s))
		for i, e := range s {
			out[i] = str(e)
		}
		return out
	}
	return nil
}
