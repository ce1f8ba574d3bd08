// Package display renders monitor status to a terminal.
//
// On a TTY the whole table is redrawn after each change. Elsewhere one line
// is written per status event so output stays readable in logs and pipes.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"

	"github.com/jpalmerr/pulsewatch/internal/status"
)

// clearScreen moves the cursor home and clears the terminal.
const clearScreen = "\033[H\033[2J"

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Table writes status entries as a table.
type Table struct {
	out   io.Writer
	color bool
}

// NewTable creates a table renderer. Color escapes are only emitted when
// useColor is true.
func NewTable(out io.Writer, useColor bool) *Table {
	return &Table{out: out, color: useColor}
}

// Render writes one table with a row per entry in index order.
func (t *Table) Render(entries []status.Entry) {
	tw := tablewriter.NewWriter(t.out)
	tw.SetHeader([]string{"#", "URL", "Status", "Updated"})
	tw.SetAutoWrapText(false)
	tw.SetAutoFormatHeaders(false)

	for _, e := range entries {
		row := []string{
			fmt.Sprintf("%d", e.Index+1),
			e.URL,
			e.Status.String(),
			formatTime(e.UpdatedAt),
		}
		if !t.color {
			tw.Append(row)
			continue
		}
		c := toneColors(e.Status.Tone())
		tw.Rich(row, []tablewriter.Colors{{}, {}, c, {}})
	}

	tw.Render()
}

func toneColors(tone status.Tone) tablewriter.Colors {
	switch tone {
	case status.TonePositive:
		return tablewriter.Colors{tablewriter.FgGreenColor}
	case status.ToneNegative:
		return tablewriter.Colors{tablewriter.Bold, tablewriter.FgRedColor}
	case status.TonePending:
		return tablewriter.Colors{tablewriter.FgYellowColor}
	default:
		return tablewriter.Colors{}
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("15:04:05")
}

// Live keeps a terminal view in sync with status events.
//
// In redraw mode every event repaints the full table. In line mode each
// resolved event is printed as a single line and transient states are
// skipped.
type Live struct {
	mu      sync.Mutex
	out     io.Writer
	redraw  bool
	table   *Table
	entries []status.Entry
	header  string

	ok, bad, pending *color.Color
}

// NewLive creates a live view. When redraw is true the table is repainted
// on each update; otherwise events are written line by line.
func NewLive(out io.Writer, redraw, useColor bool, header string) *Live {
	l := &Live{
		out:     out,
		redraw:  redraw,
		table:   NewTable(out, useColor),
		header:  header,
		ok:      color.New(color.FgGreen),
		bad:     color.New(color.FgRed, color.Bold),
		pending: color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{l.ok, l.bad, l.pending} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return l
}

// Reset replaces the view contents, typically with a store snapshot.
func (l *Live) Reset(entries []status.Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries[:0], entries...)
	if l.redraw {
		l.paint()
	}
}

// Apply records one event and updates the output.
func (l *Live) Apply(ev status.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ev.Index >= 0 && ev.Index < len(l.entries) {
		l.entries[ev.Index] = ev.Entry()
	}

	if l.redraw {
		l.paint()
		return
	}
	if ev.Status.State != status.StateResolved {
		return
	}
	l.line(ev)
}

// Summary prints the final table followed by a healthy/total count.
func (l *Live) Summary() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.table.Render(l.entries)

	healthy := 0
	for _, e := range l.entries {
		if e.Status.Healthy() {
			healthy++
		}
	}
	c := l.ok
	if healthy < len(l.entries) {
		c = l.bad
	}
	_, _ = c.Fprintf(l.out, "%d/%d healthy\n", healthy, len(l.entries))
}

func (l *Live) paint() {
	var b strings.Builder
	b.WriteString(clearScreen)
	if l.header != "" {
		b.WriteString(l.header)
		b.WriteString("\n\n")
	}
	_, _ = io.WriteString(l.out, b.String())
	l.table.Render(l.entries)
}

func (l *Live) line(ev status.Event) {
	c := l.pending
	switch ev.Status.Tone() {
	case status.TonePositive:
		c = l.ok
	case status.ToneNegative:
		c = l.bad
	}
	_, _ = fmt.Fprintf(l.out, "%s  %-40s  %s\n",
		ev.At.Local().Format(time.TimeOnly), ev.URL, c.Sprint(ev.Status.String()))
}
