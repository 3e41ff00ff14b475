package app

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"dirsnap/internal/snap"
)

// ConsoleReporter prints scan progress to a writer, one line per update.
type ConsoleReporter struct {
	w io.Writer
}

// NewConsoleReporter creates a reporter writing to w.
func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{w: w}
}

// Progress prints the running counters.
func (r *ConsoleReporter) Progress(stats snap.Stats) {
	fmt.Fprintf(r.w, "scanned %d entries (%d files, %d dirs, %d links, %d errors)\n",
		stats.Entries, stats.Files, stats.Dirs, stats.Links, stats.Errors)
}

// newReporter picks the progress sink: silent when quiet is set or when
// stderr is not a terminal (cron runs, pipes).
func newReporter(quiet bool) snap.Reporter {
	if quiet || !term.IsTerminal(int(os.Stderr.Fd())) {
		return snap.NopReporter{}
	}
	return NewConsoleReporter(os.Stderr)
}

// PrintSummary writes the end-of-run summary block for a completed
// snapshot.
func PrintSummary(w io.Writer, m *snap.Manifest) {
	fmt.Fprintf(w, "Snapshot %s complete\n", m.SnapshotID)
	if m.SnapshotName != "" {
		fmt.Fprintf(w, "  name:      %s\n", m.SnapshotName)
	}
	fmt.Fprintf(w, "  root:      %s\n", m.RootPath)
	fmt.Fprintf(w, "  entries:   %d (%d files, %d dirs, %d links)\n",
		m.Stats.Entries, m.Stats.Files, m.Stats.Dirs, m.Stats.Links)
	fmt.Fprintf(w, "  size:      %d bytes\n", m.Stats.Size)
	fmt.Fprintf(w, "  errors:    %d\n", m.Stats.Errors)
	fmt.Fprintf(w, "  duration:  %d ms\n", m.ScanDuration)
	fmt.Fprintf(w, "  signature: %s\n", m.Signature)
}

// Compile-time check that ConsoleReporter implements snap.Reporter.
var _ snap.Reporter = (*ConsoleReporter)(nil)
