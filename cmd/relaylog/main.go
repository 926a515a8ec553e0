// Command relaylog prints a relayd event journal in human-readable
// form.
//
// Journal files are written by relayd when started with the --journal
// flag (or a journal path in the configuration file).
//
// Usage:
//
//	relaylog [flags] <file.cbor>
//
// Flags:
//
//	--run string    only events of one daemon run (UUID, prefix ok via full match)
//	--kind string   only one event kind: opened, lost, push, marker, shutdown
//	--channel int   only marker events for one channel
//
// Examples:
//
//	# Everything
//	relaylog /var/log/relayd.cbor
//
//	# Only the pushes
//	relaylog --kind push /var/log/relayd.cbor
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/schaapsound/relayd/pkg/journal"
)

func main() {
	var (
		run     = flag.String("run", "", "only events of one daemon run")
		kind    = flag.String("kind", "", "only one event kind: opened, lost, push, marker, shutdown")
		channel = flag.Int("channel", 0, "only marker events for one channel")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: relaylog [flags] <file.cbor>")
		os.Exit(2)
	}

	filter := journal.Filter{RunID: *run, Channel: *channel}
	if *kind != "" {
		k, err := parseKind(*kind)
		if err != nil {
			fmt.Fprintf(os.Stderr, "relaylog: %v\n", err)
			os.Exit(2)
		}
		filter.Kind = &k
	}

	reader, err := journal.NewFilteredReader(flag.Arg(0), filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "relaylog: %v\n", err)
		os.Exit(1)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "relaylog: %v\n", err)
			os.Exit(1)
		}
		formatEvent(os.Stdout, event)
	}
}

// parseKind maps the CLI name to the journal kind.
func parseKind(name string) (journal.Kind, error) {
	switch name {
	case "opened":
		return journal.KindDeviceOpened, nil
	case "lost":
		return journal.KindDeviceLost, nil
	case "push":
		return journal.KindPush, nil
	case "marker":
		return journal.KindMarker, nil
	case "shutdown":
		return journal.KindShutdown, nil
	default:
		return 0, fmt.Errorf("unknown kind %q", name)
	}
}

// formatEvent writes one journal record as a single line.
func formatEvent(w io.Writer, event journal.Event) {
	ts := event.Timestamp.UTC().Format(time.RFC3339Nano)
	runID := event.RunID
	if len(runID) >= 8 {
		runID = runID[:8]
	}

	fmt.Fprintf(w, "%s [run:%s] %-13s", ts, runID, event.Kind)
	switch event.Kind {
	case journal.KindPush, journal.KindDeviceLost:
		fmt.Fprintf(w, " mask=%08b", event.Mask)
	case journal.KindMarker:
		fmt.Fprintf(w, " channel=%d", event.Channel)
	}
	if event.Detail != "" {
		fmt.Fprintf(w, " %s", event.Detail)
	}
	fmt.Fprintln(w)
}
