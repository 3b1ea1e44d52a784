package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/glassbead-io/prism/capture"
	"github.com/glassbead-io/prism/cli/render"
	"github.com/glassbead-io/prism/log"
	"github.com/glassbead-io/prism/metrics"
	"github.com/glassbead-io/prism/session"
	"github.com/glassbead-io/prism/types"
)

// ReplayCommand returns the replay command: re-dispatch a captured event
// stream through the same accumulation and rendering as a live session.
func ReplayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Replay a captured event stream",
		ArgsUsage: "<file>",
		Action:    replayAction,
	}
}

func replayAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("replay requires a capture file argument", exitUsage)
	}

	f, err := os.Open(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("cannot open capture file: %v", err), exitUsage)
	}
	defer func() { _ = f.Close() }()

	meta := &types.SessionMeta{
		SessionID: "replay",
		Prompt:    path,
	}
	collector := metrics.NewCollector(meta.SessionID, "capture")
	logger := log.NewLogger(meta).WithOutput(io.Discard)

	printer := render.NewStreamPrinter(os.Stdout)
	var accumulated string
	state := session.NewState()
	dispatcher := session.NewDispatcher(state, session.Handlers{
		OnThought: printer.Thought,
		OnCode: func(chunk, acc string) {
			accumulated = acc
			printer.Code(chunk)
		},
		OnData: printer.Data,
		OnError: func(err error) {
			printer.Error(err)
		},
	}, logger, collector)

	count := 0
	err = capture.Replay(f, func(ev types.Event) {
		count++
		dispatcher.Dispatch(ev)
	})
	printer.CodeDone(accumulated)

	if err != nil {
		var frameErr *capture.FrameError
		if errors.As(err, &frameErr) && frameErr.Kind == capture.FrameErrorPartial {
			fmt.Fprintf(os.Stderr, "Warning: capture file is truncated after %d events\n", count)
		} else {
			return cli.Exit(fmt.Sprintf("replay failed after %d events: %v", count, err), exitStream)
		}
	}

	fmt.Printf("\nreplayed %d events\n", count)
	return nil
}
