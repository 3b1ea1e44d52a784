package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"github.com/glassbead-io/prism/adapter"
	"github.com/glassbead-io/prism/capture"
	"github.com/glassbead-io/prism/cli/render"
	"github.com/glassbead-io/prism/cli/tui"
	"github.com/glassbead-io/prism/log"
	"github.com/glassbead-io/prism/metrics"
	"github.com/glassbead-io/prism/session"
	"github.com/glassbead-io/prism/transform"
	"github.com/glassbead-io/prism/types"
)

// notifyTimeout bounds adapter publishing after the stream ends.
const notifyTimeout = 30 * time.Second

// ChatCommand returns the chat command: send a prompt and stream the
// response events to completion.
func ChatCommand() *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Send a prompt and stream the assistant's response",
		ArgsUsage: "<message>",
		Flags: append(BackendFlags(),
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show a live interactive view of the session",
			},
			&cli.StringFlag{
				Name:  "capture",
				Usage: "Record decoded events to a file for later replay",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Write the prepared component source to a file",
			},
			&cli.StringFlag{
				Name:  "session-id",
				Usage: "Session identifier (default: generated)",
			},
		),
		Action: chatAction,
	}
}

func chatAction(c *cli.Context) error {
	message := c.Args().First()
	if message == "" {
		return cli.Exit("chat requires a message argument", exitUsage)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	backend, err := buildClient(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	sessionID := c.String("session-id")
	if sessionID == "" {
		sessionID = newSessionID()
	}
	meta := &types.SessionMeta{
		SessionID: sessionID,
		Prompt:    message,
	}

	backendURL := c.String("backend")
	if backendURL == "" {
		backendURL = cfg.Backend.URL
	}
	collector := metrics.NewCollector(sessionID, backendURL)
	logger := log.NewLogger(meta)
	sugar := logger.Sugar()

	// Capture sink: --capture wins over config
	capturePath := c.String("capture")
	if capturePath == "" {
		capturePath = cfg.Capture.Path
	}
	var sink session.EventSink
	if capturePath != "" {
		f, err := os.Create(capturePath)
		if err != nil {
			return cli.Exit(fmt.Sprintf("cannot create capture file: %v", err), exitUsage)
		}
		defer func() { _ = f.Close() }()
		sink = capture.NewWriter(f)
	}

	notify, err := buildAdapter(cfg.Adapter)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	if notify != nil {
		defer func() { _ = notify.Close() }()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	start := time.Now()
	var runErr error
	var sess *session.Session

	if c.Bool("tui") {
		sess, runErr = runChatTUI(ctx, cancel, backend, meta, collector, sink, logger, message)
	} else {
		sess, runErr = runChatPlain(ctx, backend, meta, collector, sink, logger, message)
	}
	duration := time.Since(start)

	// Prepare the final artifact from whatever accumulated, even after a
	// failed stream; partial artifacts are still renderable.
	var artifact transform.Artifact
	if sess != nil {
		artifact = transform.Prepare(sess.State().CodeText(), sess.State().LatestData(), nil)
		collector.IncArtifactsPrepared()

		if out := c.String("out"); out != "" && artifact.Source != "" {
			if err := os.WriteFile(out, []byte(artifact.Source), 0o644); err != nil {
				sugar.Warnf("cannot write artifact to %s: %v", out, err)
			}
		}
	}

	if notify != nil && sess != nil {
		notifyCtx, notifyCancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer notifyCancel()
		event := completionEvent(meta, collector.Snapshot(), sess, artifact, runErr, duration)
		if err := notify.Publish(notifyCtx, event); err != nil {
			sugar.Warnf("completion notification failed: %v", err)
		}
	}

	switch {
	case runErr == nil:
		return cli.Exit("", exitSuccess)
	case ctx.Err() != nil:
		return cli.Exit("canceled", exitCanceled)
	default:
		return cli.Exit(fmt.Sprintf("stream failed: %v", runErr), exitStream)
	}
}

// runChatPlain streams with line-oriented output.
func runChatPlain(ctx context.Context, backend chatBackend, meta *types.SessionMeta, collector *metrics.Collector, sink session.EventSink, logger *log.Logger, message string) (*session.Session, error) {
	printer := render.NewStreamPrinter(os.Stdout)

	var accumulated string
	sess, err := session.New(session.Config{
		Meta: meta,
		Handlers: session.Handlers{
			OnThought: printer.Thought,
			OnCode: func(chunk, acc string) {
				accumulated = acc
				printer.Code(chunk)
			},
			OnData: printer.Data,
			OnError: func(err error) {
				printer.Error(err)
			},
			OnComplete: func(err error) {
				if err == nil {
					printer.CodeDone(accumulated)
				}
			},
		},
		Collector: collector,
		Sink:      sink,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	body, err := backend.Chat(ctx, message)
	if err != nil {
		return sess, err
	}

	return sess, sess.Run(ctx, body)
}

// runChatTUI streams into a Bubble Tea program.
func runChatTUI(ctx context.Context, cancel context.CancelFunc, backend chatBackend, meta *types.SessionMeta, collector *metrics.Collector, sink session.EventSink, logger *log.Logger, message string) (*session.Session, error) {
	p := tea.NewProgram(tui.NewChatModel(message), tea.WithAltScreen())

	sess, err := session.New(session.Config{
		Meta: meta,
		Handlers: session.Handlers{
			OnThought: func(content string) {
				p.Send(tui.ThoughtMsg{Content: content})
			},
			OnCode: func(_, accumulated string) {
				p.Send(tui.CodeMsg{Accumulated: accumulated})
			},
			OnData: func(result types.QueryResult) {
				p.Send(tui.DataMsg{Result: result})
			},
			OnError: func(err error) {
				p.Send(tui.StreamErrMsg{Err: err})
			},
			OnComplete: func(err error) {
				p.Send(tui.DoneMsg{Err: err})
			},
		},
		Collector: collector,
		Sink:      sink,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	body, err := backend.Chat(ctx, message)
	if err != nil {
		return sess, err
	}

	runDone := make(chan error, 1)
	go func() {
		runDone <- sess.Run(ctx, body)
	}()

	// Blocks until the user quits the view.
	if _, err := p.Run(); err != nil {
		cancel()
		<-runDone
		return sess, err
	}

	// Quitting the view abandons an unfinished stream.
	cancel()
	return sess, <-runDone
}

// chatBackend is the client surface the chat command needs.
type chatBackend interface {
	Chat(ctx context.Context, message string) (io.ReadCloser, error)
}

// completionEvent builds the adapter payload for a finished session.
func completionEvent(meta *types.SessionMeta, snap metrics.Snapshot, sess *session.Session, artifact transform.Artifact, runErr error, duration time.Duration) *adapter.SessionCompletedEvent {
	outcome := "success"
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		outcome = "canceled"
	default:
		outcome = "transport_error"
	}

	event := &adapter.SessionCompletedEvent{
		ContractVersion: types.Version,
		EventType:       "session_completed",
		SessionID:       meta.SessionID,
		Prompt:          meta.Prompt,
		Outcome:         outcome,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		EventCount:      snap.EventsDecoded,
		CodeBytes:       int64(len(sess.State().CodeText())),
		DurationMs:      duration.Milliseconds(),
	}
	if meta.ConversationID != nil {
		event.ConversationID = *meta.ConversationID
	}
	if data := sess.State().LatestData(); data != nil {
		event.RowCount = data.RowCount
		event.Shape = string(artifact.Shape)
	}
	return event
}
