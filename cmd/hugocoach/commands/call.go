package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veldie123/hugoherbots.com-sub000/pkg/audioroom"
	"github.com/Veldie123/hugoherbots.com-sub000/pkg/cli"
)

var (
	callTechnique string
	callAudioFile string
	callRecord    string
	callPlain     bool
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Live audio role-play call",
	Long: `Join a live audio role-play call against the simulated customer.

Microphone audio is read from an Ogg/Opus file and played into the room
in real time; the customer's replies can be recorded with --record.

Press Ctrl+C to hang up.`,
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVar(&callTechnique, "technique", "", "technique id (defaults to the context's default)")
	callCmd.Flags().StringVar(&callAudioFile, "audio-file", "", "Ogg/Opus file used as microphone input (required)")
	callCmd.Flags().StringVar(&callRecord, "record", "", "record remote audio to this Ogg/Opus file")
	callCmd.Flags().BoolVar(&callPlain, "plain", false, "plain line output instead of the live view")
	callCmd.MarkFlagRequired("audio-file")
}

const (
	callViewWidth  = 100
	callViewHeight = 26
)

func runCall(cmd *cobra.Command, args []string) error {
	cctx, err := getContext()
	if err != nil {
		return err
	}
	technique := callTechnique
	if technique == "" {
		technique = cctx.DefaultTechnique
	}
	if technique == "" {
		return fmt.Errorf("no technique given; use --technique or set a context default")
	}

	client := newClient(cctx)
	creds, err := client.AudioCredentials(cmd.Context(), technique)
	if err != nil {
		return fmt.Errorf("audio credentials: %w", err)
	}

	var sink audioroom.AudioSink
	if callRecord != "" {
		oggSink, err := audioroom.NewOggSink(callRecord)
		if err != nil {
			return err
		}
		sink = oggSink
	}

	// Route logs into the live view so the frame is not torn by slog
	// writing to stderr.
	logs := cli.NewLogWriter(200)
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s := audioroom.NewSession(
		audioroom.NewWebRTCTransport(audioroom.WithTransportLogger(logger)),
		audioroom.NewOggSource(callAudioFile),
		sink,
		audioroom.WithLogger(logger),
	)

	var (
		localSpeaking  atomic.Bool
		remoteSpeaking atomic.Bool
		state          atomic.Value
	)
	state.Store(audioroom.StateIdle)

	done := make(chan struct{})
	unsubState := s.OnStateChange(func(st audioroom.State) {
		state.Store(st)
		logger.Info("call state", "state", st.String())
		if st == audioroom.StateDisconnected || st == audioroom.StateError {
			select {
			case <-done:
			default:
				close(done)
			}
		}
	})
	defer unsubState()
	unsubSpeakers := s.OnSpeakers(func(u audioroom.SpeakerUpdate) {
		localSpeaking.Store(u.LocalSpeaking)
		remoteSpeaking.Store(u.RemoteSpeaking)
	})
	defer unsubSpeakers()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Connect(ctx, audioroom.Credentials{URL: creds.URL, Token: creds.Token}); err != nil {
		return fmt.Errorf("join call: %w", err)
	}

	started := time.Now()
	if callPlain {
		cli.PrintInfo("Connected. Press Ctrl+C to hang up.")
		select {
		case <-ctx.Done():
		case <-done:
		}
	} else {
		runCallView(ctx, done, technique, started, &state, &localSpeaking, &remoteSpeaking, logs)
	}

	s.Disconnect()
	if st, ok := state.Load().(audioroom.State); ok && st == audioroom.StateError {
		return fmt.Errorf("call ended: connection lost")
	}
	cli.PrintSuccess("Call ended after %s", cli.FormatDuration(int(time.Since(started).Milliseconds())))
	return nil
}

// runCallView redraws the live call frame until the call ends or the
// user interrupts.
func runCallView(ctx context.Context, done <-chan struct{},
	technique string, started time.Time,
	state *atomic.Value, local, remote *atomic.Bool, logs *cli.LogWriter) {

	frame := cli.Frame{
		Styles: cli.NewStyles(cli.DefaultTheme),
		Title:  "hugocoach call",
		Help:   "Ctrl+C to hang up",
		Sections: []cli.Section{
			{
				Label: " Status ",
				Content: func() []string {
					st, _ := state.Load().(audioroom.State)
					return []string{
						fmt.Sprintf("technique: %s", technique),
						fmt.Sprintf("state: %s", st),
						fmt.Sprintf("elapsed: %s", cli.FormatDuration(int(time.Since(started).Milliseconds()))),
						fmt.Sprintf("you speaking: %v   customer speaking: %v", local.Load(), remote.Load()),
					}
				},
			},
			{
				Label:   " Log ",
				Content: logs.Lines,
			},
		},
	}

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		st, _ := state.Load().(audioroom.State)
		frame.Status = st.String()
		fmt.Print("\033[H\033[2J")
		fmt.Println(frame.Render(callViewWidth, callViewHeight))
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
		}
	}
}
