package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Veldie123/hugoherbots.com-sub000/pkg/audioroom"
	"github.com/Veldie123/hugoherbots.com-sub000/pkg/avatar"
	"github.com/Veldie123/hugoherbots.com-sub000/pkg/cli"
	"github.com/Veldie123/hugoherbots.com-sub000/pkg/hugoapi"
	"github.com/Veldie123/hugoherbots.com-sub000/pkg/modality"
	"github.com/Veldie123/hugoherbots.com-sub000/pkg/session"
	"github.com/Veldie123/hugoherbots.com-sub000/pkg/transcript"
)

var (
	chatTechnique string
	chatMode      string
	chatExpert    bool
	chatAudioFile string
	chatNoStore   bool
	chatRequest   string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive coaching session",
	Long: `Start an interactive coaching session.

The session opens in chat; replies stream token by token. Slash commands
switch the conversation surface:

  /audio    switch to a live audio call (requires --audio-file)
  /video    switch to the video coach
  /chat     return to plain chat
  /mute     mute the microphone        /unmute   unmute
  /eval     request an evaluation of the conversation so far
  /end      end the session
  /quit     leave

Everything else is sent to the simulated customer.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatTechnique, "technique", "", "technique id (defaults to the context's default)")
	chatCmd.Flags().StringVar(&chatMode, "mode", "", "practice mode (defaults to the context's default)")
	chatCmd.Flags().BoolVar(&chatExpert, "expert", false, "practice as expert")
	chatCmd.Flags().StringVar(&chatAudioFile, "audio-file", "", "Ogg/Opus file used as microphone for /audio")
	chatCmd.Flags().BoolVar(&chatNoStore, "no-store", false, "do not store a transcript")
	chatCmd.Flags().StringVar(&chatRequest, "request", "", "session parameters from a YAML/JSON file (flags override)")
}

var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(cli.DefaultTheme.Primary)
	coachStyle  = lipgloss.NewStyle().Foreground(cli.DefaultTheme.Primary)
	dimStyle    = lipgloss.NewStyle().Foreground(cli.DefaultTheme.Dim)
)

// chatSession bundles everything one interactive session needs.
type chatSession struct {
	client     *hugoapi.Client
	lifecycle  *session.Lifecycle
	controller *modality.Controller
	params     hugoapi.SessionParams

	// audioSession is the live audio session while audio is active, kept
	// so /mute can reach it through the controller abstraction.
	audioSession *audioroom.Session
}

func runChat(cmd *cobra.Command, args []string) error {
	cctx, err := getContext()
	if err != nil {
		return err
	}
	client := newClient(cctx)

	var params hugoapi.SessionParams
	if chatRequest != "" {
		if err := cli.LoadRequest(chatRequest, &params); err != nil {
			return err
		}
	}
	if chatTechnique != "" {
		params.TechniqueID = chatTechnique
	}
	if chatMode != "" {
		params.Mode = chatMode
	}
	params.Expert = params.Expert || chatExpert || cctx.Expert
	params.Modality = string(modality.Chat)
	if params.ViewMode == "" {
		params.ViewMode = cctx.GetExtra("view_mode")
	}
	if params.TechniqueID == "" {
		params.TechniqueID = cctx.DefaultTechnique
	}
	if params.Mode == "" {
		params.Mode = cctx.DefaultMode
	}
	if params.TechniqueID == "" {
		return fmt.Errorf("no technique given; use --technique or set a context default")
	}

	var opts []session.LifecycleOption
	if !chatNoStore {
		store, err := openTranscriptStore()
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, session.WithSink(transcript.NewSink(store)))
	}

	cs := &chatSession{
		client:    client,
		lifecycle: session.NewLifecycle(client, opts...),
		params:    params,
	}
	cs.controller = modality.NewController(cs.audioFactory(cctx), cs.videoFactory(cctx))
	defer cs.controller.Shutdown()

	cli.PrintInfo("Technique %s, mode %s. Type /quit to leave.", params.TechniqueID, params.Mode)

	// The coach opens the conversation.
	if err := cs.stream(cmd.Context(), ""); err != nil {
		return err
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("you> ") + " ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := cs.command(cmd.Context(), line)
			if err != nil {
				cli.PrintError("%v", err)
			}
			if quit {
				break
			}
			continue
		}
		if err := cs.stream(cmd.Context(), line); err != nil {
			cli.PrintError("%v", err)
		}
	}
	return cs.end(cmd.Context())
}

// stream sends text (or opens the session when text is empty) and prints
// the streamed reply. It blocks until the reply is complete.
func (cs *chatSession) stream(ctx context.Context, text string) error {
	id, active := cs.lifecycle.ID()

	var buf session.TokenBuffer
	fmt.Print(coachStyle.Render("coach> ") + " ")
	cb := hugoapi.StreamCallbacks{
		OnSession: cs.lifecycle.Adopt,
		OnToken: func(token string) {
			fmt.Print(token)
			buf.Append(token)
		},
		OnDone: func(meta *hugoapi.DoneMeta) {
			fmt.Println()
			reply := buf.Text()
			if log := cs.lifecycle.Log(); log != nil {
				buf.Flush(log, session.RoleCustomer)
			}
			if meta != nil && meta.Onboarding != nil && !meta.Onboarding.Complete {
				if item := meta.Onboarding.NextItem; item != nil {
					fmt.Println(dimStyle.Render(fmt.Sprintf("next: %s (%s)", item.Name, item.Key)))
				}
			}
			if reply != "" {
				if err := cs.controller.SpeakReply(ctx, reply); err != nil {
					cli.PrintWarning("avatar speak failed: %v", err)
				}
			}
		},
		OnError: func(err error) {
			fmt.Println()
			cli.PrintError("stream failed: %v", err)
		},
	}

	var (
		h   *hugoapi.Handle
		err error
	)
	if !active {
		h, err = cs.client.StartStream(ctx, cs.params, cb)
	} else {
		h, err = cs.client.SendStream(ctx, id, text, cb)
	}
	if err != nil {
		fmt.Println()
		if errors.Is(err, hugoapi.ErrStreamInFlight) {
			return fmt.Errorf("previous reply still in flight")
		}
		return err
	}
	cs.lifecycle.RegisterStream(h)
	if text != "" {
		if log := cs.lifecycle.Log(); log != nil {
			log.Append(session.Turn{Role: session.RoleSeller, Text: text})
		}
	}
	<-h.Done()
	return nil
}

func (cs *chatSession) command(ctx context.Context, line string) (quit bool, err error) {
	switch line {
	case "/audio":
		return false, cs.controller.Switch(ctx, modality.Audio)
	case "/video":
		return false, cs.controller.Switch(ctx, modality.Video)
	case "/chat":
		return false, cs.controller.Switch(ctx, modality.Chat)
	case "/mute", "/unmute":
		if cs.audioSession == nil || cs.controller.Current() != modality.Audio {
			return false, fmt.Errorf("no active audio call")
		}
		cs.audioSession.SetMuted(line == "/mute")
		return false, nil
	case "/eval":
		id, ok := cs.lifecycle.ID()
		if !ok {
			return false, session.ErrNoSession
		}
		raw, err := cs.client.Evaluate(ctx, id)
		if err != nil {
			return false, err
		}
		return false, outputResult(raw)
	case "/end":
		return false, cs.end(ctx)
	case "/quit", "/exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q", line)
	}
}

// end closes the backend session and resets local state. Safe without an
// active session.
func (cs *chatSession) end(ctx context.Context) error {
	cs.controller.Shutdown()
	id, ok := cs.lifecycle.ID()
	if !ok {
		return nil
	}
	cs.lifecycle.Clear()
	if err := cs.client.EndSession(ctx, id); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	cli.PrintSuccess("Session %s ended", id)
	return nil
}

// audioFactory dials audio credentials and connects a live call.
func (cs *chatSession) audioFactory(cctx *cli.Context) modality.AudioFactory {
	return func(ctx context.Context) (modality.MediaSession, error) {
		if chatAudioFile == "" {
			return nil, fmt.Errorf("audio needs --audio-file (Ogg/Opus microphone input)")
		}
		creds, err := cs.client.AudioCredentials(ctx, cs.params.TechniqueID)
		if err != nil {
			return nil, err
		}
		s := audioroom.NewSession(
			audioroom.NewWebRTCTransport(),
			audioroom.NewOggSource(chatAudioFile),
			nil,
		)
		s.OnSpeakers(func(u audioroom.SpeakerUpdate) {
			if u.RemoteSpeaking {
				fmt.Println(dimStyle.Render("(customer speaking)"))
			}
		})
		if err := s.Connect(ctx, audioroom.Credentials{URL: creds.URL, Token: creds.Token}); err != nil {
			return nil, err
		}
		cs.audioSession = s
		return s, nil
	}
}

// videoFactory dials avatar credentials and connects the video coach.
func (cs *chatSession) videoFactory(cctx *cli.Context) modality.VideoFactory {
	return func(ctx context.Context) (modality.VideoSession, error) {
		creds, err := cs.client.AvatarCredentials(ctx)
		if err != nil {
			return nil, err
		}
		dialer := avatar.NewWebSocketDialer(wsBaseURL(cctx.BaseURL) + "/api/v2/media/avatar/stream")
		s := avatar.NewSession(dialer, consoleRenderTarget{})
		s.OnTalking(func(talking bool) {
			if talking {
				fmt.Println(dimStyle.Render("(coach speaking)"))
			}
		})
		if err := s.Connect(ctx, avatar.Credentials{Token: creds.Token, AvatarID: creds.AvatarID}); err != nil {
			return nil, err
		}
		return s, nil
	}
}

// consoleRenderTarget reports the video surface instead of rendering it;
// a terminal has nowhere to put the pixels.
type consoleRenderTarget struct{}

func (consoleRenderTarget) Attach(stream avatar.MediaStream) error {
	if rs, ok := stream.(*avatar.RemoteStream); ok && rs.PlayURL != "" {
		cli.PrintInfo("Video stream ready: %s", rs.PlayURL)
		return nil
	}
	cli.PrintInfo("Video stream ready: %s", stream.ID())
	return nil
}

func (consoleRenderTarget) Detach() {
	cli.PrintInfo("Video stream closed")
}
