package commands

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Veldie123/hugoherbots.com-sub000/pkg/avatar"
	"github.com/Veldie123/hugoherbots.com-sub000/pkg/cli"
)

var avatarText string

var avatarCmd = &cobra.Command{
	Use:   "avatar",
	Short: "Avatar video session utilities",
	Long: `Connect a standalone avatar video session.

Prints the playback URL of the rendered video stream. With --text the
avatar speaks the given line and the command exits when it finishes;
without it, lines read from stdin are spoken until EOF or Ctrl+C.`,
	RunE: runAvatar,
}

func init() {
	avatarCmd.Flags().StringVar(&avatarText, "text", "", "line for the avatar to speak")
}

func runAvatar(cmd *cobra.Command, args []string) error {
	cctx, err := getContext()
	if err != nil {
		return err
	}
	client := newClient(cctx)

	creds, err := client.AvatarCredentials(cmd.Context())
	if err != nil {
		return fmt.Errorf("avatar credentials: %w", err)
	}
	printVerbose("avatar id: %s", creds.AvatarID)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialer := avatar.NewWebSocketDialer(wsBaseURL(cctx.BaseURL) + "/api/v2/media/avatar/stream")
	s := avatar.NewSession(dialer, consoleRenderTarget{})
	defer s.Disconnect()

	stopped := make(chan struct{}, 1)
	unsub := s.OnTalking(func(talking bool) {
		if talking {
			cli.PrintInfo("Avatar speaking...")
			return
		}
		cli.PrintInfo("Avatar finished")
		select {
		case stopped <- struct{}{}:
		default:
		}
	})
	defer unsub()

	errored := make(chan struct{})
	unsubState := s.OnStateChange(func(st avatar.State) {
		if st == avatar.StateError {
			close(errored)
		}
	})
	defer unsubState()

	if err := s.Connect(ctx, avatar.Credentials{Token: creds.Token, AvatarID: creds.AvatarID}); err != nil {
		return fmt.Errorf("connect avatar: %w", err)
	}

	if avatarText != "" {
		if err := s.Speak(ctx, avatarText); err != nil {
			return err
		}
		select {
		case <-stopped:
			return nil
		case <-errored:
			return fmt.Errorf("avatar stream lost")
		case <-ctx.Done():
			return nil
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-errored:
			return fmt.Errorf("avatar stream lost")
		case <-ctx.Done():
			return nil
		default:
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := s.Speak(ctx, line); err != nil {
			cli.PrintError("%v", err)
		}
	}
	return scanner.Err()
}
