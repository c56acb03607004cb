package commands

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veldie123/hugoherbots.com-sub000/pkg/cli"
	"github.com/Veldie123/hugoherbots.com-sub000/pkg/hugoapi"
)

var (
	// Global flags
	cfgFile     string
	contextName string
	outputFile  string
	outputJSON  bool
	verbose     bool

	// Global configuration
	globalConfig *cli.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hugocoach",
	Short: "Sales coaching CLI",
	Long: `hugocoach - A command line client for the Hugo sales coaching backend.

Practice sales techniques against a simulated customer, in plain chat,
over a live audio call, or with the rendered video coach. Conversations
are streamed token by token and stored locally for later review.

Configuration is stored in ~/.hugocoach/ and supports multiple contexts,
similar to kubectl's context management.

Examples:
  # Set up a context
  hugocoach config add-context prod --base-url https://coach.example.com --api-key KEY

  # Start a coaching chat on technique 4.2
  hugocoach chat --technique 4.2

  # Run an audio role-play, feeding recorded microphone audio
  hugocoach call --technique 4.2 --audio-file mic.ogg --record reply.ogg

  # Review a stored transcript
  hugocoach transcript show <session-id>
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.hugocoach/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(avatarCmd)
	rootCmd.AddCommand(techniquesCmd)
	rootCmd.AddCommand(transcriptCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var err error
	globalConfig, err = cli.LoadConfigWithPath(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}

// getContext returns the backend context to use.
func getContext() (*cli.Context, error) {
	if globalConfig == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	ctx, err := globalConfig.ResolveContext(contextName)
	if err != nil {
		if contextName == "" {
			return nil, fmt.Errorf("no context specified. Use -c flag or set a default context with 'hugocoach config use-context'")
		}
		return nil, err
	}
	return ctx, nil
}

// newClient builds the backend API client for a context.
func newClient(cctx *cli.Context) *hugoapi.Client {
	opts := []hugoapi.Option{}
	if cctx.APIKey != "" {
		opts = append(opts, hugoapi.WithAPIKey(cctx.APIKey))
	}
	if cctx.Timeout > 0 {
		opts = append(opts, hugoapi.WithHTTPClient(httpClientFor(cctx.Timeout)))
	}
	return hugoapi.NewClient(cctx.BaseURL, opts...)
}

// httpClientFor bounds dialing and the wait for response headers, but not
// the body read: http.Client.Timeout would cut every token stream that
// outlives it mid-reply.
func httpClientFor(timeoutSec int) *http.Client {
	d := time.Duration(timeoutSec) * time.Second
	return &http.Client{
		Transport: &http.Transport{
			DialContext:           (&net.Dialer{Timeout: d}).DialContext,
			TLSHandshakeTimeout:   d,
			ResponseHeaderTimeout: d,
		},
	}
}

// wsBaseURL rewrites an http(s) base URL to its ws(s) counterpart.
func wsBaseURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}

// outputResult writes a command result honoring the global output flags.
func outputResult(result any) error {
	format := cli.FormatYAML
	if outputJSON {
		format = cli.FormatJSON
	}
	return cli.Output(result, cli.OutputOptions{Format: format, File: outputFile})
}

func printVerbose(format string, args ...any) {
	cli.PrintVerbose(verbose, format, args...)
}
