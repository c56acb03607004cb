package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Veldie123/hugoherbots.com-sub000/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration and contexts.

Contexts point at coaching backends and carry per-backend defaults,
similar to kubectl's context management.

Configuration is stored in ~/.hugocoach/config.yaml`,
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add a new context",
	Long: `Add a new context with the specified name.

Example:
  hugocoach config add-context local --base-url http://localhost:3001
  hugocoach config add-context prod --base-url https://coach.example.com --api-key KEY`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		baseURL, err := cmd.Flags().GetString("base-url")
		if err != nil {
			return fmt.Errorf("failed to read 'base-url' flag: %w", err)
		}
		if baseURL == "" {
			return fmt.Errorf("--base-url is required")
		}
		apiKey, err := cmd.Flags().GetString("api-key")
		if err != nil {
			return fmt.Errorf("failed to read 'api-key' flag: %w", err)
		}
		timeout, err := cmd.Flags().GetInt("timeout")
		if err != nil {
			return fmt.Errorf("failed to read 'timeout' flag: %w", err)
		}
		technique, err := cmd.Flags().GetString("default-technique")
		if err != nil {
			return fmt.Errorf("failed to read 'default-technique' flag: %w", err)
		}
		mode, err := cmd.Flags().GetString("default-mode")
		if err != nil {
			return fmt.Errorf("failed to read 'default-mode' flag: %w", err)
		}
		expert, err := cmd.Flags().GetBool("expert")
		if err != nil {
			return fmt.Errorf("failed to read 'expert' flag: %w", err)
		}

		ctx := &cli.Context{
			BaseURL:          baseURL,
			APIKey:           apiKey,
			Timeout:          timeout,
			DefaultTechnique: technique,
			DefaultMode:      mode,
			Expert:           expert,
		}
		if err := globalConfig.AddContext(name, ctx); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q added successfully", name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := globalConfig.DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q deleted", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := globalConfig.UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context %q", args[0])
		return nil
	},
}

var configGetContextsCmd = &cobra.Command{
	Use:   "get-contexts",
	Short: "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tBASE URL\tAPI KEY\tTECHNIQUE")
		for name, ctx := range globalConfig.Contexts {
			current := ""
			if name == globalConfig.CurrentContext {
				current = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				current, name, ctx.BaseURL, cli.MaskAPIKey(ctx.APIKey), ctx.DefaultTechnique)
		}
		return w.Flush()
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show the config file location and contents",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli.PrintInfo("Config file: %s", globalConfig.Path())
		return outputResult(globalConfig)
	},
}

func init() {
	configAddContextCmd.Flags().String("base-url", "", "backend base URL (required)")
	configAddContextCmd.Flags().String("api-key", "", "API key")
	configAddContextCmd.Flags().Int("timeout", 0, "request timeout in seconds")
	configAddContextCmd.Flags().String("default-technique", "", "default technique id")
	configAddContextCmd.Flags().String("default-mode", "", "default practice mode")
	configAddContextCmd.Flags().Bool("expert", false, "mark this account as expert")

	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextsCmd)
	configCmd.AddCommand(configViewCmd)
}
