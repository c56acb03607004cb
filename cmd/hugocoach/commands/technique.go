package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var techniquesCmd = &cobra.Command{
	Use:   "techniques",
	Short: "List available sales techniques",
	Long: `List the sales technique taxonomy offered by the backend.

Technique numbers are hierarchical; pass a number to 'chat --technique'
or 'call --technique' to practice it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cctx, err := getContext()
		if err != nil {
			return err
		}
		client := newClient(cctx)

		techniques, err := client.Techniques(cmd.Context())
		if err != nil {
			return err
		}
		if outputJSON || outputFile != "" {
			return outputResult(techniques)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NUMBER\tPHASE\tNAME")
		for _, t := range techniques {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.Number, t.Phase, t.Name)
		}
		return w.Flush()
	},
}
