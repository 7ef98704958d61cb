package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

const listLimit = 20

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "list recent training runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.Runs().List(listLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No training runs recorded")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Started", "Status", "Samples", "Classes", "Accuracy", "Quantized"})
		for _, r := range runs {
			table.Append([]string{
				r.ID,
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				string(r.Status),
				strconv.Itoa(r.Samples),
				strconv.Itoa(r.Classes),
				optional(r.Accuracy),
				optional(r.LiteAccuracy),
			})
		}
		table.Render()
		return nil
	},
}

func optional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", *v)
}
