package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train [dataset.csv]",
	Short: "train the gesture classifier and export the mobile bundle",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		csvPath := cfg.Paths.Dataset
		if len(args) > 0 {
			csvPath = args[0]
		}

		a, closeApp := newApp()
		defer closeApp()

		sum, err := a.Run(csvPath)
		if err != nil {
			return err
		}

		if sum.Report != nil {
			fmt.Println("Classification Report:")
			fmt.Println(sum.Report)
		}
		sum.Print(os.Stdout)
		return nil
	},
}
