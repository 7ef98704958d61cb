package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var predictCmd = &cobra.Command{
	Use:   "predict <image>",
	Short: "classify the hand in one image with the exported model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeApp := newApp()
		defer closeApp()

		pred, err := a.Predict(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s (%.2f%%)\n", pred.Label, pred.Confidence*100)
		return nil
	},
}
