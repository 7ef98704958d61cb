package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/dataset"
)

var buildCmd = &cobra.Command{
	Use:   "build [images-dir]",
	Short: "extract hand landmarks from a folder-per-gesture image tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.Paths.ImagesDir
		if len(args) > 0 {
			dir = args[0]
		}

		a, closeApp := newApp()
		defer closeApp()

		ds, err := a.Build(dir, cfg.Paths.Dataset, &barProgress{})
		if err != nil {
			return err
		}

		fmt.Printf("Dataset saved to %s\n", cfg.Paths.Dataset)
		fmt.Printf("Total samples: %d\n", ds.Len())

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Gesture", "Samples"})
		counts := ds.Counts()
		for _, label := range ds.Labels() {
			table.Append([]string{label, strconv.Itoa(counts[label])})
		}
		table.Render()
		return nil
	},
}

// barProgress shows one progress bar per gesture class.
type barProgress struct {
	bar *progressbar.ProgressBar
}

var _ dataset.Progress = (*barProgress)(nil)

func (p *barProgress) StartClass(label string, images int) {
	p.bar = progressbar.NewOptions(images,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(fmt.Sprintf("Processing %s", label)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
	)
}

func (p *barProgress) Image(string, bool) {
	if p.bar != nil {
		p.bar.Add(1)
	}
}

func (p *barProgress) FinishClass(c dataset.ClassProgress) {
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
	fmt.Fprintf(os.Stderr, "\n%s: %d/%d images with a detected hand\n", c.Label, c.Hits, c.Images)
}
