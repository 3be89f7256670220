package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/currency-api/internal/config"
	"github.com/Brownie44l1/currency-api/internal/logger"
	"github.com/Brownie44l1/currency-api/internal/recognizer"
	"github.com/Brownie44l1/currency-api/internal/vision"
)

func classifyCmd(g *globalFlags) *cobra.Command {
	var o config.Overrides
	var threshold float32
	var rotation int
	var noFilter bool
	var asJSON bool

	c := &cobra.Command{
		Use:   "classify IMAGE...",
		Short: "Recognize the banknote in one or more photos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("threshold") {
				o.Threshold = &threshold
			}
			// Quieter than the server unless the config file or LOG_LEVEL says otherwise.
			base := config.Default()
			base.Log.Level = "warn"
			cfg, err := g.loadConfig(base, o)
			if err != nil {
				return err
			}
			if noFilter {
				cfg.Filter.Enabled = false
			}
			// Files are processed back to back, not as live captures.
			cfg.Capture.Cooldown = 0

			cleanup, err := logger.Setup(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Path: cfg.Log.Path})
			if err != nil {
				return err
			}
			defer func() { _ = cleanup() }()

			rec, err := buildRecognizer(cfg, logger.L())
			if err != nil {
				return err
			}
			defer rec.Close()

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			for _, path := range args {
				res, err := classifyFile(cmd, rec, path, rotation, cfg.Server.MaxPixels)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				// Let the announcement finish before the next photo.
				rec.Wait()

				if asJSON {
					if err := enc.Encode(struct {
						File string `json:"file"`
						*recognizer.Result
					}{path, res}); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintf(out, "%s: %s\n", path, res.Display)
			}
			return nil
		},
	}

	c.Flags().IntVarP(&rotation, "rotation", "r", 0, "Rotate photos clockwise by this many degrees first")
	c.Flags().BoolVar(&noFilter, "no-filter", false, "Skip the edge density pre-filter")
	c.Flags().BoolVar(&asJSON, "json", false, "Print one JSON result per line")
	c.Flags().StringVar(&o.Backend, "backend", "", "Inference backend: tflite or onnx (default from model extension)")
	c.Flags().StringVarP(&o.ModelPath, "model", "m", "", "Model file")
	c.Flags().StringVarP(&o.Labels, "labels", "l", "", "Labels file, one class per line")
	c.Flags().Float32Var(&threshold, "threshold", 0, "Minimum confidence to report a denomination")
	c.Flags().BoolVar(&o.Speak, "speak", false, "Read each result aloud")
	return c
}

func classifyFile(cmd *cobra.Command, rec *recognizer.Recognizer, path string, rotation, maxPixels int) (*recognizer.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := vision.Decode(f, maxPixels)
	if err != nil {
		return nil, err
	}
	return rec.Recognize(cmd.Context(), img, rotation)
}
