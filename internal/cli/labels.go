package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/currency-api/internal/config"
	"github.com/Brownie44l1/currency-api/internal/model"
	"github.com/Brownie44l1/currency-api/internal/speech"
)

func labelsCmd(g *globalFlags) *cobra.Command {
	var o config.Overrides

	c := &cobra.Command{
		Use:   "labels",
		Short: "List the classes in the labels file and how each is spoken",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig(nil, o)
			if err != nil {
				return err
			}
			labels, err := model.LoadLabels(cfg.Model.Labels)
			if err != nil {
				return err
			}

			p := speech.NewPhraser(cfg.Speech.Names)
			out := cmd.OutOrStdout()
			for i, l := range labels {
				if model.IsNoCurrency(l) {
					fmt.Fprintf(out, "%d\t%s\t(not a banknote)\n", i, l)
					continue
				}
				fmt.Fprintf(out, "%d\t%s\t%s\n", i, l, p.Name(l))
			}
			return nil
		},
	}

	c.Flags().StringVarP(&o.Labels, "labels", "l", "", "Labels file, one class per line")
	return c
}
