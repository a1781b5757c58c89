package commands

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/metagate/internal/app"
	"github.com/conduit-lang/metagate/internal/cli/config"
	"github.com/conduit-lang/metagate/internal/cli/ui"
)

// NewRoutesCommand creates the routes command
func NewRoutesCommand(flags *globalFlags) *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the compiled route table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			// clients dial lazily, so no backend needs to be up
			a, err := app.New(cfg, zap.NewNop())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			table := ui.NewTable(cmd.OutOrStdout(), flags.noColor, "METHOD", "PATH", "MODEL", "KIND", "NAME")
			for _, r := range a.Router.GetRoutes() {
				if model != "" && !strings.EqualFold(r.Model, model) {
					continue
				}
				table.AddRow(r.Method, r.Pattern, r.Version+"/"+r.Model, r.Kind, r.Name)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "only show routes of this model")
	return cmd
}
