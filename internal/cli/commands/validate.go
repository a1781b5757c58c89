package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/metagate/internal/app"
	"github.com/conduit-lang/metagate/internal/cli/config"
	"github.com/conduit-lang/metagate/internal/cli/ui"
	"github.com/conduit-lang/metagate/internal/metadata"
)

// ErrInvalidMetadata is returned when validation fails
var ErrInvalidMetadata = errors.New("metadata is invalid")

// NewValidateCommand creates the validate command
func NewValidateCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Normalize and cross-check the model metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			ix, err := app.LoadIndex(cfg)
			if err != nil {
				var actionErr *metadata.ActionError
				var relationErr *metadata.RelationError
				switch {
				case errors.As(err, &actionErr):
					ui.Failure(out, flags.noColor, "%s/%s action #%d: invalid %s %q",
						actionErr.Version, actionErr.Model, actionErr.Index, actionErr.Field, actionErr.Value)
				case errors.As(err, &relationErr):
					ui.Failure(out, flags.noColor, "%s/%s relation %q: %s",
						relationErr.Version, relationErr.Model, relationErr.Name, relationErr.Reason)
				default:
					ui.Failure(out, flags.noColor, "%v", err)
				}
				return ErrInvalidMetadata
			}

			ui.Success(out, flags.noColor, "%d models in %d versions", len(ix.All()), len(ix.Versions()))
			return nil
		},
	}
}
