package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// SeedResult reports what was seeded.
type SeedResult struct {
	Phases int `json:"phases"`
	Steps  int `json:"steps"`
}

func (r SeedResult) String() string {
	return fmt.Sprintf("✓ Seeded %d phases and %d steps", r.Phases, r.Steps)
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Upsert the phase and step definitions into the audit database",
		Long: `Create the audit schema if needed and upsert every phase and step definition.

Step audits reference the seeded rows, so run seeds automatically. Safe to
repeat.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			app, err := buildApp(rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer app.Close()

			st, err := app.OpenStore(cmd.Context())
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeStore, "failed to open audit store", err)
			}
			defer closeStore(app.Logger, st)

			if err := st.SeedDefinitions(cmd.Context(), app.Defs); err != nil {
				return f.Fail(ExitCommandError, ErrCodeStore, "failed to seed definitions", err)
			}
			app.Logger.Info("definitions seeded", "phases", len(app.Defs.Phases()), "steps", len(app.Defs.Steps()))
			return f.Success(SeedResult{Phases: len(app.Defs.Phases()), Steps: len(app.Defs.Steps())})
		},
	}
}
