package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// DefinitionsListing is the phase/step graph in run order.
type DefinitionsListing struct {
	Phases []PhaseListing `json:"phases"`
}

type PhaseListing struct {
	ID    int           `json:"id"`
	Key   string        `json:"key"`
	Name  string        `json:"name"`
	Steps []StepListing `json:"steps"`
}

type StepListing struct {
	ID       int    `json:"id"`
	Key      string `json:"key"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Inactive bool   `json:"inactive,omitempty"`
	// Pipeline is the query pipeline bound to the step, if any.
	Pipeline string `json:"pipeline,omitempty"`
}

func (l DefinitionsListing) String() string {
	var b strings.Builder
	for _, p := range l.Phases {
		fmt.Fprintf(&b, "%d %s (%s)\n", p.ID, p.Key, p.Name)
		for _, s := range p.Steps {
			fmt.Fprintf(&b, "  %d %s", s.ID, s.Code)
			if s.Pipeline != "" {
				fmt.Fprintf(&b, " [queries: %s]", s.Pipeline)
			}
			if s.Inactive {
				b.WriteString(" (inactive)")
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewDefinitionsCommand creates the definitions command.
func NewDefinitionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "definitions",
		Short:         "List phases and their steps in run order",
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

			var listing DefinitionsListing
			for _, p := range app.Defs.Phases() {
				steps, err := app.Defs.StepsInPhase(p.Key)
				if err != nil {
					return f.Fail(ExitFailure, ErrCodeDefinitions, "invalid definitions", err)
				}
				pl := PhaseListing{ID: p.ID, Key: p.Key, Name: p.Name, Steps: []StepListing{}}
				for _, s := range steps {
					pl.Steps = append(pl.Steps, StepListing{
						ID:       s.ID,
						Key:      s.Key,
						Code:     s.Code,
						Name:     s.Name,
						Inactive: s.Inactive,
						Pipeline: app.Config.StepQueries[s.Key],
					})
				}
				listing.Phases = append(listing.Phases, pl)
			}
			return f.Success(listing)
		},
	}
}
