package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// ValidationResult summarizes a successful validation.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Phases    int               `json:"phases"`
	Steps     int               `json:"steps"`
	Pipelines []PipelineSummary `json:"pipelines"`
	Databases []DatabaseSummary `json:"databases"`
}

// PipelineSummary is one query pipeline.
type PipelineSummary struct {
	Name    string `json:"name"`
	Queries int    `json:"queries"`
}

// DatabaseSummary is one configured database and its resolved dialect.
// Connection strings are never printed; they carry credentials.
type DatabaseSummary struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Dialect string `json:"dialect"`
	Driver  string `json:"driver,omitempty"`
}

func (r ValidationResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ Configuration valid: %d phases, %d steps\n", r.Phases, r.Steps)
	for _, p := range r.Pipelines {
		fmt.Fprintf(&b, "  pipeline %s: %d queries\n", p.Name, p.Queries)
	}
	for _, d := range r.Databases {
		driver := d.Driver
		if driver == "" {
			driver = "no driver"
		}
		fmt.Fprintf(&b, "  database %s: %s -> %s (%s)\n", d.Name, d.Type, d.Dialect, driver)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate config, definitions, queries and databases",
		Long: `Load the config, definition registry and query registry, and resolve the
dialect and connection string of every configured database.

Nothing is written and no database is contacted.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd)
		},
	}
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	app, err := buildApp(opts, cmd, f)
	if err != nil {
		return err
	}
	defer app.Close()

	result := ValidationResult{
		Valid:  true,
		Phases: len(app.Defs.Phases()),
		Steps:  len(app.Defs.Steps()),
	}
	for _, name := range slices.Sorted(maps.Keys(app.Queries)) {
		result.Pipelines = append(result.Pipelines, PipelineSummary{Name: name, Queries: app.Queries[name].Len()})
	}

	for _, desc := range app.Config.Descriptors() {
		d, err := app.Resolver.Get(desc.Type)
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeDialect, fmt.Sprintf("database %q", desc.Name), err)
		}
		f.VerboseLog("Resolved %s (%s) to dialect %s", desc.Name, desc.Type, d.Key)
		result.Databases = append(result.Databases, DatabaseSummary{
			Name:    desc.Name,
			Type:    string(desc.Type),
			Dialect: d.Key,
			Driver:  d.Driver,
		})
	}

	return f.Success(result)
}
