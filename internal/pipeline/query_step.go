package pipeline

import (
	"context"
	"fmt"

	"github.com/roach88/doxetl/internal/queries"
	"github.com/roach88/doxetl/internal/source"
)

// Streamer runs a query and delivers its rows in chunks.
// *source.Database implements it.
type Streamer interface {
	StreamQuery(ctx context.Context, q queries.QueryDefinition, chunkSize int, fn func(source.Chunk) error, args ...any) (int64, error)
}

// ChunkSink receives the rows of each query. It may be nil.
type ChunkSink func(ctx context.Context, q queries.QueryDefinition, c source.Chunk) error

// QueryStep returns a handler that streams every query of qs in order and
// reports the total as rows_read. The first query error fails the step.
func QueryStep(qs queries.Queries, db Streamer, chunkSize int, sink ChunkSink) StepFunc {
	return func(ctx context.Context, sc StepContext) (StepResult, error) {
		var total int64
		perQuery := make(map[string]any, qs.Len())

		for _, q := range qs.All() {
			sc.Logger.Debug("running query", "query", q.Name, "display_name", q.DisplayName(), "path", q.Path)

			n, err := db.StreamQuery(ctx, q, chunkSize, func(c source.Chunk) error {
				if sink == nil {
					return nil
				}
				return sink(ctx, q, c)
			})
			total += n
			if err != nil {
				return StepResult{RowsRead: &total}, fmt.Errorf("query %s: %w", q.Name, err)
			}
			perQuery[q.Name] = n
		}

		return StepResult{
			RowsRead: &total,
			Extra: map[string]any{
				"pipeline":      qs.Pipeline(),
				"queries":       qs.Len(),
				"rows_by_query": perQuery,
			},
		}, nil
	}
}
