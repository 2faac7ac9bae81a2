package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/standardbeagle/codegraph/internal/types"
)

// defaultPoolPermits is used when the configured pool-size table has an
// entry neither for a language nor for "other"; a language without its own
// entry otherwise gets the "other" permit count in its own pool.
const defaultPoolPermits = 1

// runLanguagePool dispatches tasks to work through fn with concurrency
// bounded by permits, one errgroup per language so a failure in one
// language's pool does not cancel another's (spec §4.4: partition by
// detected language, dispatch each partition to a dedicated worker pool).
func runLanguagePool(ctx context.Context, permits int, tasks []FileTask, fn func(context.Context, FileTask) error) error {
	if permits <= 0 {
		permits = defaultPoolPermits
	}
	sem := semaphore.NewWeighted(int64(permits))
	g, gctx := errgroup.WithContext(ctx)

	for _, task := range tasks {
		task := task
		if err := sem.Acquire(gctx, 1); err != nil {
			return err
		}
		g.Go(func() error {
			defer sem.Release(1)
			return fn(gctx, task)
		})
	}
	return g.Wait()
}

// partitionByLanguage groups tasks by language; a task with an empty
// language is grouped under types.LanguageOther rather than dropped. Every
// group, LanguageOther included, runs in its own pool.
func partitionByLanguage(tasks []FileTask) map[types.Language][]FileTask {
	partitions := make(map[types.Language][]FileTask)
	for _, t := range tasks {
		lang := t.Language
		if lang == "" {
			lang = types.LanguageOther
		}
		partitions[lang] = append(partitions[lang], t)
	}
	return partitions
}

func permitsFor(poolSizes map[string]int, lang types.Language) int {
	if n, ok := poolSizes[string(lang)]; ok && n > 0 {
		return n
	}
	if n, ok := poolSizes["other"]; ok && n > 0 {
		return n
	}
	return defaultPoolPermits
}
