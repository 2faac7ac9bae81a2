// Package orchestrator implements the parallel orchestrator (C4): it
// partitions a workspace scan by language, dispatches each partition to a
// worker pool sized from config, runs each file through the semantic cache
// and the differential driver, aggregates the resulting graph, and links
// symbolic edges into resolved NodeIds. It is grounded on the teacher's
// master_index.go/pipeline_processor.go scanner+worker-pool shape,
// restructured around golang.org/x/sync/errgroup and semaphore.Weighted
// instead of the teacher's hand-rolled channel/goroutine management.
package orchestrator

import (
	"context"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/codegraph/internal/cgerrors"
	"github.com/standardbeagle/codegraph/internal/config"
	"github.com/standardbeagle/codegraph/internal/extract"
	"github.com/standardbeagle/codegraph/internal/logging"
	"github.com/standardbeagle/codegraph/internal/metrics"
	"github.com/standardbeagle/codegraph/internal/parsing"
	"github.com/standardbeagle/codegraph/internal/semcache"
	"github.com/standardbeagle/codegraph/internal/types"
)

// Orchestrator owns the per-run state a workspace ingest needs: the
// differential driver (which itself owns the tree cache across repeated
// Ingest calls), the semantic cache, and the metrics registry both report
// into.
type Orchestrator struct {
	cfg     *config.Config
	driver  *parsing.Driver
	cache   *semcache.Cache
	Metrics *metrics.Registry

	fileMu    sync.Mutex
	prevFiles map[string][]types.NodeId
}

// New builds an Orchestrator from cfg, wiring a fresh extractor registry
// and semantic cache sized to cfg.CacheMaxEntries.
func New(cfg *config.Config) (*Orchestrator, error) {
	cache, err := semcache.New(cfg.CacheMaxEntries)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg:       cfg,
		driver:    parsing.NewDriver(extract.NewRegistry()),
		cache:     cache,
		Metrics:   metrics.NewRegistry(),
		prevFiles: make(map[string][]types.NodeId),
	}, nil
}

// IngestResult is the aggregated (nodes, edges) set produced by one Ingest
// call, plus the per-run counters the spec's stats surface reports.
type IngestResult struct {
	Nodes []types.CodeNode
	Edges []types.EdgeRelationship

	FilesDiscovered int
	FilesProcessed  int
	FilesFailed     int
	CacheHits       int
	CacheMisses     int
}

// Ingest discovers every eligible file under cfg.WorkspaceRoot, processes
// each through a per-language worker pool, and links the merged edge set.
// ctx is the cooperative cancel signal (spec §4.4): workers check it at
// each file boundary, and partial results already aggregated at the cancel
// point are returned rather than discarded.
func (o *Orchestrator) Ingest(ctx context.Context) (*IngestResult, error) {
	log := logging.Component("orchestrator")

	tasks, err := Discover(o.cfg.WorkspaceRoot, o.cfg.IncludeGlobs, o.cfg.ExcludeGlobs, o.cfg.LanguagesEnabled)
	if err != nil {
		return nil, cgerrors.NewIoError("discover", o.cfg.WorkspaceRoot, err)
	}

	result := &IngestResult{FilesDiscovered: len(tasks)}
	var mu sync.Mutex

	partitions := partitionByLanguage(tasks)
	g, gctx := errgroup.WithContext(ctx)

	for lang, partTasks := range partitions {
		lang, partTasks := lang, partTasks
		permits := permitsFor(o.cfg.PoolSizesByLanguage, lang)
		g.Go(func() error {
			return runLanguagePool(gctx, permits, partTasks, func(ctx context.Context, task FileTask) error {
				o.processFile(ctx, task, result, &mu, log)
				return nil
			})
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		return result, err
	}

	o.reconcileRemovedFiles(tasks, result)

	Link(result.Nodes, result.Edges)
	return result, nil
}

// reconcileRemovedFiles diffs this run's discovered paths against the set
// known from the previous Ingest call: any previously known path missing
// here had its file removed from the workspace, so its nodes are tombstoned
// (spec §4.4: "a node is ... destroyed when its file is removed from the
// workspace") and its stale tree-cache entry is evicted. Paths that exist
// but simply failed to process this round keep their prior node set so a
// transient read/parse failure can't be mistaken for a deletion.
func (o *Orchestrator) reconcileRemovedFiles(tasks []FileTask, result *IngestResult) {
	discovered := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		discovered[t.Path] = true
	}

	produced := make(map[string][]types.NodeId)
	for _, n := range result.Nodes {
		produced[n.Location.File] = append(produced[n.Location.File], n.ID)
	}

	o.fileMu.Lock()
	defer o.fileMu.Unlock()

	next := make(map[string][]types.NodeId, len(discovered))
	for path, ids := range o.prevFiles {
		if !discovered[path] {
			for _, id := range ids {
				result.Nodes = append(result.Nodes, types.CodeNode{
					ID:         id,
					Location:   types.Location{File: path},
					Tombstoned: true,
				})
			}
			o.driver.Forget(path)
			continue
		}
		next[path] = ids
	}
	for path, ids := range produced {
		next[path] = ids
	}
	o.prevFiles = next
}

func (o *Orchestrator) processFile(ctx context.Context, task FileTask, result *IngestResult, mu *sync.Mutex, log zerolog.Logger) {
	if ctx.Err() != nil {
		return
	}
	content, err := os.ReadFile(task.Path)
	if err != nil {
		log.Warn().Err(err).Str("path", task.Path).Msg("read failed, file skipped")
		mu.Lock()
		result.FilesFailed++
		mu.Unlock()
		return
	}

	if cached, ok := o.cache.Get(task.Path, task.Language, content); ok {
		o.Metrics.CacheHits.Inc()
		mu.Lock()
		result.CacheHits++
		result.FilesProcessed++
		result.Nodes = append(result.Nodes, cached.Nodes...)
		result.Edges = append(result.Edges, cached.Edges...)
		mu.Unlock()
		return
	}
	o.Metrics.CacheMisses.Inc()

	extracted, _, err := o.driver.Process(task.ID, task.Path, task.Language, content)
	if err != nil {
		log.Warn().Err(err).Str("path", task.Path).Msg("parse failed, file skipped")
		o.Metrics.ParseFilesFailed.Inc()
		mu.Lock()
		result.FilesFailed++
		mu.Unlock()
		return
	}
	o.Metrics.ParseFilesTotal.Inc()
	o.cache.Put(task.Path, task.Language, content, extracted)

	mu.Lock()
	result.CacheMisses++
	result.FilesProcessed++
	result.Nodes = append(result.Nodes, extracted.Nodes...)
	result.Edges = append(result.Edges, extracted.Edges...)
	mu.Unlock()
}
