package embedding

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/semaphore"

	"github.com/standardbeagle/codegraph/internal/cgerrors"
	"github.com/standardbeagle/codegraph/internal/types"
)

// RetryConfig configures the exponential backoff applied to transient
// provider failures, grounded on the teacher pack's RetryConfig/Retry
// shape (cenkalti/backoff/v4, base interval doubling, capped retries).
type RetryConfig struct {
	InitialInterval time.Duration
	Multiplier      float64
	MaxRetries      int
}

// DefaultRetryConfig is the spec §4.6 default: base 100ms, doubling.
func DefaultRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{InitialInterval: 100 * time.Millisecond, Multiplier: 2, MaxRetries: maxRetries}
}

// Pipeline drives embedding generation for a batch of nodes: chunking
// oversized content, bounding concurrent provider calls, retrying
// transient failures, and caching the provider's declared dimension to
// detect drift.
type Pipeline struct {
	provider  Provider
	tokenizer *Tokenizer
	retry     RetryConfig
	sem       *semaphore.Weighted

	mu          sync.Mutex
	dimCached   bool
	embedDimension int
}

// defaultConcurrentEmbedRequests bounds how many Generate calls the
// pipeline has in flight at once. This is independent of the provider's
// MaxBatchSize, which instead bounds how many chunks ride in a single
// Generate call (spec §4.6: both a declared max_batch_size and a bounded
// concurrent-request count apply).
const defaultConcurrentEmbedRequests = 4

// NewPipeline builds a Pipeline that groups chunks into the provider's
// declared MaxBatchSize per Generate call, with at most
// defaultConcurrentEmbedRequests such calls in flight concurrently.
func NewPipeline(provider Provider, tokenizer *Tokenizer, retry RetryConfig) *Pipeline {
	return &Pipeline{
		provider:  provider,
		tokenizer: tokenizer,
		retry:     retry,
		sem:       semaphore.NewWeighted(defaultConcurrentEmbedRequests),
	}
}

// Embed computes maxChunkTokens-budgeted embeddings for every node in
// nodes, attaching the result to each via the returned map keyed by
// NodeId. Chunks from across every node are accumulated into
// provider.MaxBatchSize() batches before each Generate call (spec §4.6),
// rather than one Generate call per chunk. A node whose chunks land in a
// batch that fails after retries is omitted from the map; the map still
// holds every node whose batches succeeded, and the first batch error is
// returned alongside it.
func (p *Pipeline) Embed(ctx context.Context, nodes []types.CodeNode, maxChunkTokens int) (map[types.NodeId][]float32, error) {
	type chunkRef struct {
		nodeIdx  int
		chunkIdx int
	}

	chunkCounts := make([]int, len(nodes))
	var texts []string
	var refs []chunkRef
	for i, n := range nodes {
		chunks := []string{n.Content}
		if p.tokenizer != nil {
			chunks = p.tokenizer.Chunk(n.Content, maxChunkTokens)
		}
		chunkCounts[i] = len(chunks)
		for c, text := range chunks {
			texts = append(texts, text)
			refs = append(refs, chunkRef{nodeIdx: i, chunkIdx: c})
		}
	}

	vectors, ok, err := p.generateBatched(ctx, texts)

	perNode := make([][][]float32, len(nodes))
	for i, n := range chunkCounts {
		perNode[i] = make([][]float32, n)
	}
	failed := make([]bool, len(nodes))
	for i, ref := range refs {
		if !ok[i] {
			failed[ref.nodeIdx] = true
			continue
		}
		perNode[ref.nodeIdx][ref.chunkIdx] = vectors[i]
	}

	results := make(map[types.NodeId][]float32, len(nodes))
	for i, n := range nodes {
		if failed[i] {
			continue
		}
		results[n.ID] = meanVector(perNode[i])
	}
	return results, err
}

// generateBatched groups texts into provider.MaxBatchSize()-sized Generate
// calls, running up to defaultConcurrentEmbedRequests of them concurrently,
// and returns one vector per input text in the original order alongside a
// parallel ok slice (false wherever that text's batch failed or drifted in
// dimension).
func (p *Pipeline) generateBatched(ctx context.Context, texts []string) ([][]float32, []bool, error) {
	batchSize := p.provider.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = 1
	}

	vectors := make([][]float32, len(texts))
	ok := make([]bool, len(texts))

	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error

	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		start, end := start, end

		if err := p.sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			return vectors, ok, firstErr
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer p.sem.Release(1)

			vecs, err := p.generateWithRetry(ctx, texts[start:end])

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			if len(vecs) != end-start {
				if firstErr == nil {
					firstErr = cgerrors.NewProviderError("embedding", p.retry.MaxRetries, errShapeMismatch)
				}
				return
			}
			for i, v := range vecs {
				if dimErr := p.checkDimension(len(v)); dimErr != nil {
					if firstErr == nil {
						firstErr = dimErr
					}
					continue
				}
				vectors[start+i] = v
				ok[start+i] = true
			}
		}()
	}
	wg.Wait()
	return vectors, ok, firstErr
}

// EmbedQuery embeds a single piece of free-form text, used by the retriever
// to turn a search query into a vector comparable against indexed node
// embeddings. It shares embedOne's chunk-then-average path so a long query
// is handled the same way a long node body is.
func (p *Pipeline) EmbedQuery(ctx context.Context, text string, maxChunkTokens int) ([]float32, error) {
	return p.embedOne(ctx, text, maxChunkTokens)
}

func (p *Pipeline) embedOne(ctx context.Context, content string, maxChunkTokens int) ([]float32, error) {
	chunks := []string{content}
	if p.tokenizer != nil {
		chunks = p.tokenizer.Chunk(content, maxChunkTokens)
	}

	vectors, _, err := p.generateBatched(ctx, chunks)
	if err != nil {
		return nil, err
	}
	return meanVector(vectors), nil
}

// checkDimension caches the provider's declared Dimension() on first call
// (falling back to the first response's length when the provider declares
// none) and fatally rejects any response whose dimension differs — spec
// §9's resolved Open Question: dimension drift is a fatal Provider error
// for the run, not silently tolerated.
func (p *Pipeline) checkDimension(dim int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.dimCached {
		p.embedDimension = dim
		if declared := p.provider.Dimension(); declared > 0 {
			p.embedDimension = declared
		}
		p.dimCached = true
	}
	if dim != p.embedDimension {
		return cgerrors.NewProviderError("embedding", 0, errDimensionDrift)
	}
	return nil
}

func (p *Pipeline) generateWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.retry.InitialInterval
	b.Multiplier = p.retry.Multiplier

	var backoffPolicy backoff.BackOff = b
	if p.retry.MaxRetries > 0 {
		backoffPolicy = backoff.WithMaxRetries(b, uint64(p.retry.MaxRetries))
	}
	backoffPolicy = backoff.WithContext(backoffPolicy, ctx)

	var result [][]float32
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		vecs, err := p.provider.Generate(ctx, texts)
		if err != nil {
			return err
		}
		result = vecs
		return nil
	}, backoffPolicy)
	if err != nil {
		return nil, cgerrors.NewProviderError(providerName(p.provider), attempts-1, err)
	}
	return result, nil
}

func meanVector(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	if len(vectors) == 1 {
		return vectors[0]
	}
	mean := make([]float32, len(vectors[0]))
	for _, v := range vectors {
		for i, x := range v {
			mean[i] += x
		}
	}
	for i := range mean {
		mean[i] /= float32(len(vectors))
	}
	return mean
}

func providerName(p Provider) string {
	if named, ok := p.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "embedding"
}

var (
	errShapeMismatch  = providerShapeError{}
	errDimensionDrift = providerDimensionError{}
)

type providerShapeError struct{}

func (providerShapeError) Error() string { return "provider returned an unexpected number of vectors" }

type providerDimensionError struct{}

func (providerDimensionError) Error() string {
	return "provider's embedding dimension changed mid-run"
}
