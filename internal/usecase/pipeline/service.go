package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/medevs/local-smart-portfolio/internal/domain"
	"github.com/medevs/local-smart-portfolio/internal/metrics"
)

// defaultSystemPrompt instructs the generator how to behave as a portfolio
// assistant when no override is configured.
const defaultSystemPrompt = `You are an AI assistant for a developer's portfolio website.
You help visitors learn about the developer's skills, projects, and experience.
Use the provided context to answer questions accurately and helpfully.
If the context doesn't contain relevant information, say so honestly but try to be helpful.
Keep responses concise but informative.`

// Retrieval carries the context and metadata produced by the retrieval
// stages for one query.
type Retrieval struct {
	Context        string
	Sources        []string
	QueryType      domain.QueryType
	Hint           string
	RewrittenQuery string
	CandidateCount int
	UsedRetrieval  bool
}

// Answer is a complete non-streaming pipeline result.
type Answer struct {
	Response string
	Retrieval
}

// Config holds pipeline settings.
type Config struct {
	RerankTopK   int
	HistoryTurns int
	SystemPrompt string
}

// Service orchestrates the retrieval pipeline: route, rewrite, hybrid
// search, re-rank, assemble, generate. Retrieval stages degrade rather than
// fail; only generation surfaces an error to the caller.
type Service struct {
	router   Router
	rewriter Rewriter
	searcher Searcher
	reranker Reranker
	gen      Generator
	cfg      Config
	logger   *zap.Logger
}

// New creates a pipeline service.
func New(
	router Router, rewriter Rewriter, searcher Searcher, reranker Reranker,
	gen Generator, cfg Config, logger *zap.Logger,
) *Service {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	return &Service{
		router:   router,
		rewriter: rewriter,
		searcher: searcher,
		reranker: reranker,
		gen:      gen,
		cfg:      cfg,
		logger:   logger,
	}
}

// Retrieve runs the retrieval stages for a query. When routing decides no
// retrieval is needed (and force is false) the result short-circuits with an
// empty context. Retrieve never returns an error: empty context with
// UsedRetrieval set means retrieval ran and found nothing.
func (s *Service) Retrieve(ctx context.Context, query string, history []domain.Message, force bool) Retrieval {
	start := time.Now()
	decision := s.router.Route(query, history)
	metrics.StageDuration.WithLabelValues("route").Observe(time.Since(start).Seconds())

	needsRetrieval := decision.NeedsRetrieval || force
	metrics.QueriesTotal.WithLabelValues(
		string(decision.Type), strconv.FormatBool(needsRetrieval),
	).Inc()

	s.logger.Info("query routed",
		zap.String("query_type", string(decision.Type)),
		zap.Bool("needs_retrieval", needsRetrieval))

	if !needsRetrieval {
		return Retrieval{
			QueryType:      decision.Type,
			Hint:           decision.Hint,
			RewrittenQuery: query,
		}
	}

	start = time.Now()
	rewritten := s.rewriter.Rewrite(ctx, query, history)
	metrics.StageDuration.WithLabelValues("rewrite").Observe(time.Since(start).Seconds())
	if rewritten != query {
		s.logger.Info("query rewritten",
			zap.String("query", query), zap.String("rewritten", rewritten))
	}

	start = time.Now()
	candidates := s.searcher.Search(ctx, rewritten)
	metrics.StageDuration.WithLabelValues("fuse").Observe(time.Since(start).Seconds())
	metrics.RetrievedCandidates.Observe(float64(len(candidates)))

	if len(candidates) == 0 {
		s.logger.Info("hybrid search returned no candidates")
		return Retrieval{
			QueryType:      decision.Type,
			Hint:           decision.Hint,
			RewrittenQuery: rewritten,
			UsedRetrieval:  true,
		}
	}

	// Re-rank against the original query, not the rewritten one: the user's
	// phrasing is the relevance target.
	if len(candidates) > 1 {
		start = time.Now()
		candidates = s.reranker.Rerank(ctx, query, candidates, s.cfg.RerankTopK)
		metrics.StageDuration.WithLabelValues("rerank").Observe(time.Since(start).Seconds())
	} else if len(candidates) > s.cfg.RerankTopK {
		candidates = candidates[:s.cfg.RerankTopK]
	}

	start = time.Now()
	contextBlock, sources := assembleContext(candidates)
	metrics.StageDuration.WithLabelValues("assemble").Observe(time.Since(start).Seconds())

	return Retrieval{
		Context:        contextBlock,
		Sources:        sources,
		QueryType:      decision.Type,
		Hint:           decision.Hint,
		RewrittenQuery: rewritten,
		CandidateCount: len(candidates),
		UsedRetrieval:  true,
	}
}

// Query runs retrieval and generates a complete answer.
func (s *Service) Query(ctx context.Context, query string, history []domain.Message) (Answer, error) {
	retrieval := s.Retrieve(ctx, query, history, false)

	prompt := buildPrompt(
		s.cfg.SystemPrompt, retrieval.Hint, retrieval.Context,
		query, history, s.cfg.HistoryTurns,
	)

	response, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	return Answer{Response: response, Retrieval: retrieval}, nil
}

// QueryStream runs retrieval and streams the generated answer. The retrieval
// metadata is returned up front so the transport can emit it in the terminal
// stream event.
func (s *Service) QueryStream(ctx context.Context, query string, history []domain.Message) (Retrieval, <-chan domain.StreamChunk, error) {
	retrieval := s.Retrieve(ctx, query, history, false)

	prompt := buildPrompt(
		s.cfg.SystemPrompt, retrieval.Hint, retrieval.Context,
		query, history, s.cfg.HistoryTurns,
	)

	stream, err := s.gen.GenerateStream(ctx, prompt)
	if err != nil {
		return Retrieval{}, nil, fmt.Errorf("generate answer stream: %w", err)
	}
	return retrieval, stream, nil
}
