package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/docsage-ai/docsage/internal/domain"
	"github.com/docsage-ai/docsage/internal/logger"
	"github.com/docsage-ai/docsage/internal/metrics"
	"github.com/docsage-ai/docsage/internal/pii"
)

const (
	// confidenceThreshold is the audit score below which the controller
	// re-runs the search/generate/audit cycle.
	confidenceThreshold = 0.7
	// directAnswerConfidence applies when there is no context to audit
	// against; the audit stage is skipped, not scored as uncertain.
	directAnswerConfidence = 0.8
	// neutralConfidence applies when the auditor's output yields no
	// parseable number, or the audit call itself fails.
	neutralConfidence = 0.5
	// contextExcerptLimit bounds the context excerpt in the response.
	contextExcerptLimit = 500
)

// Searcher is the retrieval contract the controller drives.
type Searcher interface {
	Search(ctx context.Context, query string) ([]domain.Chunk, error)
}

// Masker redacts PII from the query before it enters the pipeline.
type Masker interface {
	Mask(text string) pii.Result
}

// Params holds the reasoning loop knobs.
type Params struct {
	// MaxIterations bounds the number of extra search/generate/audit
	// cycles after the first full pass.
	MaxIterations int
	// Temperature is passed to the generator for plan and generate
	// stages. Audit always runs at temperature 0.
	Temperature float32
}

func DefaultParams() Params {
	return Params{MaxIterations: 5, Temperature: 0.1}
}

// Service is the reasoning controller. It drives one query through
// PLAN, SEARCH, GENERATE and AUDIT, looping back to SEARCH while the
// self-assessed confidence stays below the threshold.
type Service struct {
	generator domain.Generator
	searcher  Searcher
	masker    Masker
	params    Params
}

func New(generator domain.Generator, searcher Searcher, masker Masker, params Params) *Service {
	if params.MaxIterations < 0 {
		params.MaxIterations = 0
	}
	return &Service{generator: generator, searcher: searcher, masker: masker, params: params}
}

// state is private to one in-flight query. It is never shared.
type state struct {
	query          string
	plan           string
	searchResults  []domain.Chunk
	context        string
	citations      []domain.Citation
	answer         string
	confidence     float64
	requiresSearch bool
	iteration      int
}

// Answer runs the full reasoning workflow for one query. maskPII
// controls whether the query is redacted before processing; piiCount
// reports how many entities were masked either way.
func (s *Service) Answer(ctx context.Context, query string, maskPII bool) (domain.Answer, error) {
	log := logger.FromContext(ctx)

	var masked bool
	var piiCount int
	if maskPII && s.masker != nil {
		res := s.masker.Mask(query)
		query = res.Masked
		masked = res.DidMask
		piiCount = res.Count
		if masked {
			log.Info("masked PII in query", zap.Int("entities", piiCount))
		}
	}

	st := &state{query: query}

	s.plan(ctx, st)
	s.search(ctx, st)
	s.generate(ctx, st)
	s.audit(ctx, st)

	for st.confidence < confidenceThreshold && st.iteration < s.params.MaxIterations {
		st.iteration++
		log.Info("confidence below threshold, iterating",
			zap.Float64("confidence", st.confidence),
			zap.Int("iteration", st.iteration))
		s.search(ctx, st)
		s.generate(ctx, st)
		s.audit(ctx, st)
	}
	metrics.AgentIterations.Observe(float64(st.iteration))

	excerpt := st.context
	if len(excerpt) > contextExcerptLimit {
		excerpt = excerpt[:contextExcerptLimit]
	}
	citations := st.citations
	if citations == nil {
		citations = []domain.Citation{}
	}
	log.Info("query answered",
		zap.Float64("confidence", st.confidence),
		zap.Int("citations", len(citations)),
		zap.Int("iterations", st.iteration))

	return domain.Answer{
		Text:           st.answer,
		Citations:      citations,
		Confidence:     st.confidence,
		ContextExcerpt: excerpt,
		Iterations:     st.iteration,
		PIIMasked:      masked,
		PIICount:       piiCount,
	}, nil
}

// plan asks the generator whether the query needs document retrieval.
// Ambiguous output and call failures both fall back to requiring
// search: skipping retrieval risks an unsupported answer.
func (s *Service) plan(ctx context.Context, st *state) {
	log := logger.FromContext(ctx)
	prompt := fmt.Sprintf(planPromptTemplate, st.query)

	text, err := s.generator.Complete(ctx, planSystemPrompt, prompt, s.params.Temperature)
	if err != nil {
		log.Warn("plan stage failed, defaulting to search", zap.Error(err))
		st.requiresSearch = true
		return
	}
	st.plan = text

	decision := parseSearchDecision(text)
	st.requiresSearch = decision != domain.SearchNotRequired
	log.Debug("plan completed",
		zap.Stringer("decision", decision),
		zap.Bool("requires_search", st.requiresSearch))
}

// search runs hybrid retrieval and builds the numbered context window
// with 1:1 citations. Skipped entirely when the plan ruled search out.
func (s *Service) search(ctx context.Context, st *state) {
	if !st.requiresSearch {
		return
	}
	log := logger.FromContext(ctx)

	results, err := s.searcher.Search(ctx, st.query)
	if err != nil {
		log.Warn("search stage failed", zap.Error(err))
		st.searchResults = nil
		return
	}
	st.searchResults = results

	parts := make([]string, len(results))
	citations := make([]domain.Citation, len(results))
	for i := range results {
		parts[i] = fmt.Sprintf("[%d] %s", i+1, results[i].Content)
		citations[i] = domain.CitationFromChunk(&results[i])
	}
	st.context = strings.Join(parts, "\n\n")
	st.citations = citations
	log.Debug("search completed", zap.Int("chunks", len(results)))
}

// generate produces the answer, grounded in the context when one
// exists. A failed call yields a fixed fallback answer so the audit
// stage still runs.
func (s *Service) generate(ctx context.Context, st *state) {
	var prompt string
	if st.requiresSearch && st.context != "" {
		prompt = fmt.Sprintf(generateWithContextTemplate, st.context, st.query)
	} else {
		prompt = fmt.Sprintf(generateDirectTemplate, st.query)
	}

	text, err := s.generator.Complete(ctx, generateSystemPrompt, prompt, s.params.Temperature)
	if err != nil {
		logger.FromContext(ctx).Warn("generate stage failed, using fallback answer", zap.Error(err))
		st.answer = fallbackAnswer
		return
	}
	st.answer = text
}

// audit scores how well the answer matches the context. Without
// context there is nothing to check against and a fixed default
// applies. Unparseable or failed audits score neutral.
func (s *Service) audit(ctx context.Context, st *state) {
	if !st.requiresSearch || st.context == "" {
		st.confidence = directAnswerConfidence
		return
	}
	log := logger.FromContext(ctx)
	prompt := fmt.Sprintf(auditPromptTemplate, st.context, st.answer)

	text, err := s.generator.Complete(ctx, auditSystemPrompt, prompt, 0)
	if err != nil {
		log.Warn("audit stage failed, using neutral confidence", zap.Error(err))
		st.confidence = neutralConfidence
		return
	}
	conf, ok := parseConfidence(text)
	if !ok {
		log.Warn("audit output had no parseable score", zap.String("output", text))
		st.confidence = neutralConfidence
		return
	}
	st.confidence = conf
	log.Debug("audit completed", zap.Float64("confidence", conf))
}
