// Package pipeline runs a request through classification, topic extraction,
// profile lookup and generation, in either mock or azure mode.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/agentskel/internal/composer"
	"github.com/kalambet/agentskel/internal/intent"
	"github.com/kalambet/agentskel/internal/knowledge"
	"github.com/kalambet/agentskel/internal/planner"
	"github.com/kalambet/agentskel/internal/profile"
	"github.com/kalambet/agentskel/internal/proxy"
	"github.com/kalambet/agentskel/internal/retrieval"
)

const (
	ModeMock  = "mock"
	ModeAzure = "azure"

	defaultMaxParallel = 4
	defaultNumKeywords = 5
)

// Models names the Azure deployments used for each stage.
type Models struct {
	Planner  string
	Executor string
	Enhancer string
}

// Options configures an Agent. A nil Completer selects mock mode.
type Options struct {
	Completer        proxy.Completer
	Models           Models
	MaxParallel      int
	NumKeywords      int
	MaxContextTokens int
}

// Details is the processing metadata attached to every response.
type Details struct {
	RequestID     string              `json:"request_id"`
	Mode          string              `json:"mode"`
	Category      string              `json:"category"`
	MatchedDomain string              `json:"matched_domain,omitempty"`
	CategoryScore int                 `json:"category_score"`
	DomainScore   int                 `json:"domain_score"`
	Complex       bool                `json:"complex"`
	Topic         string              `json:"topic"`
	Keywords      []string            `json:"keywords"`
	UserID        string              `json:"user_id"`
	Expertise     knowledge.Expertise `json:"expertise"`
	RAGTopics     []string            `json:"rag_topics"`
	DurationMs    int64               `json:"duration_ms"`
	// Fallback describes how the azure path degraded, if it did.
	Fallback string `json:"fallback,omitempty"`
}

// PlanResponse is the result of Run.
type PlanResponse struct {
	Plan    []string         `json:"plan"`
	Results []planner.Result `json:"results"`
	Details Details          `json:"processing_details"`
}

// EnhanceResponse is the result of Enhance. EnhancedResponse is only set in
// azure mode.
type EnhanceResponse struct {
	EnhancedPrompt   string  `json:"enhanced_prompt"`
	EnhancedResponse string  `json:"enhanced_response,omitempty"`
	Details          Details `json:"processing_details"`
}

// Analysis is the classification view of a text, without generation.
type Analysis struct {
	Classification intent.Classification `json:"classification"`
	Topic          string                `json:"topic"`
	Keywords       []string              `json:"keywords"`
}

// Agent wires the classification and generation components together. It is
// safe for concurrent use.
type Agent struct {
	tables     *knowledge.Tables
	classifier *intent.Classifier
	planner    *planner.Generator
	retriever  *retrieval.Retriever
	profiles   *profile.Manager
	composer   *composer.Composer

	llm         proxy.Completer
	models      Models
	maxParallel int
}

// New creates an Agent over t.
func New(t *knowledge.Tables, opts Options) *Agent {
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = defaultMaxParallel
	}
	if opts.NumKeywords <= 0 {
		opts.NumKeywords = defaultNumKeywords
	}
	return &Agent{
		tables:      t,
		classifier:  intent.NewClassifier(t),
		planner:     planner.NewGenerator(t),
		retriever:   retrieval.NewRetriever(t, opts.NumKeywords),
		profiles:    profile.NewManager(t),
		composer:    composer.New(t, opts.MaxContextTokens),
		llm:         opts.Completer,
		models:      opts.Models,
		maxParallel: opts.MaxParallel,
	}
}

// Mode reports "azure" when a completer is configured and "mock" otherwise.
func (a *Agent) Mode() string {
	if a.llm != nil {
		return ModeAzure
	}
	return ModeMock
}

// Tables returns the knowledge tables the agent was built with.
func (a *Agent) Tables() *knowledge.Tables { return a.tables }

// Classify analyses text without generating anything.
func (a *Agent) Classify(text string) Analysis {
	kw := a.retriever.Retrieve(text).Keywords
	if kw == nil {
		kw = []string{}
	}
	return Analysis{
		Classification: a.classifier.Classify(text),
		Topic:          intent.ExtractTopic(text),
		Keywords:       kw,
	}
}

// prepared is the shared front half of Run and Enhance.
type prepared struct {
	start     time.Time
	class     intent.Classification
	topic     string
	retrieval retrieval.Retrieval
	user      profile.UserProfile
	skill     knowledge.SkillParams
	details   Details
}

func (a *Agent) prepare(req Request) prepared {
	p := prepared{start: time.Now()}
	p.class = a.classifier.Classify(req.Text)
	p.topic = intent.ExtractTopic(req.Text)
	p.retrieval = a.retriever.Retrieve(req.Text)
	p.user = a.profiles.Resolve(req.UserID, req.Profile)
	p.skill = a.profiles.Params(p.user)

	keywords := p.retrieval.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	p.details = Details{
		RequestID:     uuid.NewString(),
		Mode:          a.Mode(),
		Category:      p.class.Category,
		MatchedDomain: p.class.MatchedDomain,
		CategoryScore: p.class.CategoryScore,
		DomainScore:   p.class.DomainScore,
		Complex:       p.class.Complex,
		Topic:         p.topic,
		Keywords:      keywords,
		UserID:        req.UserID,
		Expertise:     p.user.Expertise,
		RAGTopics:     p.retrieval.TopicNames(),
	}

	slog.Info("request classified",
		"request_id", p.details.RequestID,
		"category", p.class.Category,
		"domain", p.class.MatchedDomain,
		"complex", p.class.Complex,
		"topic", p.topic,
		"expertise", p.user.Expertise,
	)
	return p
}

func (p *prepared) finish() {
	p.details.DurationMs = time.Since(p.start).Milliseconds()
}

// Run produces a plan and one result per step. In azure mode the plan and the
// results come from the model, each degrading to the mock output on failure.
func (a *Agent) Run(ctx context.Context, req Request) (PlanResponse, error) {
	if err := req.Validate(); err != nil {
		return PlanResponse{}, err
	}
	p := a.prepare(req)

	var plan planner.Plan
	if a.llm == nil {
		plan = a.planner.Plan(p.class, p.topic)
	} else {
		plan, p.details.Fallback = a.runAzure(ctx, req, p)
		if err := ctx.Err(); err != nil {
			return PlanResponse{}, err
		}
	}

	p.finish()
	return PlanResponse{
		Plan:    plan.StepTexts(),
		Results: plan.Results,
		Details: p.details,
	}, nil
}

// Enhance builds the enhanced prompt. In azure mode it also asks the enhancer
// model to answer with the composed system prompt, then appends the offers
// and documents sections to the answer.
func (a *Agent) Enhance(ctx context.Context, req Request) (EnhanceResponse, error) {
	if err := req.Validate(); err != nil {
		return EnhanceResponse{}, err
	}
	p := a.prepare(req)

	cat, _ := a.tables.Category(p.class.Category)
	in := composer.Input{
		Prompt:         req.Text,
		Topic:          p.topic,
		Category:       cat,
		Retrieval:      p.retrieval,
		Snippets:       req.Context,
		Skill:          p.skill,
		ProfileSummary: profile.Summary(p.user),
	}
	if d, ok := a.tables.Domain(p.class.MatchedDomain); ok {
		in.Domain = &d
	}

	resp := EnhanceResponse{EnhancedPrompt: a.composer.Compose(in)}
	if a.llm != nil {
		resp.EnhancedResponse, p.details.Fallback = a.enhanceAzure(ctx, req, p, in)
		if err := ctx.Err(); err != nil {
			return EnhanceResponse{}, err
		}
	}

	p.finish()
	resp.Details = p.details
	return resp, nil
}
