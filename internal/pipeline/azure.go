package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/agentskel/internal/composer"
	"github.com/kalambet/agentskel/internal/planner"
	"github.com/kalambet/agentskel/internal/proxy"
)

// runAzure asks the planner model for numbered subtasks and the executor
// model for each result. A bad plan falls back to the mock plan; a failed
// subtask falls back to its mock result. The returned string describes any
// fallback taken.
func (a *Agent) runAzure(ctx context.Context, req Request, p prepared) (planner.Plan, string) {
	reply, err := a.llm.Complete(ctx, proxy.CompletionRequest{
		Model:  a.models.Planner,
		System: a.tables.PlannerPrompt,
		User:   req.Text,
	})
	if err != nil {
		slog.Warn("planner call failed, using mock plan", "request_id", p.details.RequestID, "error", err)
		return a.planner.Plan(p.class, p.topic), fmt.Sprintf("planner: %v", err)
	}
	texts, err := planner.ParseSteps(reply)
	if err != nil {
		slog.Warn("planner reply unusable, using mock plan", "request_id", p.details.RequestID, "error", err)
		return a.planner.Plan(p.class, p.topic), fmt.Sprintf("planner: %v", err)
	}

	plan := planner.Plan{
		Steps:   make([]planner.Step, len(texts)),
		Results: make([]planner.Result, len(texts)),
	}
	var failed atomic.Int32

	g := new(errgroup.Group)
	g.SetLimit(a.maxParallel)
	for i, text := range texts {
		step := planner.Step{Text: text}
		plan.Steps[i] = step
		g.Go(func() error {
			out, err := a.llm.Complete(ctx, proxy.CompletionRequest{
				Model:       a.models.Executor,
				System:      a.executorPrompt(text, p),
				User:        fmt.Sprintf("Overall request: %s\n\nSubtask %d of %d: %s", req.Text, i+1, len(texts), text),
				Temperature: p.skill.Temperature,
				MaxTokens:   p.skill.MaxTokens,
			})
			if err != nil {
				slog.Warn("executor call failed, using mock result",
					"request_id", p.details.RequestID, "step", i+1, "error", err)
				out = a.planner.MockResult(p.class, p.topic, i, step)
				failed.Add(1)
			}
			plan.Results[i] = planner.Result{Subtask: text, Result: strings.TrimSpace(out)}
			return nil
		})
	}
	g.Wait()

	if n := failed.Load(); n > 0 {
		return plan, fmt.Sprintf("executor: %d of %d subtasks used mock results", n, len(texts))
	}
	return plan, ""
}

func (a *Agent) executorPrompt(step string, p prepared) string {
	parts := []string{a.tables.ExecutorPrompt}
	if g := a.planner.StepGuidance(step); g != "" {
		parts = append(parts, g)
	}
	if p.skill.SystemPromptAddon != "" {
		parts = append(parts, p.skill.SystemPromptAddon)
	}
	return strings.Join(parts, "\n\n")
}

// enhanceAzure returns the enhancer model's answer with the offers and
// documents sections appended. On failure it returns no answer and the
// fallback reason.
func (a *Agent) enhanceAzure(ctx context.Context, req Request, p prepared, in composer.Input) (string, string) {
	out, err := a.llm.Complete(ctx, proxy.CompletionRequest{
		Model:       a.models.Enhancer,
		System:      a.composer.SystemPrompt(in),
		User:        req.Text,
		Temperature: p.skill.Temperature,
		MaxTokens:   p.skill.MaxTokens,
	})
	if err != nil {
		slog.Warn("enhancer call failed, returning the enhanced prompt only",
			"request_id", p.details.RequestID, "error", err)
		return "", fmt.Sprintf("enhancer: %v", err)
	}

	out = strings.TrimSpace(out)
	if extras := a.composer.Extras(in); extras != "" {
		out += "\n\n" + extras
	}
	return out, ""
}
