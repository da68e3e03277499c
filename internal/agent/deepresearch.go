package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kestrelbio/forager/pkg/models"
)

const deepResearchSystem = `You are a pharmaceutical research analyst. Given a research
question, list the most relevant findings you are confident about, ordered from most
to least relevant. Respond with ONLY a JSON array of objects with fields
"title" (short finding), "detail" (one paragraph), and "confidence" (0.0-1.0).`

// DeepResearchAgent asks an LLM for a ranked finding list. The model's
// output order is the source ranking and its self-reported confidence is
// carried as the per-source confidence signal.
type DeepResearchAgent struct {
	client     anthropic.Client
	model      anthropic.Model
	maxResults int
}

// NewDeepResearchAgent creates the deep-research agent. The API key is
// required; model defaults to Claude Sonnet when empty.
func NewDeepResearchAgent(apiKey string, model string, maxResults int) (*DeepResearchAgent, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api key is not set")
	}
	m := anthropic.Model(model)
	if model == "" {
		m = anthropic.ModelClaudeSonnet4_20250514
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	return &DeepResearchAgent{
		client:     anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:      m,
		maxResults: maxResults,
	}, nil
}

// Name implements Agent.
func (a *DeepResearchAgent) Name() string {
	return string(models.CapabilityDeepResearch)
}

// Capability implements Agent.
func (a *DeepResearchAgent) Capability() models.Capability {
	return models.CapabilityDeepResearch
}

type deepFinding struct {
	Title      string   `json:"title"`
	Detail     string   `json:"detail"`
	Confidence *float64 `json:"confidence"`
}

// Execute implements Agent.
func (a *DeepResearchAgent) Execute(ctx context.Context, query models.Query) ([]models.Evidence, error) {
	prompt := fmt.Sprintf("Research question: %q", query.Text)
	if query.TherapeuticArea != "" {
		prompt += fmt.Sprintf("\nTherapeutic area: %s", query.TherapeuticArea)
	}
	prompt += fmt.Sprintf("\nReturn at most %d findings.", a.maxResults)

	text, err := a.complete(ctx, deepResearchSystem, prompt)
	if err != nil {
		return nil, NewError(a.Name(), err)
	}

	var findings []deepFinding
	if err := json.Unmarshal([]byte(stripFences(text)), &findings); err != nil {
		return nil, NewError(a.Name(), fmt.Errorf("parse findings: %w", err))
	}

	evidence := make([]models.Evidence, 0, len(findings))
	for i, f := range findings {
		if f.Title == "" {
			continue
		}
		if i >= a.maxResults {
			break
		}
		conf := f.Confidence
		if conf != nil && (*conf < 0 || *conf > 1) {
			conf = nil
		}
		evidence = append(evidence, models.Evidence{
			Source:     a.Name(),
			Capability: a.Capability(),
			Key:        models.ContentKey(f.Title, ""),
			Title:      f.Title,
			Rank:       i + 1,
			Confidence: conf,
			Payload: models.Payload{
				Kind: models.PayloadText,
				Text: f.Detail,
			},
		})
	}
	return evidence, nil
}

// Synthesize produces a short narrative of the top fused findings.
// It never influences ranking or confidence; callers treat failures as
// a missing summary, not a round failure.
func (a *DeepResearchAgent) Synthesize(ctx context.Context, query models.Query, entries []models.FusedEntry) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "User question: %q\n\nTop findings, fused across sources:\n", query.Text)
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. %s (sources: %s)\n", i+1, e.Title, strings.Join(e.Sources, ", "))
		if i >= 9 {
			break
		}
	}
	b.WriteString("\nSynthesize these into a cohesive, professional summary answering the question.")

	return a.complete(ctx, "You are a pharmaceutical research analyst writing for a research team.", b.String())
}

// complete runs one Messages call and concatenates the text blocks.
func (a *DeepResearchAgent) complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: 2048,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(variant.Text)
		}
	}
	return sb.String(), nil
}

// stripFences removes a markdown code fence wrapper if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "```") {
		return s
	}
	parts := strings.Split(s, "```")
	if len(parts) < 2 {
		return s
	}
	body := parts[1]
	body = strings.TrimPrefix(body, "json")
	return strings.TrimSpace(body)
}
