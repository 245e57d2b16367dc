package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/sjvalley/go-airchat/pkg/llm"
	"github.com/sjvalley/go-airchat/pkg/prompts"
)

// openMeteoSourceURL is cited in the real-time air quality context block.
const openMeteoSourceURL = "https://open-meteo.com/en/docs/air-quality-api"

// SynthesisAgent turns retrieved passages and optional real-time air
// quality data into the final answer.
type SynthesisAgent struct {
	llm llm.Client
}

// NewSynthesisAgent creates a synthesis agent.
func NewSynthesisAgent(client llm.Client) *SynthesisAgent {
	return &SynthesisAgent{llm: client}
}

// Synthesize generates the answer and source list for the state.
func (a *SynthesisAgent) Synthesize(ctx context.Context, state *State) error {
	messages := prompts.Synthesis(buildContext(state), state.UserQuery)

	resp, err := a.llm.Chat(ctx, messages)
	if err != nil {
		return fmt.Errorf("synthesis failed: %w", err)
	}

	state.Answer = strings.TrimSpace(resp.Content)
	state.Sources = collectSources(state)
	return nil
}

// SynthesizeStream is the streaming variant. onToken is invoked for
// each generated token before the full answer lands in the state.
func (a *SynthesisAgent) SynthesizeStream(ctx context.Context, state *State, onToken func(token string)) error {
	messages := prompts.Synthesis(buildContext(state), state.UserQuery)

	resp, err := a.llm.ChatStream(ctx, messages, onToken)
	if err != nil {
		return fmt.Errorf("synthesis failed: %w", err)
	}

	state.Answer = strings.TrimSpace(resp.Content)
	state.Sources = collectSources(state)
	return nil
}

// buildContext joins retrieved passages, prefixed with a real-time air
// quality block when one is available.
func buildContext(state *State) string {
	parts := make([]string, 0, len(state.Retrieved))
	for _, doc := range state.Retrieved {
		parts = append(parts, doc.Content)
	}
	context := strings.Join(parts, "\n\n")

	if aq := state.AirQuality; aq != nil {
		block := fmt.Sprintf(
			"[Real-time Air Quality]\nAQI: %d (%s)\nPM2.5: %s µg/m³\nOzone: %s ppb\nSource: %s",
			aq.AQI, aq.Category, formatReading(aq.PM25), formatReading(aq.Ozone), openMeteoSourceURL,
		)
		if context == "" {
			return block
		}
		context = block + "\n" + context
	}
	return context
}

// collectSources dedupes the retrieved documents' URLs into citations.
func collectSources(state *State) []Source {
	sources := make([]Source, 0, len(state.Retrieved))
	seen := make(map[string]struct{})

	for _, doc := range state.Retrieved {
		url := doc.URL
		if url == "" {
			url = "No URL"
		}
		title := doc.Title
		if title == "" {
			title = "Untitled"
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		sources = append(sources, Source{URL: url, Title: title})
	}
	return sources
}
