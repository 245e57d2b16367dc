package agent

import (
	"context"
	"fmt"
	"log/slog"
)

// Workflow wires the agents into the chat pipeline. General queries go
// through query expansion, hybrid retrieval, and synthesis; air quality
// queries go through the real-time branch and then synthesis with the
// readings as extra context.
type Workflow struct {
	classifier   *Classifier
	queryContext *QueryContextAgent
	retrieval    *RetrievalAgent
	airQuality   *AirQualityAgent
	synthesis    *SynthesisAgent
	logger       *slog.Logger
}

// NewWorkflow assembles the workflow from its agents.
func NewWorkflow(
	classifier *Classifier,
	queryContext *QueryContextAgent,
	retrieval *RetrievalAgent,
	airQuality *AirQualityAgent,
	synthesis *SynthesisAgent,
	logger *slog.Logger,
) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		classifier:   classifier,
		queryContext: queryContext,
		retrieval:    retrieval,
		airQuality:   airQuality,
		synthesis:    synthesis,
		logger:       logger,
	}
}

// Retrieval returns the retrieval agent, letting callers preload the
// lexical index at startup.
func (w *Workflow) Retrieval() *RetrievalAgent {
	return w.retrieval
}

// Run processes one query end to end and returns the final state.
func (w *Workflow) Run(ctx context.Context, userQuery, locationInput string) (*State, error) {
	state := &State{UserQuery: userQuery, LocationInput: locationInput}

	queryType, err := w.classifier.Classify(ctx, userQuery)
	if err != nil {
		return nil, err
	}
	state.QueryType = queryType
	w.logger.Debug("query classified", "type", queryType)

	if queryType == QueryTypeAirQuality {
		if err := w.airQuality.Run(ctx, state); err != nil {
			return nil, err
		}
		if state.NeedsLocation {
			state.Answer = locationMessage(state)
			return state, nil
		}
		if err := w.synthesis.Synthesize(ctx, state); err != nil {
			return nil, err
		}
		return state, nil
	}

	if err := w.runRetrieval(ctx, state); err != nil {
		return nil, err
	}
	if err := w.synthesis.Synthesize(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// RunStream processes one query and emits workflow events on the
// returned channel. The channel is closed after the done event.
func (w *Workflow) RunStream(ctx context.Context, userQuery, locationInput string) <-chan Event {
	events := make(chan Event)

	go func() {
		defer close(events)

		emit := func(e Event) bool {
			select {
			case events <- e:
				return true
			case <-ctx.Done():
				return false
			}
		}

		state := &State{UserQuery: userQuery, LocationInput: locationInput}

		queryType, err := w.classifier.Classify(ctx, userQuery)
		if err != nil {
			emit(Event{Type: EventError, Message: err.Error()})
			return
		}
		state.QueryType = queryType

		if queryType == QueryTypeAirQuality {
			w.streamAirQuality(ctx, state, emit)
			return
		}
		w.streamGeneral(ctx, state, emit)
	}()

	return events
}

func (w *Workflow) streamAirQuality(ctx context.Context, state *State, emit func(Event) bool) {
	if !emit(Event{Type: EventTool, Tool: "air_quality", Description: "Processing air quality query..."}) {
		return
	}

	if err := w.airQuality.Run(ctx, state); err != nil {
		emit(Event{Type: EventError, Message: err.Error()})
		return
	}
	if state.NeedsLocation {
		emit(Event{Type: EventLocationNeeded, Message: locationMessage(state)})
		return
	}

	if state.Timeseries != nil {
		if !emit(Event{Type: EventAirQuality, Timeseries: state.Timeseries}) {
			return
		}
	}
	if !emit(Event{Type: EventAnswer, Content: state.Answer, Sources: state.Sources}) {
		return
	}
	emit(Event{Type: EventDone, Sources: state.Sources})
}

func (w *Workflow) streamGeneral(ctx context.Context, state *State, emit func(Event) bool) {
	rewrites, keywords, err := w.queryContext.Expand(ctx, state.UserQuery)
	if err != nil {
		emit(Event{Type: EventError, Message: err.Error()})
		return
	}
	state.Rewrites = rewrites
	state.Keywords = keywords

	if !emit(Event{
		Type:        EventQueryContext,
		Tool:        "query_context",
		Description: "Generated rewrites and keywords.",
		Rewrites:    rewrites,
		Keywords:    keywords,
	}) {
		return
	}

	if !emit(Event{Type: EventTool, Tool: "retrieval", Description: "Retrieving relevant documents."}) {
		return
	}
	docs, err := w.retrieval.Retrieve(ctx, state.UserQuery, rewrites, keywords)
	if err != nil {
		emit(Event{Type: EventError, Message: err.Error()})
		return
	}
	state.Retrieved = docs

	err = w.synthesis.SynthesizeStream(ctx, state, func(token string) {
		emit(Event{Type: EventToken, Token: token})
	})
	if err != nil {
		emit(Event{Type: EventError, Message: err.Error()})
		return
	}

	if !emit(Event{Type: EventAnswer, Content: state.Answer, Sources: state.Sources}) {
		return
	}
	emit(Event{Type: EventDone, Sources: state.Sources})
}

func (w *Workflow) runRetrieval(ctx context.Context, state *State) error {
	rewrites, keywords, err := w.queryContext.Expand(ctx, state.UserQuery)
	if err != nil {
		return err
	}
	state.Rewrites = rewrites
	state.Keywords = keywords

	docs, err := w.retrieval.Retrieve(ctx, state.UserQuery, rewrites, keywords)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}
	state.Retrieved = docs
	return nil
}

func locationMessage(state *State) string {
	if state.LocationError != "" {
		return state.LocationError
	}
	return locationPrompt
}
