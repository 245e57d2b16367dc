// Package agent implements the multi-agent chat workflow: query
// classification, query rewriting, hybrid retrieval with reranking,
// real-time air quality lookups, and answer synthesis.
package agent

import (
	"github.com/sjvalley/go-airchat/pkg/airquality"
	"github.com/sjvalley/go-airchat/pkg/vectorstore"
)

// QueryType is the classifier's label for a user query.
type QueryType string

const (
	// QueryTypeAirQuality routes to the real-time air quality branch.
	QueryTypeAirQuality QueryType = "air_quality"
	// QueryTypeGeneral routes to document retrieval.
	QueryTypeGeneral QueryType = "general"
)

// Source is a citation attached to an answer.
type Source struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// State carries a query through the workflow. Agents fill in their
// fields as the query advances.
type State struct {
	UserQuery     string
	LocationInput string

	QueryType QueryType
	Rewrites  []string
	Keywords  []string

	Retrieved []vectorstore.Document

	AirQuality *airquality.Reading
	Timeseries *airquality.Hourly
	Location   *airquality.Location

	NeedsLocation bool
	LocationError string

	Answer  string
	Sources []Source
}

// EventType identifies a streaming workflow event.
type EventType string

const (
	// EventTool announces that an agent started working.
	EventTool EventType = "tool"
	// EventQueryContext carries generated rewrites and keywords.
	EventQueryContext EventType = "query_context"
	// EventToken carries one generated answer token.
	EventToken EventType = "token"
	// EventAirQuality carries the hourly pollutant timeseries.
	EventAirQuality EventType = "air_quality"
	// EventLocationNeeded asks the user for a valley location.
	EventLocationNeeded EventType = "location_needed"
	// EventAnswer carries the full answer and its sources.
	EventAnswer EventType = "answer"
	// EventDone closes the stream.
	EventDone EventType = "done"
	// EventError reports a workflow failure.
	EventError EventType = "error"
)

// Event is one element of a streaming workflow run.
type Event struct {
	Type        EventType          `json:"type"`
	Tool        string             `json:"tool,omitempty"`
	Description string             `json:"description,omitempty"`
	Token       string             `json:"token,omitempty"`
	Message     string             `json:"message,omitempty"`
	Content     string             `json:"content,omitempty"`
	Rewrites    []string           `json:"rewrites,omitempty"`
	Keywords    []string           `json:"keywords,omitempty"`
	Timeseries  *airquality.Hourly `json:"data,omitempty"`
	Sources     []Source           `json:"sources,omitempty"`
}
