package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sjvalley/go-airchat/pkg/airquality"
	"github.com/sjvalley/go-airchat/pkg/llm"
	"github.com/sjvalley/go-airchat/pkg/prompts"
)

// locationPrompt is shown when a query needs a location the user has
// not provided.
const locationPrompt = "Please enter a city, county, or zip code in the San Joaquin Valley:"

// AirQualityAgent answers real-time air quality questions: it extracts
// a location from the query, geocodes it, checks it is inside the San
// Joaquin Valley, fetches current readings, and summarizes them.
type AirQualityAgent struct {
	llm     llm.Client
	meteo   *airquality.Client
	history *airquality.History
	logger  *slog.Logger
}

// NewAirQualityAgent creates an air quality agent. The history recorder
// may be nil to skip persisting fetched timeseries.
func NewAirQualityAgent(client llm.Client, meteo *airquality.Client, history *airquality.History, logger *slog.Logger) *AirQualityAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &AirQualityAgent{
		llm:     client,
		meteo:   meteo,
		history: history,
		logger:  logger,
	}
}

type extractedLocation struct {
	City   string `json:"city"`
	County string `json:"county"`
	Zip    string `json:"zip"`
}

// Run processes an air quality query and fills in the state. When no
// usable valley location can be determined it sets NeedsLocation
// instead of answering.
func (a *AirQualityAgent) Run(ctx context.Context, state *State) error {
	query := state.UserQuery
	if state.LocationInput != "" {
		query = state.LocationInput
	}

	place, err := a.extractLocation(ctx, query)
	if err != nil {
		a.logger.Warn("location extraction failed", "error", err)
		state.NeedsLocation = true
		return nil
	}
	if place == "" {
		state.NeedsLocation = true
		return nil
	}

	loc, err := a.meteo.Geocode(ctx, place)
	if err != nil {
		// A geocoder outage reads the same as an unresolvable place:
		// ask the user for a location instead of failing the request.
		a.logger.Warn("geocoding failed", "place", place, "error", err)
		state.NeedsLocation = true
		return nil
	}
	if loc == nil {
		state.NeedsLocation = true
		return nil
	}
	if !airquality.InValley(*loc) {
		state.NeedsLocation = true
		state.LocationError = fmt.Sprintf("Sorry, %s is not in the San Joaquin Valley. Please enter a city, county, or zip code within the valley.", place)
		return nil
	}

	report, err := a.meteo.FetchAirQuality(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		return fmt.Errorf("air quality fetch failed: %w", err)
	}

	if a.history != nil {
		if err := a.history.Record(ctx, *loc, report); err != nil {
			a.logger.Warn("failed to record air quality history", "location", loc.Name, "error", err)
		}
	}

	answer, err := a.summarize(ctx, loc.Name, report.Summary)
	if err != nil {
		return fmt.Errorf("air quality summary failed: %w", err)
	}

	state.Answer = answer
	state.AirQuality = &report.Summary
	state.Timeseries = &report.Timeseries
	state.Location = loc
	return nil
}

// extractLocation pulls a city, county, or zip out of the query via the
// LLM. Returns "" when nothing was mentioned.
func (a *AirQualityAgent) extractLocation(ctx context.Context, query string) (string, error) {
	resp, err := a.llm.Chat(ctx, prompts.ExtractLocation(query))
	if err != nil {
		return "", err
	}

	var loc extractedLocation
	if err := llm.UnmarshalResponse(resp.Content, &loc); err != nil {
		return "", err
	}

	for _, candidate := range []string{loc.City, loc.County, loc.Zip} {
		if s := strings.TrimSpace(candidate); s != "" {
			return s, nil
		}
	}
	return "", nil
}

func (a *AirQualityAgent) summarize(ctx context.Context, location string, reading airquality.Reading) (string, error) {
	other := strings.Join([]string{
		fmt.Sprintf("NO2: %s ppb", formatReading(reading.NO2)),
		fmt.Sprintf("SO2: %s ppb", formatReading(reading.SO2)),
		fmt.Sprintf("CO: %s ppm", formatReading(reading.CO)),
	}, ", ")

	messages := prompts.SummarizeAirQuality(
		location,
		reading.AQI,
		reading.Category,
		formatReading(reading.PM25),
		formatReading(reading.Ozone),
		other,
	)

	resp, err := a.llm.Chat(ctx, messages)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

func formatReading(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", *v), "0"), ".")
}
