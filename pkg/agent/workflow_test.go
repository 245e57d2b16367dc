package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjvalley/go-airchat/pkg/airquality"
	"github.com/sjvalley/go-airchat/pkg/crossencoder"
	"github.com/sjvalley/go-airchat/pkg/vectorstore"
)

func newTestWorkflow(t *testing.T, llmClient *scriptedLLM, store *fakeStore, meteo *airquality.Client) *Workflow {
	t.Helper()
	return NewWorkflow(
		NewClassifier(llmClient, nil),
		NewQueryContextAgent(llmClient, nil),
		NewRetrievalAgent(store, fakeEmbedder{}, crossencoder.NewMockClient(crossencoder.Config{}), 4, nil),
		NewAirQualityAgent(llmClient, meteo, nil, nil),
		NewSynthesisAgent(llmClient),
		nil,
	)
}

func newFakeOpenMeteo(t *testing.T, geocodeResults []airquality.Location) *airquality.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") != "" {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"results": geocodeResults})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"hourly": map[string]interface{}{
				"time":  []string{"2026-08-29T10:00"},
				"pm2_5": []interface{}{10.0},
				"ozone": []interface{}{30.0},
			},
		})
	}))
	t.Cleanup(srv.Close)

	return airquality.NewClient(airquality.ClientConfig{
		GeocodingURL:  srv.URL,
		AirQualityURL: srv.URL,
	}, nil, nil)
}

func generalResponses() map[string]string {
	return map[string]string{
		"classifier":       "general",
		"search assistant": `{"rewrites":["burn day rules today","wood burning restrictions","residential burning limits"],"keywords":["wood burning","burn day","restrictions","residential","winter"]}`,
		"San Joaquin Valley Air Pollution Control District": "Wood burning is restricted on no-burn days. Visit valleyair.org for today's status.",
	}
}

func airQualityResponses() map[string]string {
	return map[string]string{
		"classifier":         "air_quality",
		"location extractor": `{"city":"Fresno","county":"","zip":""}`,
		"air quality assistant": "Air quality in Fresno is good right now.",
		"San Joaquin Valley Air Pollution Control District": "The AQI in Fresno is 41, which is good.",
	}
}

func TestWorkflowGeneralPath(t *testing.T) {
	store := &fakeStore{
		corpus: []vectorstore.Document{
			{Content: "wood burning restrictions in winter", URL: "https://valleyair.org/burning", Title: "Burning"},
		},
		vectorHits: []vectorstore.Document{
			{Content: "check before you burn", URL: "https://valleyair.org/cbyb", Title: "CBYB"},
		},
	}
	w := newTestWorkflow(t, &scriptedLLM{responses: generalResponses()}, store, newFakeOpenMeteo(t, nil))

	state, err := w.Run(context.Background(), "Can I burn wood today?", "")
	require.NoError(t, err)

	assert.Equal(t, QueryTypeGeneral, state.QueryType)
	assert.Len(t, state.Rewrites, 3)
	assert.NotEmpty(t, state.Retrieved)
	assert.Contains(t, state.Answer, "no-burn days")
	assert.NotEmpty(t, state.Sources)
}

func TestWorkflowGeneralPathEmptyRetrieval(t *testing.T) {
	responses := generalResponses()
	responses["San Joaquin Valley Air Pollution Control District"] = "I don't have specific information about that. Please call 559-230-5800."
	w := newTestWorkflow(t, &scriptedLLM{responses: responses}, &fakeStore{}, newFakeOpenMeteo(t, nil))

	state, err := w.Run(context.Background(), "Can I burn wood today?", "")
	require.NoError(t, err)

	// Nothing retrieved still produces a synthesized answer, just with
	// no sources to cite.
	assert.Empty(t, state.Retrieved)
	assert.Contains(t, state.Answer, "559-230-5800")
	assert.Empty(t, state.Sources)
}

func TestWorkflowAirQualityPath(t *testing.T) {
	meteo := newFakeOpenMeteo(t, []airquality.Location{{
		Name:      "Fresno",
		Latitude:  36.74773,
		Longitude: -119.77237,
		Admin2:    "Fresno County",
	}})
	w := newTestWorkflow(t, &scriptedLLM{responses: airQualityResponses()}, &fakeStore{}, meteo)

	state, err := w.Run(context.Background(), "What is the air quality in Fresno?", "")
	require.NoError(t, err)

	assert.Equal(t, QueryTypeAirQuality, state.QueryType)
	assert.False(t, state.NeedsLocation)
	require.NotNil(t, state.AirQuality)
	assert.Equal(t, "Good", state.AirQuality.Category)
	// Final answer comes from synthesis over the real-time context.
	assert.Contains(t, state.Answer, "AQI")
}

func TestWorkflowAirQualityOutOfArea(t *testing.T) {
	meteo := newFakeOpenMeteo(t, []airquality.Location{{
		Name:   "San Francisco",
		Admin2: "San Francisco County",
	}})
	responses := airQualityResponses()
	responses["location extractor"] = `{"city":"San Francisco","county":"","zip":""}`
	w := newTestWorkflow(t, &scriptedLLM{responses: responses}, &fakeStore{}, meteo)

	state, err := w.Run(context.Background(), "How is the air in San Francisco?", "")
	require.NoError(t, err)

	assert.True(t, state.NeedsLocation)
	assert.Contains(t, state.Answer, "not in the San Joaquin Valley")
}

func TestWorkflowAirQualityNeedsLocation(t *testing.T) {
	responses := airQualityResponses()
	responses["location extractor"] = `{"city":"","county":"","zip":""}`
	w := newTestWorkflow(t, &scriptedLLM{responses: responses}, &fakeStore{}, newFakeOpenMeteo(t, nil))

	state, err := w.Run(context.Background(), "What's the AQI?", "")
	require.NoError(t, err)

	assert.True(t, state.NeedsLocation)
	assert.Equal(t, locationPrompt, state.Answer)
}

func TestWorkflowAirQualityGeocoderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	meteo := airquality.NewClient(airquality.ClientConfig{
		GeocodingURL:  srv.URL,
		AirQualityURL: srv.URL,
	}, nil, nil)

	w := newTestWorkflow(t, &scriptedLLM{responses: airQualityResponses()}, &fakeStore{}, meteo)

	// A geocoder outage asks for a location instead of failing the chat.
	state, err := w.Run(context.Background(), "What is the air quality in Fresno?", "")
	require.NoError(t, err)

	assert.True(t, state.NeedsLocation)
	assert.Equal(t, locationPrompt, state.Answer)
}

func TestWorkflowStreamGeneralPath(t *testing.T) {
	store := &fakeStore{
		corpus: []vectorstore.Document{
			{Content: "wood burning restrictions in winter", URL: "https://valleyair.org/burning", Title: "Burning"},
		},
		vectorHits: []vectorstore.Document{
			{Content: "check before you burn", URL: "https://valleyair.org/cbyb", Title: "CBYB"},
		},
	}
	w := newTestWorkflow(t, &scriptedLLM{responses: generalResponses()}, store, newFakeOpenMeteo(t, nil))

	var types []EventType
	var tokens int
	var final Event
	for event := range w.RunStream(context.Background(), "Can I burn wood today?", "") {
		types = append(types, event.Type)
		if event.Type == EventToken {
			tokens++
		}
		if event.Type == EventAnswer {
			final = event
		}
	}

	assert.Contains(t, types, EventQueryContext)
	assert.Contains(t, types, EventTool)
	assert.Greater(t, tokens, 0)
	assert.Equal(t, EventDone, types[len(types)-1])
	assert.Contains(t, final.Content, "no-burn days")
	assert.NotEmpty(t, final.Sources)
}

func TestWorkflowStreamAirQualityPath(t *testing.T) {
	meteo := newFakeOpenMeteo(t, []airquality.Location{{
		Name:   "Clovis",
		Admin2: "Fresno County",
	}})
	responses := airQualityResponses()
	responses["location extractor"] = `{"city":"Clovis","county":"","zip":""}`
	w := newTestWorkflow(t, &scriptedLLM{responses: responses}, &fakeStore{}, meteo)

	var sawTimeseries bool
	var types []EventType
	for event := range w.RunStream(context.Background(), "air quality in Clovis", "") {
		types = append(types, event.Type)
		if event.Type == EventAirQuality {
			sawTimeseries = event.Timeseries != nil
		}
	}

	assert.True(t, sawTimeseries)
	assert.Equal(t, EventDone, types[len(types)-1])
}
