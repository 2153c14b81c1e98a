package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregoriusjimmy/llm-council/internal/backend"
	"github.com/gregoriusjimmy/llm-council/internal/council"
	"github.com/gregoriusjimmy/llm-council/internal/metrics"
)

// stubBackend answers every model it knows with a fixed reply.
type stubBackend struct {
	replies   map[string]string
	chunks    []string
	streamErr error
}

func (b *stubBackend) Complete(_ context.Context, req backend.Request) (*backend.Response, error) {
	reply, ok := b.replies[req.Model]
	if !ok {
		return nil, errors.New("model not found")
	}
	return &backend.Response{Content: reply}, nil
}

func (b *stubBackend) Stream(_ context.Context, req backend.Request) (backend.Stream, error) {
	if b.streamErr != nil {
		return nil, b.streamErr
	}
	return backend.SliceStream(b.chunks...), nil
}

func (b *stubBackend) ListModels(context.Context) ([]backend.ModelInfo, error) {
	var models []backend.ModelInfo
	for id := range b.replies {
		models = append(models, backend.ModelInfo{ID: id})
	}
	return models, nil
}

func newTestServer(t *testing.T, b *stubBackend) (*httptest.Server, *council.Manager) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := council.NewManager(b, council.WithRecorder(metrics.New(reg)))
	m.SetCouncil([]council.AdvisorConfig{
		{Name: "A", Model: "m1", Role: "r1"},
		{Name: "B", Model: "m2", Role: "r2"},
	}, "chair")

	srv := New(m, Options{AllowedOrigins: []string{"http://localhost:3000"}, Gatherer: reg})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, m
}

func defaultStub() *stubBackend {
	return &stubBackend{
		replies: map[string]string{"m1": "4", "chair": "both agree"},
		chunks:  []string{"The answer ", "is 4."},
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, defaultStub())

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, 2.0, body["advisors"])
	assert.Equal(t, "chair", body["chairman"])
}

func TestTurn(t *testing.T) {
	ts, _ := newTestServer(t, defaultStub())

	resp := postJSON(t, ts.URL+"/api/v1/turns", TurnRequest{Prompt: "What is 2+2?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got TurnResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.NotEmpty(t, got.TurnID)
	assert.Equal(t, "The answer is 4.", got.Answer)
	assert.True(t, got.CritiqueOK)
	require.Len(t, got.Results, 2)
	assert.Equal(t, council.StatusSuccess, got.Results[0].Status)
	assert.Equal(t, council.StatusError, got.Results[1].Status)

	metricsResp, err := http.Get(ts.URL + "/prometheus")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(metricsResp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `llm_council_advisor_calls_total{status="error"} 1`)
}

func TestTurnStreamStartFailure(t *testing.T) {
	stub := defaultStub()
	stub.streamErr = errors.New("connection refused")
	ts, _ := newTestServer(t, stub)

	resp := postJSON(t, ts.URL+"/api/v1/turns", TurnRequest{Prompt: "q"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var got TurnResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Contains(t, got.Error, "connection refused")
	assert.Len(t, got.Results, 2)
	assert.Empty(t, got.Answer)
}

func TestTurnRequiresPrompt(t *testing.T) {
	ts, _ := newTestServer(t, defaultStub())

	resp := postJSON(t, ts.URL+"/api/v1/turns", TurnRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var got errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "prompt is required", got.Error)
}

func TestPutCouncil(t *testing.T) {
	ts, m := newTestServer(t, defaultStub())

	body, err := json.Marshal(CouncilRequest{
		ChairmanModel: "new-chair",
		Advisors:      []council.AdvisorConfig{{Name: "Solo", Model: "m1", Role: "r"}},
	})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/council", bytes.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "new-chair", m.Council().Chairman.Model)
	assert.Len(t, m.Council().Advisors, 1)

	bad, err := json.Marshal(CouncilRequest{Advisors: []council.AdvisorConfig{{Name: "NoModel"}}})
	require.NoError(t, err)
	req, err = http.NewRequest(http.MethodPut, ts.URL+"/api/v1/council", bytes.NewReader(bad))
	require.NoError(t, err)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
	assert.Equal(t, "new-chair", m.Council().Chairman.Model)
}

func TestCheckModels(t *testing.T) {
	ts, _ := newTestServer(t, defaultStub())

	resp, err := http.Get(ts.URL + "/api/v1/models/check")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got struct {
		Missing []string `json:"missing"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, []string{"m2"}, got.Missing)
}

func TestCORS(t *testing.T) {
	ts, _ := newTestServer(t, defaultStub())

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://evil.example")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}

func TestTurnWebsocket(t *testing.T) {
	ts, _ := newTestServer(t, defaultStub())

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/turns/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(TurnRequest{Prompt: "What is 2+2?"}))

	var (
		phases   []string
		advisors int
		answer   strings.Builder
		done     Event
	)
	for done.Type == "" {
		var ev Event
		require.NoError(t, conn.ReadJSON(&ev))
		switch ev.Type {
		case "phase":
			phases = append(phases, ev.Phase)
		case "advisor":
			advisors++
		case "chunk":
			answer.WriteString(ev.Content)
		case "done":
			done = ev
		case "error":
			t.Fatalf("unexpected error event: %s", ev.Error)
		}
	}

	assert.Equal(t, []string{"gathering", "critiquing", "critique_done", "synthesizing", "streaming", "done"}, phases)
	assert.Equal(t, 2, advisors)
	assert.Equal(t, "The answer is 4.", answer.String())
	require.NotNil(t, done.CritiqueOK)
	assert.True(t, *done.CritiqueOK)
}

func TestTurnWebsocketRejectsOrigin(t *testing.T) {
	ts, _ := newTestServer(t, defaultStub())

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/turns/ws"
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
