package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBackend struct {
	name    string
	lastReq Request
	models  []ModelInfo
	listErr error
}

func (b *recordingBackend) Complete(_ context.Context, req Request) (*Response, error) {
	b.lastReq = req
	return &Response{Content: b.name}, nil
}

func (b *recordingBackend) Stream(_ context.Context, req Request) (Stream, error) {
	b.lastReq = req
	return SliceStream(b.name), nil
}

func (b *recordingBackend) ListModels(context.Context) ([]ModelInfo, error) {
	return b.models, b.listErr
}

func TestRouter_Resolve(t *testing.T) {
	ollama := &recordingBackend{name: "ollama"}
	openai := &recordingBackend{name: "openai"}

	r := NewRouter("ollama")
	r.Register("ollama", ollama)
	r.Register("openai", openai)

	tests := []struct {
		model       string
		wantBackend string
		wantModel   string
	}{
		{model: "openai:gpt-4.1", wantBackend: "openai", wantModel: "gpt-4.1"},
		{model: "ollama:llama3:latest", wantBackend: "ollama", wantModel: "llama3:latest"},
		{model: "deepseek-r1", wantBackend: "ollama", wantModel: "deepseek-r1"},
		{model: "kimi-k2-thinking:cloud", wantBackend: "ollama", wantModel: "kimi-k2-thinking:cloud"},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			resp, err := r.Complete(context.Background(), Request{Model: tt.model})
			require.NoError(t, err)
			assert.Equal(t, tt.wantBackend, resp.Content)

			b, model, err := r.Resolve(tt.model)
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, model)
			assert.Equal(t, tt.wantBackend, b.(*recordingBackend).name)
		})
	}

	s, err := r.Stream(context.Background(), Request{Model: "openai:gpt-4o"})
	require.NoError(t, err)
	text, err := ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "openai", text)
	assert.Equal(t, "gpt-4o", openai.lastReq.Model)
}

func TestRouter_ResolveWithoutDefault(t *testing.T) {
	r := NewRouter("ollama")
	r.Register("openai", &recordingBackend{name: "openai"})

	_, _, err := r.Resolve("llama3")
	assert.Error(t, err)

	_, err = r.Complete(context.Background(), Request{Model: "llama3"})
	assert.Error(t, err)
}

func TestRouter_ListModels(t *testing.T) {
	r := NewRouter("ollama")
	r.Register("ollama", &recordingBackend{models: []ModelInfo{{ID: "llama3:latest"}}})
	r.Register("openai", &recordingBackend{listErr: errors.New("no token")})

	models, err := r.ListModels(context.Background())
	require.NoError(t, err, "one provider listing is enough")
	require.Len(t, models, 1)
	assert.Equal(t, "ollama:llama3:latest", models[0].ID)
	assert.Equal(t, "ollama", models[0].Provider)

	per := r.ListProviderModels(context.Background())
	require.Len(t, per, 2)
	assert.Error(t, per[1].Err)
	assert.Equal(t, []string{"ollama", "openai"}, r.Providers())
}

func TestRouter_ListModelsAllFail(t *testing.T) {
	r := NewRouter("ollama")
	r.Register("ollama", &recordingBackend{listErr: errors.New("connection refused")})

	_, err := r.ListModels(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
