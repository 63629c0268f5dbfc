package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnavailableAlwaysUnavailable(t *testing.T) {
	var p Provider = Unavailable{}
	assert.False(t, p.Available())
	assert.Equal(t, 0, p.Dimensions())

	_, err := p.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = p.EmbedBatch(context.Background(), []string{"hello", "world"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLMStudioEmbedAgainstFakeDaemon(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/embeddings":
			var req embeddingRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			resp := embeddingResponse{Object: "list"}
			resp.Data = append(resp.Data, struct {
				Object    string    `json:"object"`
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Object: "embedding", Embedding: []float32{0.1, 0.2, 0.3}})
			_ = json.NewEncoder(w).Encode(resp)
		case "/models":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := NewLMStudio(srv.URL, "test-model")
	assert.True(t, p.Available())

	vec, err := p.Embed(context.Background(), "rotate the deploy keys")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, 3, p.Dimensions())

	batch, err := p.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, batch, 2)
}

func TestLMStudioAvailableFalseWhenUnreachable(t *testing.T) {
	p := NewLMStudio("http://127.0.0.1:1", "test-model")
	assert.False(t, p.Available())
}
