package replicate

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestNewClient_MissingToken(t *testing.T) {
	_, err := NewClient("")
	assert.ErrorIs(t, err, ErrTokenNotSet)
}

func TestCreatePrediction_ModelEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/wan-video/wan-2.5-t2v/predictions", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		doc := gjson.ParseBytes(body)
		assert.Equal(t, "a cat", doc.Get("input.prompt").String())
		assert.Equal(t, "16:9", doc.Get("input.aspect_ratio").String())
		assert.Equal(t, "https://app.example.com/hook", doc.Get("webhook").String())
		assert.Equal(t, `["completed"]`, doc.Get("webhook_events_filter").Raw)
		assert.False(t, doc.Get("version").Exists())

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pred-1","status":"starting"}`))
	}))
	defer server.Close()

	client, err := NewClient("tok", WithBaseURL(server.URL))
	require.NoError(t, err)

	pred, err := client.CreatePrediction(context.Background(), "wan-video/wan-2.5-t2v",
		[]byte(`{"prompt":"a cat","aspect_ratio":"16:9"}`), "https://app.example.com/hook")
	require.NoError(t, err)
	assert.Equal(t, "pred-1", pred.ID)
	assert.Equal(t, StatusStarting, pred.Status)
}

func TestCreatePrediction_PinnedVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predictions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		doc := gjson.ParseBytes(body)
		assert.Equal(t, "abc123", doc.Get("version").String())
		assert.False(t, doc.Get("webhook").Exists())
		_, _ = w.Write([]byte(`{"id":"pred-2","status":"starting"}`))
	}))
	defer server.Close()

	client, _ := NewClient("tok", WithBaseURL(server.URL))

	pred, err := client.CreatePrediction(context.Background(), "owner/model:abc123", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "pred-2", pred.ID)
}

func TestCreatePrediction_InvalidModel(t *testing.T) {
	client, _ := NewClient("tok")

	_, err := client.CreatePrediction(context.Background(), "no-owner", nil, "")
	assert.ErrorIs(t, err, ErrModelRequired)
}

func TestCreatePrediction_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"invalid input"}`))
	}))
	defer server.Close()

	client, _ := NewClient("tok", WithBaseURL(server.URL))

	_, err := client.CreatePrediction(context.Background(), "o/m", []byte(`{}`), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestFailed)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnprocessableEntity, se.StatusCode)
	assert.Contains(t, se.Error(), "invalid input")
}

func TestGetPrediction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/predictions/pred-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"pred-1","status":"succeeded","output":["https://replicate.delivery/out.mp4"],"metrics":{"predict_time":41.5}}`))
	}))
	defer server.Close()

	client, _ := NewClient("tok", WithBaseURL(server.URL))

	pred, err := client.GetPrediction(context.Background(), "pred-1")
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, pred.Status)
	assert.JSONEq(t, `["https://replicate.delivery/out.mp4"]`, string(pred.Output))
	assert.InDelta(t, 41.5, pred.Metrics.PredictTime, 0.001)
	assert.NotEmpty(t, pred.Raw)
}

func TestGetPrediction_MissingID(t *testing.T) {
	client, _ := NewClient("tok")

	_, err := client.GetPrediction(context.Background(), "")
	assert.ErrorIs(t, err, ErrPredictionIDRequired)
}

func TestPrediction_ErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"absent", ``, ""},
		{"null", `null`, ""},
		{"string", `"CUDA out of memory"`, "CUDA out of memory"},
		{"object message", `{"message":"bad prompt"}`, "bad prompt"},
		{"object detail", `{"detail":"nsfw"}`, "nsfw"},
		{"other", `42`, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Prediction{Error: []byte(tt.raw)}
			assert.Equal(t, tt.want, p.ErrorMessage())
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusStarting.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.True(t, StatusSucceeded.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusCanceled.IsTerminal())
}
