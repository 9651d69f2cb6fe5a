package roboflow

import (
	"context"
	"encoding/base64"
	"errors"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"SeedDetection/pkg/imaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 32, 24))
}

func newTestClient(url string) *Client {
	return New(Config{
		APIKey:     "secret-key",
		ModelID:    "seed-classification-89b7c/9",
		BaseURL:    url,
		Confidence: 0.3,
		Overlap:    0.3,
		Timeout:    2 * time.Second,
	}, nil)
}

func TestDetectRequestShape(t *testing.T) {
	var req *http.Request
	var body []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req = r
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"predictions":[]}`)
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Detect(context.Background(), testImage())
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/seed-classification-89b7c/9", req.URL.Path)
	assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))

	q := req.URL.Query()
	assert.Equal(t, "secret-key", q.Get("api_key"))
	assert.Equal(t, "0.3", q.Get("confidence"))
	assert.Equal(t, "0.3", q.Get("overlap"))
	assert.Equal(t, "json", q.Get("format"))

	raw, err := base64.StdEncoding.DecodeString(string(body))
	require.NoError(t, err)
	img, format, err := imaging.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, image.Pt(32, 24), img.Bounds().Size())
}

func TestDetectSortsAndDefaults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"predictions":[
			{"x":10,"y":10,"width":4,"height":4,"class":"Bad","confidence":0.4},
			{"x":20,"y":20,"width":6,"height":6,"class":"Good","confidence":0.9,"detection_id":"abc"},
			{"x":30,"y":30,"width":8,"height":8,"class":"Impurity","confidence":0.4}
		]}`)
	}))
	defer ts.Close()

	result, err := newTestClient(ts.URL).Detect(context.Background(), testImage())
	require.NoError(t, err)

	require.Len(t, result.Predictions, 3)
	assert.Equal(t, "Good", result.Predictions[0].Class)
	require.NotNil(t, result.Predictions[0].DetectionID)
	assert.Equal(t, "abc", *result.Predictions[0].DetectionID)
	// ties keep their original order
	assert.Equal(t, "Bad", result.Predictions[1].Class)
	assert.Equal(t, "Impurity", result.Predictions[2].Class)
	assert.Nil(t, result.Predictions[1].DetectionID)

	assert.Equal(t, map[string]any{}, result.Image)
	assert.Equal(t, 0, result.Time)
}

func TestDetectPassesThroughImageAndTime(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"predictions":[],"image":{"width":"640","height":"480"},"time":0.125}`)
	}))
	defer ts.Close()

	result, err := newTestClient(ts.URL).Detect(context.Background(), testImage())
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"width": "640", "height": "480"}, result.Image)
	assert.Equal(t, 0.125, result.Time)
	assert.NotNil(t, result.Predictions)
	assert.Empty(t, result.Predictions)
}

func TestDetectRemoteServiceError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, "model overloaded")
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Detect(context.Background(), testImage())

	var remoteErr *RemoteServiceError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, http.StatusServiceUnavailable, remoteErr.StatusCode)
	assert.Equal(t, "model overloaded", remoteErr.Body)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestDetectMalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>gateway</html>")
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Detect(context.Background(), testImage())

	var remoteErr *RemoteServiceError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, http.StatusOK, remoteErr.StatusCode)
	assert.Contains(t, remoteErr.Body, "gateway")
}

func TestDetectTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	_, err := newTestClient(url).Detect(context.Background(), testImage())

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
}

func TestDetectTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer ts.Close()
	defer close(release)

	client := New(Config{APIKey: "k", BaseURL: ts.URL, Timeout: 50 * time.Millisecond}, nil)
	_, err := client.Detect(context.Background(), testImage())

	var transportErr *TransportError
	assert.True(t, errors.As(err, &transportErr))
}

func TestDetectCancelledContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"predictions":[]}`)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(ts.URL).Detect(ctx, testImage())

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEndpointDefaults(t *testing.T) {
	c := New(Config{APIKey: "k"}, nil)
	assert.Equal(t, "https://detect.roboflow.com/seed-classification-89b7c/9", c.Endpoint())

	c = New(Config{APIKey: "k", BaseURL: "http://localhost:9001/", ModelID: "m/1"}, nil)
	assert.Equal(t, "http://localhost:9001/m/1", c.Endpoint())
}

func TestSortByConfidence(t *testing.T) {
	preds := []Prediction{
		{Class: "a", Confidence: 0.1},
		{Class: "b", Confidence: 0.7},
		{Class: "c", Confidence: 0.7},
		{Class: "d", Confidence: 0.95},
	}

	SortByConfidence(preds)

	got := make([]string, 0, len(preds))
	for _, p := range preds {
		got = append(got, p.Class)
	}
	assert.Equal(t, []string{"d", "b", "c", "a"}, got)
}
