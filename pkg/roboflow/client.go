// Package roboflow calls a Roboflow hosted object-detection model over HTTP.
package roboflow

import (
	"context"
	"image"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"SeedDetection/pkg/imaging"

	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL    = "https://detect.roboflow.com"
	DefaultModelID    = "seed-classification-89b7c/9"
	DefaultConfidence = 0.3
	DefaultOverlap    = 0.3
	DefaultTimeout    = 30 * time.Second
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Config struct {
	APIKey     string
	ModelID    string
	BaseURL    string
	Confidence float64
	Overlap    float64
	Timeout    time.Duration
}

// Prediction is a single detection as returned by the hosted model. X and Y
// are the box center in pixels.
type Prediction struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Class       string  `json:"class"`
	Confidence  float64 `json:"confidence"`
	DetectionID *string `json:"detection_id,omitempty"`
}

// Result is the normalised model response. Image and Time are passed through
// untouched; their shape is owned by the remote service.
type Result struct {
	Predictions []Prediction `json:"predictions"`
	Image       any          `json:"image"`
	Time        any          `json:"time"`
}

type Client struct {
	http *resty.Client
	cfg  Config
}

func New(cfg Config, logger *logrus.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ModelID == "" {
		cfg.ModelID = DefaultModelID
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	if logger != nil {
		httpClient.SetLogger(logger)
	}

	return &Client{http: httpClient, cfg: cfg}
}

// Endpoint returns the model URL requests are posted to.
func (c *Client) Endpoint() string {
	return c.http.BaseURL + "/" + strings.TrimLeft(c.cfg.ModelID, "/")
}

// Detect uploads img as a base64 JPEG and returns the model's predictions
// sorted by descending confidence.
func (c *Client) Detect(ctx context.Context, img image.Image) (*Result, error) {
	payload, err := imaging.EncodeBase64JPEG(img, imaging.DefaultJPEGQuality)
	if err != nil {
		return nil, err
	}
	return c.DetectBase64(ctx, payload)
}

// DetectBase64 posts an already encoded image.
func (c *Client) DetectBase64(ctx context.Context, payload string) (*Result, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"api_key":    c.cfg.APIKey,
			"confidence": strconv.FormatFloat(c.cfg.Confidence, 'f', -1, 64),
			"overlap":    strconv.FormatFloat(c.cfg.Overlap, 'f', -1, 64),
			"format":     "json",
		}).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(payload).
		Post("/" + strings.TrimLeft(c.cfg.ModelID, "/"))
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if res.StatusCode() != http.StatusOK {
		return nil, &RemoteServiceError{StatusCode: res.StatusCode(), Body: res.String()}
	}

	return parseResult(res.StatusCode(), res.Body())
}

func parseResult(status int, body []byte) (*Result, error) {
	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &RemoteServiceError{StatusCode: status, Body: string(body)}
	}

	if result.Predictions == nil {
		result.Predictions = []Prediction{}
	}
	if result.Image == nil {
		result.Image = map[string]any{}
	}
	if result.Time == nil {
		result.Time = 0
	}

	SortByConfidence(result.Predictions)

	return &result, nil
}

// SortByConfidence orders predictions by descending confidence in place.
// Equal confidences keep their relative order.
func SortByConfidence(predictions []Prediction) {
	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].Confidence > predictions[j].Confidence
	})
}
