package config

import (
	"SeedDetection/pkg/imaging"
	"SeedDetection/pkg/roboflow"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const DefaultMaxUploadBytes = 10 * 1024 * 1024

// ServiceConfig is everything the detection service reads from the
// environment. There is no built-in API key; startup fails without one.
type ServiceConfig struct {
	APIKey         string        `validate:"required"`
	ModelID        string        `validate:"required"`
	BaseURL        string        `validate:"required,url"`
	Confidence     float64       `validate:"gte=0,lte=1"`
	Overlap        float64       `validate:"gte=0,lte=1"`
	RemoteTimeout  time.Duration `validate:"gt=0"`
	MaxDimension   int           `validate:"gt=0"`
	MaxUploadBytes int64         `validate:"gt=0"`
	FontPaths      []string
	RateLimitRPS   float64 `validate:"gt=0"`
	RateLimitBurst int     `validate:"gt=0"`
	Port           string  `validate:"required,numeric"`
}

func (c ServiceConfig) Roboflow() roboflow.Config {
	return roboflow.Config{
		APIKey:     c.APIKey,
		ModelID:    c.ModelID,
		BaseURL:    c.BaseURL,
		Confidence: c.Confidence,
		Overlap:    c.Overlap,
		Timeout:    c.RemoteTimeout,
	}
}

// LoadServiceConfig reads the environment, applies defaults and validates
// the result.
func LoadServiceConfig(v *validator.Validate) (ServiceConfig, error) {
	var errs []error

	cfg := ServiceConfig{
		APIKey:         strings.TrimSpace(os.Getenv("ROBOFLOW_API_KEY")),
		ModelID:        envString("ROBOFLOW_MODEL_ID", roboflow.DefaultModelID),
		BaseURL:        envString("ROBOFLOW_BASE_URL", roboflow.DefaultBaseURL),
		Confidence:     envFloat("ROBOFLOW_CONFIDENCE", roboflow.DefaultConfidence, &errs),
		Overlap:        envFloat("ROBOFLOW_OVERLAP", roboflow.DefaultOverlap, &errs),
		RemoteTimeout:  envDuration("ROBOFLOW_TIMEOUT", roboflow.DefaultTimeout, &errs),
		MaxDimension:   envInt("MAX_IMAGE_DIMENSION", imaging.DefaultMaxDimension, &errs),
		MaxUploadBytes: int64(envInt("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes, &errs)),
		FontPaths:      envList("ANNOTATION_FONT_PATHS", imaging.DefaultFontPaths),
		RateLimitRPS:   envFloat("RATE_LIMIT_RPS", 50, &errs),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 100, &errs),
		Port:           envString("APP_PORT", "3000"),
	}
	if len(errs) > 0 {
		return ServiceConfig{}, errors.Join(errs...)
	}

	if err := v.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%s failed %q validation", envName(fe.Field()), fe.Tag()))
			}
			return ServiceConfig{}, errors.Join(errs...)
		}
		return ServiceConfig{}, err
	}

	return cfg, nil
}

var fieldEnv = map[string]string{
	"APIKey":         "ROBOFLOW_API_KEY",
	"ModelID":        "ROBOFLOW_MODEL_ID",
	"BaseURL":        "ROBOFLOW_BASE_URL",
	"Confidence":     "ROBOFLOW_CONFIDENCE",
	"Overlap":        "ROBOFLOW_OVERLAP",
	"RemoteTimeout":  "ROBOFLOW_TIMEOUT",
	"MaxDimension":   "MAX_IMAGE_DIMENSION",
	"MaxUploadBytes": "MAX_UPLOAD_BYTES",
	"RateLimitRPS":   "RATE_LIMIT_RPS",
	"RateLimitBurst": "RATE_LIMIT_BURST",
	"Port":           "APP_PORT",
}

func envName(field string) string {
	if name, ok := fieldEnv[field]; ok {
		return name
	}
	return field
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envFloat(key string, def float64, errs *[]error) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a number", key, raw))
		return def
	}
	return v
}

func envInt(key string, def int, errs *[]error) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not an integer", key, raw))
		return def
	}
	return v
}

// envDuration accepts Go durations ("45s") or a bare number of seconds.
func envDuration(key string, def time.Duration, errs *[]error) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a duration", key, raw))
		return def
	}
	return d
}

func envList(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
