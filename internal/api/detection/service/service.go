package detectionService

import (
	"SeedDetection/internal/api/detection"
	"SeedDetection/pkg/imaging"
	"SeedDetection/pkg/metrics"
	"SeedDetection/pkg/roboflow"
	"context"
	"image"

	"github.com/sirupsen/logrus"
)

type IDetectionService interface {
	Validate(req detection.DetectionRequest) error
	Detect(ctx context.Context, req detection.DetectionRequest) (*detection.DetectionResult, error)
}

// Detector is the remote inference call. *roboflow.Client satisfies it.
type Detector interface {
	Detect(ctx context.Context, img image.Image) (*roboflow.Result, error)
}

// Annotator renders boxes onto a copy of img. *imaging.Annotator satisfies it.
type Annotator interface {
	AnnotateBase64(img image.Image, boxes []imaging.Box) (string, error)
}

type Options struct {
	MaxUploadBytes int64
	MaxDimension   int
}

type detectionService struct {
	log       *logrus.Logger
	detector  Detector
	annotator Annotator
	metrics   *metrics.Metrics
	opts      Options
}

func NewDetectionService(
	log *logrus.Logger,
	detector Detector,
	annotator Annotator,
	metrics *metrics.Metrics,
	opts Options,
) IDetectionService {
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = imaging.DefaultMaxDimension
	}
	return &detectionService{
		log:       log,
		detector:  detector,
		annotator: annotator,
		metrics:   metrics,
		opts:      opts,
	}
}
