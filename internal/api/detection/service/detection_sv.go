package detectionService

import (
	"SeedDetection/internal/api/detection"
	contextPkg "SeedDetection/pkg/context"
	"SeedDetection/pkg/imaging"
	"SeedDetection/pkg/log"
	"SeedDetection/pkg/metrics"
	"SeedDetection/pkg/roboflow"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Validate checks the declared media type and size before any bytes are
// decoded. Size falls back to len(ImageData) when the transport did not
// report one.
func (s *detectionService) Validate(req detection.DetectionRequest) error {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(req.ContentType)), "image/") {
		return detection.ErrInvalidFileType
	}

	size := req.Size
	if size <= 0 {
		size = int64(len(req.ImageData))
	}
	if s.opts.MaxUploadBytes > 0 && size > s.opts.MaxUploadBytes {
		return detection.ImageTooLarge(s.opts.MaxUploadBytes)
	}

	return nil
}

func (s *detectionService) Detect(ctx context.Context, req detection.DetectionRequest) (*detection.DetectionResult, error) {
	outcome := metrics.OutcomeError
	defer func() { s.metrics.ObserveRequest(outcome) }()

	fields := log.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"filename":   req.Filename,
		"size":       len(req.ImageData),
	}

	if err := s.Validate(req); err != nil {
		outcome = metrics.OutcomeInvalidInput
		return nil, err
	}

	img, format, err := imaging.Decode(req.ImageData)
	if err != nil {
		outcome = metrics.OutcomeDecodeError
		return nil, fmt.Errorf("decode upload: %w", err)
	}

	bounds := img.Bounds()
	img = imaging.ResizeIfNeeded(img, s.opts.MaxDimension)
	resized := img.Bounds()

	s.log.WithFields(fields).WithFields(log.Fields{
		"format":   format,
		"original": fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy()),
		"working":  fmt.Sprintf("%dx%d", resized.Dx(), resized.Dy()),
	}).Debug("Image decoded")

	start := time.Now()
	remote, err := s.detector.Detect(ctx, img)
	s.metrics.ObserveRemoteCall(time.Since(start))
	if err != nil {
		var remoteErr *roboflow.RemoteServiceError
		var transportErr *roboflow.TransportError
		if errors.As(err, &remoteErr) || errors.As(err, &transportErr) {
			outcome = metrics.OutcomeRemoteError
		}
		return nil, fmt.Errorf("detect seeds: %w", err)
	}

	roboflow.SortByConfidence(remote.Predictions)

	result := &detection.DetectionResult{
		Success:        true,
		Message:        detection.MessageNoDetections,
		DetectionCount: len(remote.Predictions),
		Predictions:    make([]detection.Detection, 0, len(remote.Predictions)),
		ImageInfo:      remote.Image,
		ProcessingTime: remote.Time,
	}

	if len(remote.Predictions) > 0 {
		boxes := make([]imaging.Box, 0, len(remote.Predictions))
		for _, p := range remote.Predictions {
			result.Predictions = append(result.Predictions, toDetection(p))
			boxes = append(boxes, imaging.Box{
				Class:      p.Class,
				Confidence: p.Confidence,
				X:          p.X,
				Y:          p.Y,
				Width:      p.Width,
				Height:     p.Height,
			})
			s.metrics.ObserveDetection(p.Class)
		}

		annotated, err := s.annotator.AnnotateBase64(img, boxes)
		if err != nil {
			return nil, fmt.Errorf("annotate image: %w", err)
		}
		result.Message = detection.MessageDetectionsFound
		result.AnnotatedImage = &annotated
	}

	s.log.WithFields(fields).WithField("detections", result.DetectionCount).Info("Seed detection completed")

	outcome = metrics.OutcomeSuccess
	return result, nil
}

func toDetection(p roboflow.Prediction) detection.Detection {
	return detection.Detection{
		Class:       p.Class,
		Confidence:  roundTo(p.Confidence, 4),
		Position:    detection.Position{X: p.X, Y: p.Y},
		Size:        detection.Size{Width: p.Width, Height: p.Height},
		DetectionID: p.DetectionID,
	}
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
