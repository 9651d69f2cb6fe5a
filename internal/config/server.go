package config

import (
	detectionHandler "SeedDetection/internal/api/detection/handler"
	detectionService "SeedDetection/internal/api/detection/service"
	"SeedDetection/internal/middleware"
	"SeedDetection/pkg/imaging"
	"SeedDetection/pkg/metrics"
	"SeedDetection/pkg/roboflow"
	"SeedDetection/pkg/utils"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine     *fiber.App
	log        *logrus.Logger
	middleware middleware.Middleware
	validator  *validator.Validate
	cfg        *ServiceConfig
	utils      utils.IUtils
	metrics    *metrics.Metrics
	detector   detectionService.Detector
	annotator  detectionService.Annotator
	handlers   []handler
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.cfg == nil {
		return nil, fmt.Errorf("service config is required")
	}
	if server.utils == nil {
		server.utils = utils.New(server.cfg.MaxUploadBytes)
	}
	if server.middleware == nil {
		server.middleware = middleware.New(server.log, server.utils, middleware.DefaultConfig)
	}
	if server.detector == nil {
		return nil, fmt.Errorf("detection client is required")
	}
	if server.annotator == nil {
		return nil, fmt.Errorf("annotator is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

// WithServiceConfig validates cfg again when a validator was supplied first,
// so hand-built configs get the same checks as env-loaded ones.
func WithServiceConfig(cfg ServiceConfig) ServerOption {
	return func(s *Server) error {
		if s.validator != nil {
			if err := s.validator.Struct(cfg); err != nil {
				return fmt.Errorf("invalid service config: %w", err)
			}
		}
		s.cfg = &cfg
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		if s.cfg == nil {
			return fmt.Errorf("service config must be set before utils")
		}
		s.utils = utils.New(s.cfg.MaxUploadBytes)
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		if s.cfg == nil {
			return fmt.Errorf("service config must be set before middleware")
		}
		if s.utils == nil {
			s.utils = utils.New(s.cfg.MaxUploadBytes)
		}
		s.middleware = middleware.New(s.log, s.utils, middleware.Config{
			RequestsPerSecond: s.cfg.RateLimitRPS,
			Burst:             s.cfg.RateLimitBurst,
		})
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) error {
		s.metrics = m
		return nil
	}
}

// WithDetectionClient builds the Roboflow client from the service config.
func WithDetectionClient() ServerOption {
	return func(s *Server) error {
		if s.cfg == nil {
			return fmt.Errorf("service config must be set before the detection client")
		}
		client := roboflow.New(s.cfg.Roboflow(), s.log)
		if s.log != nil {
			s.log.WithField("endpoint", client.Endpoint()).Info("Detection client configured")
		}
		s.detector = client
		return nil
	}
}

// WithDetector swaps in any Detector, mainly for tests.
func WithDetector(d detectionService.Detector) ServerOption {
	return func(s *Server) error {
		s.detector = d
		return nil
	}
}

func WithAnnotator() ServerOption {
	return func(s *Server) error {
		if s.cfg == nil {
			return fmt.Errorf("service config must be set before the annotator")
		}
		a := imaging.NewAnnotator(s.log, s.cfg.FontPaths)
		if s.log != nil {
			s.log.WithField("font", a.FontName()).Info("Annotation font selected")
		}
		s.annotator = a
		return nil
	}
}

func (s *Server) RegisterHandler() {
	s.engine.Use(recover.New())
	s.engine.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "*",
	}))
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())

	// Detection
	detectionServices := detectionService.NewDetectionService(s.log, s.detector, s.annotator, s.metrics, detectionService.Options{
		MaxUploadBytes: s.cfg.MaxUploadBytes,
		MaxDimension:   s.cfg.MaxDimension,
	})
	detectionHandlers := detectionHandler.New(s.log, s.middleware, detectionServices, s.utils, s.cfg.RemoteTimeout+15*time.Second)

	s.setupHealthCheck()
	if s.metrics != nil {
		s.engine.Get("/metrics", s.metrics.Handler())
	}

	s.handlers = append(s.handlers, detectionHandlers)
	for _, h := range s.handlers {
		h.Start(s.engine)
	}
}

func (s *Server) App() *fiber.App {
	return s.engine
}

func (s *Server) Run() error {
	s.log.WithField("port", s.cfg.Port).Info("Seed detection API listening")
	return s.engine.Listen(fmt.Sprintf(":%s", s.cfg.Port))
}

func (s *Server) Shutdown(timeout time.Duration) error {
	return s.engine.ShutdownWithTimeout(timeout)
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		endpoints := fiber.Map{
			"detect":    "POST /detect - Upload an image to detect seeds",
			"detect_ws": "GET /detect/ws - Stream binary image frames over WebSocket",
			"health":    "GET /health - Health check",
		}
		if s.metrics != nil {
			endpoints["metrics"] = "GET /metrics - Prometheus metrics"
		}
		return ctx.JSON(fiber.Map{
			"message":   AppName,
			"status":    "running",
			"endpoints": endpoints,
		})
	})

	s.engine.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"status": "healthy",
		})
	})
}
