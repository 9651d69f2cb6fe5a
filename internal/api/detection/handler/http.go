package detectionHandler

import (
	detectionService "SeedDetection/internal/api/detection/service"
	"SeedDetection/internal/middleware"
	"SeedDetection/pkg/utils"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

// DefaultRequestTimeout bounds one detection request end to end. It sits
// above the remote model timeout so that error wins the race.
const DefaultRequestTimeout = 45 * time.Second

type DetectionHandler struct {
	log              *logrus.Logger
	middleware       middleware.Middleware
	detectionService detectionService.IDetectionService
	utils            utils.IUtils
	requestTimeout   time.Duration
}

func New(
	log *logrus.Logger,
	middleware middleware.Middleware,
	ds detectionService.IDetectionService,
	utils utils.IUtils,
	requestTimeout time.Duration,
) *DetectionHandler {
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	return &DetectionHandler{
		detectionService: ds,
		log:              log,
		middleware:       middleware,
		utils:            utils,
		requestTimeout:   requestTimeout,
	}
}

func (h *DetectionHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	srv.Post("/detect", h.middleware.NewRateLimiter, h.Detect)

	detect := srv.Group("/detect")
	detect.Use("/ws", wsMiddleware)
	detect.Get("/ws", websocket.New(h.handleDetectWebSocket))
}
