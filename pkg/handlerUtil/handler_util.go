package handlerUtil

import (
	"SeedDetection/pkg/imaging"
	"SeedDetection/pkg/log"
	"SeedDetection/pkg/response"
	"SeedDetection/pkg/roboflow"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

// Handle renders err as {"error": message}. Errors carrying a status keep it;
// everything else is a 500 whose message is the error text itself.
func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	fields := log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		fields["code"] = respErr.Code
		h.logger.WithFields(fields).Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(fiber.Map{"error": err.Error()})
	}

	var decodeErr *imaging.DecodeError
	if errors.As(err, &decodeErr) {
		h.logger.WithFields(fields).Warn("Uploaded bytes are not a decodable image")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	var remoteErr *roboflow.RemoteServiceError
	if errors.As(err, &remoteErr) {
		fields["upstream_status"] = remoteErr.StatusCode
		h.logger.WithFields(fields).Error("Detection model returned an error")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	var transportErr *roboflow.TransportError
	if errors.As(err, &transportErr) {
		h.logger.WithFields(fields).Error("Detection model unreachable")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	log.ErrorWithTraceID(fields, "Unexpected error occurred")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{"error": utils.StatusMessage(fiber.StatusRequestTimeout)})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
