package detectionHandler

import (
	"SeedDetection/internal/api/detection"
	contextPkg "SeedDetection/pkg/context"
	"SeedDetection/pkg/handlerUtil"
	"SeedDetection/pkg/log"
	"SeedDetection/pkg/response"
	"context"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// uploadFields lists the multipart fields an image is accepted from, in
// order of preference.
var uploadFields = []string{"file", "image"}

const (
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
)

func (h *DetectionHandler) Detect(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), h.requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	file := h.formFile(ctx)
	if file == nil {
		return errHandler.Handle(ctx, requestID, detection.ErrNoFileUploaded, ctx.Path(), "read_form_file")
	}

	h.log.WithFields(log.Fields{
		"request_id":   requestID,
		"path":         ctx.Path(),
		"file_name":    file.Filename,
		"file_size":    file.Size,
		"content_type": file.Header.Get(fiber.HeaderContentType),
	}).Debug("Processing file upload")

	req := detection.DetectionRequest{
		Filename:    file.Filename,
		ContentType: file.Header.Get(fiber.HeaderContentType),
		Size:        file.Size,
	}

	if err := h.detectionService.Validate(req); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "validate_image_file")
	}

	data, err := h.utils.ReadMultipartFile(file)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_image_file")
	}
	req.ImageData = data

	result, err := h.detectionService.Detect(c, req)
	if err != nil {
		select {
		case <-c.Done():
			if c.Err() == context.DeadlineExceeded {
				return errHandler.HandleRequestTimeout(ctx)
			}
		default:
		}
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "detect_seeds")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"detections": result.DetectionCount,
	}).Info("Seed detection successful")

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
}

func (h *DetectionHandler) formFile(ctx *fiber.Ctx) *multipart.FileHeader {
	for _, field := range uploadFields {
		if file, err := ctx.FormFile(field); err == nil {
			return file
		}
	}
	return nil
}

// handleDetectWebSocket runs every binary frame through the same pipeline as
// POST /detect. Frames carry raw image bytes, so the media type is sniffed.
func (h *DetectionHandler) handleDetectWebSocket(c *websocket.Conn) {
	requestID, _ := c.Locals(contextPkg.LocalsRequestID).(string)
	fields := log.Fields{"request_id": requestID}

	h.log.WithFields(fields).Info("Seed detection WebSocket client connected")
	defer h.log.WithFields(fields).Info("Seed detection WebSocket client disconnected")

	c.SetPingHandler(func(data string) error {
		h.log.Debug("Received ping, sending pong")
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	for frame := 1; ; frame++ {
		if err := c.SetReadDeadline(time.Now().Add(wsReadTimeout)); err != nil {
			h.log.Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.WithFields(fields).Errorf("Seed detection WebSocket error: %v", err)
			} else {
				h.log.WithFields(fields).Info("Seed detection WebSocket connection closed")
			}
			break
		}

		if messageType != websocket.BinaryMessage {
			h.log.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		req := detection.DetectionRequest{
			ImageData:   message,
			Filename:    "frame",
			ContentType: http.DetectContentType(message),
			Size:        int64(len(message)),
		}

		ctx, cancel := context.WithTimeout(contextPkg.WithRequestID(context.Background(), requestID), h.requestTimeout)
		result, err := h.detectionService.Detect(ctx, req)
		cancel()

		var payload any = result
		if err != nil {
			h.log.WithFields(fields).WithField("frame", frame).Errorf("Error processing frame: %v", err)
			payload = fiber.Map{"error": err.Error(), "status": response.StatusCode(err)}
		}

		if err := c.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
			h.log.Errorf("Error setting write deadline: %v", err)
			break
		}

		if err := c.WriteJSON(payload); err != nil {
			h.log.Errorf("Error writing JSON response: %v", err)
			break
		}

		if err := c.SetWriteDeadline(time.Time{}); err != nil {
			h.log.Errorf("Error resetting write deadline: %v", err)
			break
		}
	}
}
