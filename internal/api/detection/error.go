package detection

import (
	"SeedDetection/pkg/response"
	"fmt"
	"net/http"
)

var (
	ErrInvalidFileType = response.NewError(http.StatusBadRequest, "Invalid file type. Must be an image.")
	ErrImageTooLarge   = response.NewError(http.StatusBadRequest, "Image too large.")
	ErrNoFileUploaded  = response.NewError(http.StatusBadRequest, `No file uploaded. Send the image in the "file" form field.`)
)

// ImageTooLarge reports ErrImageTooLarge together with the configured limit.
func ImageTooLarge(limit int64) error {
	return fmt.Errorf("%w Max size is %s.", ErrImageTooLarge, formatBytes(limit))
}

func formatBytes(n int64) string {
	const mib = 1024 * 1024
	if n >= mib && n%mib == 0 {
		return fmt.Sprintf("%dMB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
