package detection

const (
	MessageDetectionsFound = "Detections found."
	MessageNoDetections    = "No seeds detected. Try again with a clearer image."
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Detection struct {
	Class       string   `json:"class"`
	Confidence  float64  `json:"confidence"`
	Position    Position `json:"position"`
	Size        Size     `json:"size"`
	DetectionID *string  `json:"detection_id"`
}

// DetectionResult is the envelope returned for every successful request.
// AnnotatedImage is set exactly when Predictions is non-empty.
type DetectionResult struct {
	Success        bool        `json:"success"`
	Message        string      `json:"message"`
	DetectionCount int         `json:"detection_count"`
	Predictions    []Detection `json:"predictions"`
	ImageInfo      any         `json:"image_info"`
	AnnotatedImage *string     `json:"annotated_image,omitempty"`
	ProcessingTime any         `json:"processing_time"`
}

// DetectionRequest carries one upload. Size is the length reported by the
// transport before the body is read; zero means unknown.
type DetectionRequest struct {
	ImageData   []byte
	Filename    string
	ContentType string
	Size        int64
}

type ErrorResponse struct {
	Error string `json:"error"`
}
