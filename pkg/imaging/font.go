package imaging

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

const (
	LabelFontSize = 20
	// BuiltinFontName names the face used when no font file can be loaded.
	BuiltinFontName = "basicfont.Face7x13"
)

var DefaultFontPaths = []string{
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

// LoadFace tries each path in order and returns the first face that loads at
// the given pixel size, together with the path it came from. Every failed
// attempt is logged. When all attempts fail the built-in bitmap face is
// returned, so the result is always usable.
func LoadFace(logger *logrus.Logger, paths []string, size float64) (font.Face, string) {
	for _, p := range paths {
		face, err := loadFaceFile(p, size)
		if err != nil {
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"font_path": p,
					"error":     err.Error(),
				}).Warn("Label font unavailable, trying next candidate")
			}
			continue
		}

		if logger != nil {
			logger.WithField("font_path", p).Debug("Label font loaded")
		}
		return face, p
	}

	if logger != nil {
		logger.WithField("font", BuiltinFontName).Warn("No label font could be loaded, using built-in face")
	}
	return basicfont.Face7x13, BuiltinFontName
}

func loadFaceFile(path string, size float64) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}

	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create face: %w", err)
	}

	return face, nil
}
