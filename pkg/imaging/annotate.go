package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const (
	boxStrokeWidth = 3
	labelPadding   = 10
	labelInset     = 5
)

var (
	BoxColor   = color.RGBA{R: 0x00, G: 0x80, B: 0x00, A: 0xff}
	LabelColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// Box is one detection to draw, given by its center point and size in pixels.
type Box struct {
	Class      string
	Confidence float64
	X          float64
	Y          float64
	Width      float64
	Height     float64
}

// Bounds converts the center/size geometry to left, top, right, bottom.
func (b Box) Bounds() (left, top, right, bottom float64) {
	return b.X - b.Width/2, b.Y - b.Height/2, b.X + b.Width/2, b.Y + b.Height/2
}

func (b Box) Label() string {
	return fmt.Sprintf("%s: %.2f", b.Class, b.Confidence)
}

// Annotator draws detection boxes and labels. The font face is shared, and
// faces are not safe for concurrent use, so drawing is serialised.
type Annotator struct {
	mu       sync.Mutex
	face     font.Face
	fontName string
}

func NewAnnotator(logger *logrus.Logger, fontPaths []string) *Annotator {
	face, name := LoadFace(logger, fontPaths, LabelFontSize)
	return &Annotator{face: face, fontName: name}
}

// FontName reports the font file (or built-in face) labels are drawn with.
func (a *Annotator) FontName() string {
	return a.fontName
}

// Annotate returns a new image with every box drawn in the given order. img
// itself is never modified.
func (a *Annotator) Annotate(img image.Image, boxes []Box) *image.RGBA {
	dst := cloneRGBA(img)

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, b := range boxes {
		a.drawBox(dst, b)
	}

	return dst
}

// AnnotateBase64 annotates img and returns it as a base64 JPEG at
// AnnotatedJPEGQuality.
func (a *Annotator) AnnotateBase64(img image.Image, boxes []Box) (string, error) {
	return EncodeBase64JPEG(a.Annotate(img, boxes), AnnotatedJPEGQuality)
}

func (a *Annotator) drawBox(dst *image.RGBA, b Box) {
	l, t, r, btm := b.Bounds()
	left, top := int(math.Round(l)), int(math.Round(t))
	right, bottom := int(math.Round(r)), int(math.Round(btm))

	strokeRect(dst, left, top, right, bottom, boxStrokeWidth, BoxColor)

	label := b.Label()
	measure := &font.Drawer{Face: a.face}
	ink, _ := measure.BoundString(label)
	tw := (ink.Max.X - ink.Min.X).Ceil()
	th := (ink.Max.Y - ink.Min.Y).Ceil()

	fillRect(dst, left, top-th-labelPadding, left+tw+labelPadding, top, BoxColor)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(LabelColor),
		Face: a.face,
		Dot: fixed.Point26_6{
			X: fixed.I(left+labelInset) - ink.Min.X,
			Y: fixed.I(top-th-labelInset) - ink.Min.Y,
		},
	}
	d.DrawString(label)
}

// strokeRect draws the outline of the inclusive rectangle x0,y0-x1,y1 with
// the stroke growing inwards.
func strokeRect(dst draw.Image, x0, y0, x1, y1, width int, c color.Color) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}

	src := image.NewUniform(c)
	sides := []image.Rectangle{
		image.Rect(x0, y0, x1+1, y0+width),
		image.Rect(x0, y1-width+1, x1+1, y1+1),
		image.Rect(x0, y0, x0+width, y1+1),
		image.Rect(x1-width+1, y0, x1+1, y1+1),
	}
	for _, side := range sides {
		draw.Draw(dst, side.Intersect(rectFromPoints(x0, y0, x1, y1)), src, image.Point{}, draw.Src)
	}
}

// fillRect fills the inclusive rectangle x0,y0-x1,y1.
func fillRect(dst draw.Image, x0, y0, x1, y1 int, c color.Color) {
	draw.Draw(dst, rectFromPoints(x0, y0, x1, y1), image.NewUniform(c), image.Point{}, draw.Src)
}

func rectFromPoints(x0, y0, x1, y1 int) image.Rectangle {
	return image.Rect(x0, y0, x1+1, y1+1)
}
