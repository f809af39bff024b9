// Package signature captures a hand-drawn signature as a PNG data URL.
//
// A Pad follows pointer events: every pointer-down starts a new stroke and
// points are recorded only while the pointer is down, so separate strokes
// never connect. A pad with ink can be confirmed; a cancelled pad yields the
// declined outcome.
package signature

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
)

var (
	// ErrEmptySignature is returned when confirming a pad without ink.
	ErrEmptySignature = errors.New("signature: empty signature") //nolint:gochecknoglobals // sentinel error
	// ErrClosed is returned for events after the pad was confirmed or cancelled.
	ErrClosed = errors.New("signature: pad closed") //nolint:gochecknoglobals // sentinel error
)

type State int

const (
	StateIdle State = iota
	StateDrawing
	StateCaptured
	StateConfirmed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDrawing:
		return "drawing"
	case StateCaptured:
		return "captured"
	case StateConfirmed:
		return "confirmed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Point struct {
	X, Y float64
}

// Outcome is the result of a closed pad. DataURL is set only when confirmed.
type Outcome struct {
	Confirmed bool
	DataURL   string
}

const (
	DefaultWidth  = 500
	DefaultHeight = 200
	penRadius     = 1.5
)

type Pad struct {
	width, height int
	state         State
	strokes       [][]Point
}

// NewPad returns an idle pad. Non-positive dimensions use the defaults.
func NewPad(width, height int) *Pad {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Pad{width: width, height: height}
}

func (p *Pad) State() State { return p.state }

// Strokes returns a copy of the recorded strokes.
func (p *Pad) Strokes() [][]Point {
	out := make([][]Point, len(p.strokes))
	for i, s := range p.strokes {
		out[i] = append([]Point(nil), s...)
	}
	return out
}

func (p *Pad) closed() bool {
	return p.state == StateConfirmed || p.state == StateCancelled
}

func (p *Pad) PointerDown(pt Point) error {
	if p.closed() {
		return ErrClosed
	}
	p.strokes = append(p.strokes, []Point{p.clamp(pt)})
	p.state = StateDrawing
	return nil
}

// PointerMove extends the current stroke. Moves with the pointer up are ignored.
func (p *Pad) PointerMove(pt Point) error {
	if p.closed() {
		return ErrClosed
	}
	if p.state != StateDrawing {
		return nil
	}
	last := len(p.strokes) - 1
	p.strokes[last] = append(p.strokes[last], p.clamp(pt))
	return nil
}

func (p *Pad) PointerUp() error {
	if p.closed() {
		return ErrClosed
	}
	if p.state != StateDrawing {
		return nil
	}
	if p.hasInk() {
		p.state = StateCaptured
	} else {
		p.state = StateIdle
	}
	return nil
}

// Clear discards all strokes. The pad stays open.
func (p *Pad) Clear() error {
	if p.closed() {
		return ErrClosed
	}
	p.strokes = nil
	p.state = StateIdle
	return nil
}

// Confirm renders the strokes and closes the pad.
func (p *Pad) Confirm() (Outcome, error) {
	if p.closed() {
		return Outcome{}, ErrClosed
	}
	if !p.hasInk() {
		return Outcome{}, ErrEmptySignature
	}

	url, err := p.render()
	if err != nil {
		return Outcome{}, err
	}
	p.state = StateConfirmed
	return Outcome{Confirmed: true, DataURL: url}, nil
}

// Cancel closes the pad with the declined outcome.
func (p *Pad) Cancel() (Outcome, error) {
	if p.closed() {
		return Outcome{}, ErrClosed
	}
	p.state = StateCancelled
	return Outcome{}, nil
}

// clamp pins pt to the canvas so rendering cost is bounded by the pad size.
// Pointer capture keeps reporting positions after the pointer leaves the pad.
func (p *Pad) clamp(pt Point) Point {
	return Point{X: clampAxis(pt.X, p.width), Y: clampAxis(pt.Y, p.height)}
}

func clampAxis(v float64, size int) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(v, float64(size))
}

func (p *Pad) hasInk() bool {
	for _, s := range p.strokes {
		if len(s) > 0 {
			return true
		}
	}
	return false
}

func (p *Pad) render() (string, error) {
	img := image.NewNRGBA(image.Rect(0, 0, p.width, p.height))
	ink := color.NRGBA{A: 0xff}

	for _, s := range p.strokes {
		for i := range s {
			from := s[i]
			if i > 0 {
				from = s[i-1]
			}
			drawSegment(img, from, s[i], ink)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("signature.Pad.Confirm: encode: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// drawSegment stamps pen discs along a to b.
func drawSegment(img *image.NRGBA, a, b Point, c color.NRGBA) {
	steps := int(math.Ceil(math.Hypot(b.X-a.X, b.Y-a.Y)))
	for i := 0; i <= steps; i++ {
		t := 0.0
		if steps > 0 {
			t = float64(i) / float64(steps)
		}
		stamp(img, a.X+(b.X-a.X)*t, a.Y+(b.Y-a.Y)*t, c)
	}
}

func stamp(img *image.NRGBA, cx, cy float64, c color.NRGBA) {
	r := int(math.Ceil(penRadius))
	for y := int(cy) - r; y <= int(cy)+r; y++ {
		for x := int(cx) - r; x <= int(cx)+r; x++ {
			if math.Hypot(float64(x)-cx, float64(y)-cy) <= penRadius {
				img.SetNRGBA(x, y, c) // out of bounds is a no-op
			}
		}
	}
}
