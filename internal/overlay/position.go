package overlay

import "math"

type Anchor string

const (
	TopLeft      Anchor = "top-left"
	TopRight     Anchor = "top-right"
	BottomLeft   Anchor = "bottom-left"
	BottomRight  Anchor = "bottom-right"
	Center       Anchor = "center"
	TopCenter    Anchor = "top-center"
	BottomCenter Anchor = "bottom-center"
)

type Point struct {
	X, Y float64
}

// Position is a named anchor, or explicit coordinates when Anchor is empty.
type Position struct {
	Anchor Anchor
	X, Y   float64
}

func At(x, y float64) Position {
	return Position{X: x, Y: y}
}

// CalculatePosition returns the top-left corner of a boxW x boxH box placed
// on a canvasW x canvasH canvas. Coordinates never go below zero.
func CalculatePosition(pos Position, boxW, boxH, canvasW, canvasH, padding float64) Point {
	var x, y float64
	switch pos.Anchor {
	case "":
		x, y = pos.X, pos.Y
	case TopRight:
		x, y = canvasW-boxW-padding, padding
	case BottomLeft:
		x, y = padding, canvasH-boxH-padding
	case BottomRight:
		x, y = canvasW-boxW-padding, canvasH-boxH-padding
	case Center:
		x, y = (canvasW-boxW)/2, (canvasH-boxH)/2
	case TopCenter:
		x, y = (canvasW-boxW)/2, padding
	case BottomCenter:
		x, y = (canvasW-boxW)/2, canvasH-boxH-padding
	default:
		x, y = padding, padding
	}
	return Point{X: math.Max(0, x), Y: math.Max(0, y)}
}
