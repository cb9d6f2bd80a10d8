package speech

import (
	"github.com/starford/dysedit/internal/dom"
)

// Rect is a box relative to the editing surface's origin.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Layout computes the bounding box of a range of the walk's tree.
type Layout interface {
	Bounds(w *Walk, r dom.Range) (Rect, error)
}

// GridLayout lays text out on a fixed grid: every rune is one cell, lines
// end at newlines and wrap after Columns cells when Columns is positive.
type GridLayout struct {
	CellWidth  float64
	LineHeight float64
	Columns    int
}

// DefaultGrid matches a 14px monospace rendering at 1.5 line height.
var DefaultGrid = GridLayout{CellWidth: 8.4, LineHeight: 21}

// Bounds returns the box from the start of r to its end. A range spanning
// lines is bounded by its first line.
func (g GridLayout) Bounds(w *Walk, r dom.Range) (Rect, error) {
	start, err := w.Offset(Position{Node: r.StartContainer, Offset: r.StartOffset})
	if err != nil {
		return Rect{}, err
	}
	end, err := w.Offset(Position{Node: r.EndContainer, Offset: r.EndOffset})
	if err != nil {
		return Rect{}, err
	}
	line, col := g.cell(w.text, start)
	width := 0
	for i := start; i < end && w.text[i] != '\n'; i++ {
		if g.Columns > 0 && col+width >= g.Columns {
			break
		}
		width++
	}
	return Rect{
		X:      float64(col) * g.CellWidth,
		Y:      float64(line) * g.LineHeight,
		Width:  float64(width) * g.CellWidth,
		Height: g.LineHeight,
	}, nil
}

func (g GridLayout) cell(text []rune, i int) (line, col int) {
	for _, r := range text[:i] {
		if r == '\n' {
			line++
			col = 0
			continue
		}
		col++
		if g.Columns > 0 && col == g.Columns {
			line++
			col = 0
		}
	}
	return line, col
}
