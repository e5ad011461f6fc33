package export

import (
	"fmt"
	"io"
	"math"
	"strings"
)

var palette = []string{"#00ff00", "#00bfff", "#ff8c00", "#ff00ff", "#ffff00", "#ff4040"}

// bounds is the padded world window mapped onto the image.
type bounds struct {
	minX, minY, rangeX, rangeY float64
	width, height              int
}

func newBounds(tracks []Track, width, height int) bounds {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	grow := func(p Point) {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	for _, tr := range tracks {
		grow(tr.Goal)
		for _, p := range tr.Points {
			grow(p)
		}
	}

	// Equal scale on both axes so headings are not distorted.
	span := math.Max(math.Max(maxX-minX, maxY-minY), 1) * 1.2
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	return bounds{
		minX: cx - span/2, minY: cy - span/2,
		rangeX: span, rangeY: span,
		width: width, height: height,
	}
}

func (b bounds) project(p Point) (float64, float64) {
	x := (p.X - b.minX) / b.rangeX * float64(b.width)
	y := float64(b.height) - (p.Y-b.minY)/b.rangeY*float64(b.height)
	return x, y
}

// WriteSVG draws every track as a polyline from a square start marker, with
// its goal as a ring in the same colour.
func WriteSVG(w io.Writer, tracks []Track, width, height int) error {
	var drawn []Track
	for _, tr := range tracks {
		if len(tr.Points) >= 2 {
			drawn = append(drawn, tr)
		}
	}
	if len(drawn) == 0 {
		return fmt.Errorf("no track with at least two points")
	}
	b := newBounds(drawn, width, height)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	for i, tr := range drawn {
		color := palette[tr.Env%len(palette)]
		fmt.Fprintf(&sb, `<g id="episode-%d" data-env="%d" stroke="%s">`+"\n", i, tr.Env, color)

		sb.WriteString(`<path fill="none" stroke-width="1.5" d="M`)
		for j, p := range tr.Points {
			x, y := b.project(p)
			if j == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")

		sx, sy := b.project(tr.Points[0])
		fmt.Fprintf(&sb, `<rect x="%.1f" y="%.1f" width="6" height="6" fill="%s"/>`+"\n", sx-3, sy-3, color)
		gx, gy := b.project(tr.Goal)
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="6" fill="none" stroke-width="2"/>`+"\n", gx, gy)
		sb.WriteString("</g>\n")
	}
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
