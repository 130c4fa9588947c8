// Package camera maps the rendered canvas into the viewer window.
package camera

// Camera frames the canvas inside a window with pan and zoom.
type Camera struct {
	// Position is the canvas point shown at the window center
	X, Y float32

	// Zoom level (1.0 = one canvas pixel per screen pixel)
	Zoom float32

	// Window dimensions
	ViewportW, ViewportH float32

	// Canvas dimensions
	CanvasW, CanvasH float32

	// Zoom constraints
	MinZoom, MaxZoom float32
}

// New creates a camera that fits the canvas in the window.
func New(viewportW, viewportH, canvasW, canvasH float32) *Camera {
	c := &Camera{
		ViewportW: viewportW,
		ViewportH: viewportH,
		CanvasW:   canvasW,
		CanvasH:   canvasH,
		MaxZoom:   8.0,
	}
	c.Fit()
	return c
}

// fitZoom is the largest zoom showing the whole canvas.
func (c *Camera) fitZoom() float32 {
	if c.CanvasW <= 0 || c.CanvasH <= 0 {
		return 1
	}
	return min(c.ViewportW/c.CanvasW, c.ViewportH/c.CanvasH)
}

// Fit centers the canvas and zooms to show all of it.
func (c *Camera) Fit() {
	c.MinZoom = min(c.fitZoom(), 1)
	c.X = c.CanvasW / 2
	c.Y = c.CanvasH / 2
	c.Zoom = c.fitZoom()
}

// CanvasToScreen converts canvas coordinates to window coordinates.
func (c *Camera) CanvasToScreen(cx, cy float32) (sx, sy float32) {
	sx = c.ViewportW/2 + (cx-c.X)*c.Zoom
	sy = c.ViewportH/2 + (cy-c.Y)*c.Zoom
	return sx, sy
}

// ScreenToCanvas converts window coordinates to canvas coordinates.
func (c *Camera) ScreenToCanvas(sx, sy float32) (cx, cy float32) {
	cx = c.X + (sx-c.ViewportW/2)/c.Zoom
	cy = c.Y + (sy-c.ViewportH/2)/c.Zoom
	return cx, cy
}

// Normalized converts window coordinates to [0,1] canvas coordinates and
// reports whether the point lies on the canvas.
func (c *Camera) Normalized(sx, sy float32) (nx, ny float32, ok bool) {
	cx, cy := c.ScreenToCanvas(sx, sy)
	nx, ny = cx/c.CanvasW, cy/c.CanvasH
	return nx, ny, nx >= 0 && nx <= 1 && ny >= 0 && ny <= 1
}

// Rect returns the canvas rectangle in window coordinates.
func (c *Camera) Rect() (x, y, w, h float32) {
	x, y = c.CanvasToScreen(0, 0)
	return x, y, c.CanvasW * c.Zoom, c.CanvasH * c.Zoom
}

// Resize updates the window dimensions and zoom constraints.
func (c *Camera) Resize(viewportW, viewportH float32) {
	if viewportW == c.ViewportW && viewportH == c.ViewportH {
		return
	}
	c.ViewportW = viewportW
	c.ViewportH = viewportH
	c.MinZoom = min(c.fitZoom(), 1)
	c.SetZoom(c.Zoom)
}

// SetCanvas updates the canvas size and refits.
func (c *Camera) SetCanvas(canvasW, canvasH float32) {
	if canvasW == c.CanvasW && canvasH == c.CanvasH {
		return
	}
	c.CanvasW = canvasW
	c.CanvasH = canvasH
	c.Fit()
}

// Pan moves the view by a delta in screen pixels. The view center stays
// on the canvas.
func (c *Camera) Pan(dx, dy float32) {
	c.X = clamp(c.X+dx/c.Zoom, 0, c.CanvasW)
	c.Y = clamp(c.Y+dy/c.Zoom, 0, c.CanvasH)
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
}

// ZoomAt scales the zoom keeping the canvas point under (sx, sy) fixed.
func (c *Camera) ZoomAt(sx, sy, factor float32) {
	cx, cy := c.ScreenToCanvas(sx, sy)
	c.SetZoom(c.Zoom * factor)
	nx, ny := c.ScreenToCanvas(sx, sy)
	c.X = clamp(c.X+cx-nx, 0, c.CanvasW)
	c.Y = clamp(c.Y+cy-ny, 0, c.CanvasH)
}

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
