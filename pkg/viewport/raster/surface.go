// Package raster draws graph layouts into an in-memory image with gogpu/gg.
package raster

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/gogpu/gg"
)

var (
	// ErrSurfaceBusy is returned when a Viewport is created on a Surface
	// another Viewport still owns.
	ErrSurfaceBusy = errors.New("raster: surface owned by another viewport")
	// ErrSurfaceClosed is returned for operations on a closed Surface
	ErrSurfaceClosed = errors.New("raster: surface closed")
)

// Surface is the drawing target Viewports render into. It outlives the
// Viewports drawn on it and is owned by at most one of them at a time.
type Surface struct {
	mu     sync.Mutex
	dc     *gg.Context
	owner  *Viewport
	closed bool
}

// NewSurface allocates a width x height surface
func NewSurface(width, height int) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster: invalid surface size %dx%d", width, height)
	}
	return &Surface{dc: gg.NewContext(width, height)}, nil
}

// Size returns the surface dimensions in pixels
func (s *Surface) Size() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dc.Width(), s.dc.Height()
}

// Resize changes the surface dimensions. The contents are lost until the
// owning Viewport redraws; call its Resize afterwards.
func (s *Surface) Resize(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSurfaceClosed
	}
	return s.dc.Resize(width, height)
}

// EncodePNG writes the current contents as PNG
func (s *Surface) EncodePNG(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSurfaceClosed
	}
	return s.dc.EncodePNG(w)
}

// SavePNG writes the current contents to a PNG file
func (s *Surface) SavePNG(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSurfaceClosed
	}
	return s.dc.SavePNG(path)
}

// Close releases the drawing context. Closing twice is a no-op.
func (s *Surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.dc.Close()
}

func (s *Surface) claim(v *Viewport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return ErrSurfaceClosed
	case s.owner != nil && s.owner != v:
		return ErrSurfaceBusy
	}
	s.owner = v
	return nil
}

func (s *Surface) release(v *Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner != v {
		return
	}
	s.owner = nil
	if !s.closed {
		s.dc.Clear()
	}
}

// draw runs fn with the context locked, if v still owns the surface
func (s *Surface) draw(v *Viewport, fn func(dc *gg.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSurfaceClosed
	}
	if s.owner != v {
		return ErrSurfaceBusy
	}
	return fn(s.dc)
}
