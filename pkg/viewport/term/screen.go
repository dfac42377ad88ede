// Package term draws graph layouts as styled text for terminal UIs.
package term

import (
	"errors"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// ErrScreenBusy is returned when a Viewport is created on a Screen another
// Viewport still owns.
var ErrScreenBusy = errors.New("term: screen owned by another viewport")

// Screen is a fixed-size text area that one Viewport draws into at a time
type Screen struct {
	mu            sync.Mutex
	width, height int
	content       string
	owner         *Viewport
}

// NewScreen creates a screen of width x height cells
func NewScreen(width, height int) *Screen {
	return &Screen{width: width, height: height}
}

// SetSize updates the screen size. Call the owning Viewport's Resize to redraw.
func (s *Screen) SetSize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
}

// Size returns the screen size in cells
func (s *Screen) Size() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// View returns the screen contents
func (s *Screen) View() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

func (s *Screen) claim(v *Viewport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner != nil && s.owner != v {
		return ErrScreenBusy
	}
	s.owner = v
	return nil
}

func (s *Screen) release(v *Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner == v {
		s.owner = nil
		s.content = ""
	}
}

func (s *Screen) show(v *Viewport, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner != v {
		return
	}
	style := lipgloss.NewStyle()
	if s.width > 0 {
		style = style.MaxWidth(s.width)
	}
	if s.height > 0 {
		style = style.MaxHeight(s.height)
	}
	s.content = style.Render(content)
}
