// Package gallery holds the state behind a product image switcher: the
// selected image and whether the full-screen viewer is open. Rendering is
// left to the view layer.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"sync"

	appstate "github.com/goliatone/go-appstate"
	"github.com/goliatone/go-appstate/pkg/activity"
)

var ErrIndexOutOfRange = errors.New("gallery: index out of range")

// Applier receives the patch the switcher issues when it is closed.
type Applier interface {
	ApplyState(ctx context.Context, patch appstate.Patch, kind appstate.Transition) error
}

// Option configures a Switcher.
type Option func(*Switcher)

// WithProduct ties the switcher to a product. Selection changes are only
// reported for product galleries.
func WithProduct(id string) Option {
	return func(s *Switcher) {
		s.product = id
	}
}

// WithEmitter publishes image switches on emitter.
func WithEmitter(emitter *activity.Emitter) Option {
	return func(s *Switcher) {
		s.emitter = emitter
	}
}

// WithApplier lets Close clear the loading product preview.
func WithApplier(app Applier) Option {
	return func(s *Switcher) {
		s.app = app
	}
}

// WithSelected sets the initially selected image.
func WithSelected(index int) Option {
	return func(s *Switcher) {
		s.selected = index
	}
}

// Switcher tracks the selected image of a gallery.
type Switcher struct {
	mu           sync.Mutex
	images       []string
	selected     int
	viewerActive bool
	product      string
	emitter      *activity.Emitter
	app          Applier
}

// NewSwitcher builds a switcher over images. An out of range initial
// selection falls back to the first image.
func NewSwitcher(images []string, opts ...Option) *Switcher {
	s := &Switcher{images: append([]string(nil), images...)}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.selected < 0 || s.selected >= len(s.images) {
		s.selected = 0
	}
	return s
}

// Selected returns the selected index.
func (s *Switcher) Selected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Image returns the selected image, or "" for an empty gallery.
func (s *Switcher) Image() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.images) == 0 {
		return ""
	}
	return s.images[s.selected]
}

// Len returns the number of images.
func (s *Switcher) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// HasPrev reports whether there is an image before the selected one.
func (s *Switcher) HasPrev() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected > 0
}

// HasNext reports whether there is an image after the selected one.
func (s *Switcher) HasNext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected < len(s.images)-1
}

// Select moves to image index.
func (s *Switcher) Select(ctx context.Context, index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.images) {
		count := len(s.images)
		s.mu.Unlock()
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, count)
	}
	previous := s.selected
	s.selected = index
	image := s.images[index]
	product := s.product
	s.mu.Unlock()

	if previous == index || product == "" {
		return nil
	}
	return s.emitter.Emit(ctx, activity.BuildImageSwitchedEvent(activity.StateEventInput{
		ObjectID: product,
		Metadata: map[string]any{
			"index":          index,
			"previous_index": previous,
			"image_url":      image,
		},
	}))
}

// Next selects the following image.
func (s *Switcher) Next(ctx context.Context) error {
	return s.Select(ctx, s.Selected()+1)
}

// Prev selects the preceding image.
func (s *Switcher) Prev(ctx context.Context) error {
	return s.Select(ctx, s.Selected()-1)
}

// SetImages replaces the images, keeping the selection when it still fits.
func (s *Switcher) SetImages(images []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append([]string(nil), images...)
	if s.selected >= len(s.images) {
		s.selected = 0
	}
}

// ViewerActive reports whether the full-screen viewer is open.
func (s *Switcher) ViewerActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewerActive
}

// ToggleViewer opens or closes the viewer and returns the new state.
func (s *Switcher) ToggleViewer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewerActive = !s.viewerActive
	return s.viewerActive
}

// Close is called when the gallery goes away. It closes the viewer and
// clears the loading product preview from the tree.
func (s *Switcher) Close(ctx context.Context) error {
	s.mu.Lock()
	s.viewerActive = false
	app := s.app
	s.mu.Unlock()
	if app == nil {
		return nil
	}
	return app.ApplyState(ctx, appstate.Patch{"loadingProduct": nil}, appstate.TransitionNone)
}
