package display

import (
	"image"
	"image/color"
	"strings"
	"sync"
)

type textRec struct {
	box image.Rectangle
	s   string
}

// Framebuffer is an in-memory drivers.Displayer for host runs and tests. Besides
// pixels it remembers which strings are currently visible.
type Framebuffer struct {
	mu      sync.Mutex
	img     *image.RGBA
	texts   []textRec
	flushes int
	fail    error
}

func NewFramebuffer(w, h int16) *Framebuffer {
	return &Framebuffer{img: image.NewRGBA(image.Rect(0, 0, int(w), int(h)))}
}

func (f *Framebuffer) Size() (x, y int16) {
	b := f.img.Bounds()
	return int16(b.Dx()), int16(b.Dy())
}

func (f *Framebuffer) SetPixel(x, y int16, c color.RGBA) {
	f.mu.Lock()
	f.img.SetRGBA(int(x), int(y), c)
	f.mu.Unlock()
}

func (f *Framebuffer) Display() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.flushes++
	return nil
}

func (f *Framebuffer) FillScreen(c color.RGBA) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fill(f.img, f.img.Bounds(), c)
	f.texts = f.texts[:0]
}

func (f *Framebuffer) FillRectangle(x, y, w, h int16, c color.RGBA) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	r := image.Rect(int(x), int(y), int(x+w), int(y+h))
	fill(f.img, r, c)
	kept := f.texts[:0]
	for _, t := range f.texts {
		if !t.box.Overlaps(r) {
			kept = append(kept, t)
		}
	}
	f.texts = kept
	return nil
}

func (f *Framebuffer) RecordText(x, y, w, h int16, s string) {
	f.mu.Lock()
	f.texts = append(f.texts, textRec{box: image.Rect(int(x), int(y), int(x+w), int(y+h)), s: s})
	f.mu.Unlock()
}

// Texts returns the visible strings in drawing order.
func (f *Framebuffer) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.texts))
	for i, t := range f.texts {
		out[i] = t.s
	}
	return out
}

// Shows reports whether any visible string contains sub.
func (f *Framebuffer) Shows(sub string) bool {
	for _, s := range f.Texts() {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func (f *Framebuffer) Flushes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushes
}

// Fail makes Display and FillRectangle return err until cleared with nil.
func (f *Framebuffer) Fail(err error) {
	f.mu.Lock()
	f.fail = err
	f.mu.Unlock()
}

// Image returns the backing image. Callers must not draw concurrently.
func (f *Framebuffer) Image() *image.RGBA { return f.img }

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}
