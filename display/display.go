// Package display is the drawing capability used by the application loop.
// Rendering itself is delegated to tinyfont and the panel driver; this
// package only adapts them and classifies failures as draw_error.
package display

import (
	"image/color"

	"watchcode-go/errcode"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// Display is what the application draws through.
type Display interface {
	Clear(c color.RGBA) error
	DrawText(x, y int16, s string) error
	FillRect(x, y, w, h int16, c color.RGBA) error
	Flush() error
}

var (
	Black = color.RGBA{0, 0, 0, 255}
	White = color.RGBA{255, 255, 255, 255}
	Grey  = color.RGBA{96, 96, 96, 255}
)

// Optional fast paths offered by panel drivers such as st7789.
type screenFiller interface {
	FillScreen(c color.RGBA)
}

type rectFiller interface {
	FillRectangle(x, y, w, h int16, c color.RGBA) error
}

// textRecorder is implemented by displays that keep a record of text drawn
// on them (Framebuffer).
type textRecorder interface {
	RecordText(x, y, w, h int16, s string)
}

// Text draws single-line strings on any drivers.Displayer.
type Text struct {
	d    drivers.Displayer
	font tinyfont.Fonter
	fg   color.RGBA
	bg   color.RGBA
}

var _ Display = (*Text)(nil)

// NewText uses proggy TinySZ8pt7b, white on black.
func NewText(d drivers.Displayer) *Text {
	return &Text{d: d, font: &proggy.TinySZ8pt7b, fg: White, bg: Black}
}

// LineHeight is the font's vertical advance.
func (t *Text) LineHeight() int16 { return int16(t.font.GetYAdvance()) }

func (t *Text) Clear(c color.RGBA) error {
	if f, ok := t.d.(screenFiller); ok {
		f.FillScreen(c)
		return nil
	}
	w, h := t.d.Size()
	return t.FillRect(0, 0, w, h, c)
}

// DrawText draws s with its baseline at y, blanking the line box first so a
// shorter value fully replaces a longer one.
func (t *Text) DrawText(x, y int16, s string) error {
	w, h := t.d.Size()
	if x < 0 || x >= w || y <= 0 || y > h {
		return &errcode.E{C: errcode.DrawError, Op: "draw_text", Msg: "out_of_bounds"}
	}
	_, outbox := tinyfont.LineWidth(t.font, s)
	lh := t.LineHeight()
	top := y - lh + lh/4
	if top < 0 {
		top = 0
	}
	bw := int16(outbox)
	if x+bw > w {
		bw = w - x
	}
	if err := t.FillRect(x, top, bw, lh, t.bg); err != nil {
		return err
	}
	tinyfont.WriteLine(t.d, t.font, x, y, s, t.fg)
	if r, ok := t.d.(textRecorder); ok {
		r.RecordText(x, top, bw, lh, s)
	}
	return nil
}

func (t *Text) FillRect(x, y, w, h int16, c color.RGBA) error {
	if w <= 0 || h <= 0 {
		return nil
	}
	if f, ok := t.d.(rectFiller); ok {
		if err := f.FillRectangle(x, y, w, h, c); err != nil {
			return &errcode.E{C: errcode.DrawError, Op: "fill_rect", Err: err}
		}
		return nil
	}
	for j := y; j < y+h; j++ {
		for i := x; i < x+w; i++ {
			t.d.SetPixel(i, j, c)
		}
	}
	return nil
}

func (t *Text) Flush() error {
	if err := t.d.Display(); err != nil {
		return &errcode.E{C: errcode.DrawError, Op: "flush", Err: err}
	}
	return nil
}
