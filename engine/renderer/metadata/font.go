package metadata

import (
	"sync/atomic"

	"github.com/google/uuid"
)

type FontGlyph struct {
	Codepoint rune
	X         uint16
	Y         uint16
	Width     uint16
	Height    uint16
	XOffset   int16
	YOffset   int16
	XAdvance  int16
	PageID    uint8
}

type FontKerning struct {
	Codepoint0 rune
	Codepoint1 rune
	Amount     int16
}

/** @brief An atlas page of a bitmap font. */
type FontPage struct {
	ID    uint8
	File  string
	Image *Image
}

/** @brief Output of the bitmap font parser. */
type BitmapFontResourceData struct {
	Face       string
	Size       uint32
	LineHeight int32
	Baseline   int32
	AtlasSizeX uint32
	AtlasSizeY uint32
	Pages      []*FontPage
	Glyphs     []FontGlyph
	Kernings   []FontKerning
}

type BitmapFont struct {
	ID   uuid.UUID
	Name string
	Data *BitmapFontResourceData

	loaded atomic.Bool
}

func NewBitmapFont(name string) *BitmapFont {
	return &BitmapFont{
		ID:   uuid.New(),
		Name: name,
	}
}

/** @brief True once every atlas page has loaded. */
func (f *BitmapFont) HasLoaded() bool {
	if f == nil || !f.loaded.Load() {
		return false
	}
	for _, p := range f.Data.Pages {
		if !p.Image.HasLoaded() {
			return false
		}
	}
	return true
}

func (f *BitmapFont) MarkLoaded() {
	f.loaded.Store(true)
}
