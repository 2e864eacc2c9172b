package loaders

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unsafe"

	"github.com/fzipp/bmfont"

	"github.com/spaghettifunk/playground/engine/renderer/metadata"
)

// BitmapFontLoader imports AngelCode BMFont descriptors. Page images are not kept;
// they are acquired as regular images by name.
type BitmapFontLoader struct{}

func (fl *BitmapFontLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	font, err := bmfont.Load(path)
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if p, ok := params.(map[string]string); ok && p["name"] != "" {
		name = p["name"]
	}

	return &metadata.Resource{
		Name:     name,
		FullPath: path,
		Data:     importDescriptor(font.Descriptor),
		DataSize: uint64(unsafe.Sizeof(metadata.BitmapFontResourceData{})),
	}, nil
}

func (fl *BitmapFontLoader) Unload(resource *metadata.Resource) error {
	if resource.Data != nil {
		data := resource.Data.(*metadata.BitmapFontResourceData)
		data.Glyphs = nil
		data.Pages = nil
		data.Kernings = nil
		resource.Data = nil
		resource.DataSize = 0
		resource.FullPath = ""
	}
	return nil
}

func importDescriptor(d *bmfont.Descriptor) *metadata.BitmapFontResourceData {
	out := &metadata.BitmapFontResourceData{
		Face:       d.Info.Face,
		Size:       uint32(d.Info.Size),
		LineHeight: int32(d.Common.LineHeight),
		Baseline:   int32(d.Common.Base),
		AtlasSizeX: uint32(d.Common.ScaleW),
		AtlasSizeY: uint32(d.Common.ScaleH),
		Pages:      make([]*metadata.FontPage, 0, len(d.Pages)),
		Glyphs:     make([]metadata.FontGlyph, 0, len(d.Chars)),
		Kernings:   make([]metadata.FontKerning, 0, len(d.Kerning)),
	}

	for _, p := range d.Pages {
		file := filepath.Base(p.File)
		out.Pages = append(out.Pages, &metadata.FontPage{
			ID:   uint8(p.ID),
			File: strings.TrimSuffix(file, filepath.Ext(file)),
		})
	}
	sort.Slice(out.Pages, func(i, j int) bool { return out.Pages[i].ID < out.Pages[j].ID })

	for _, g := range d.Chars {
		out.Glyphs = append(out.Glyphs, metadata.FontGlyph{
			Codepoint: g.ID,
			X:         uint16(g.X),
			Y:         uint16(g.Y),
			Width:     uint16(g.Width),
			Height:    uint16(g.Height),
			XOffset:   int16(g.XOffset),
			YOffset:   int16(g.YOffset),
			XAdvance:  int16(g.XAdvance),
			PageID:    uint8(g.Page),
		})
	}
	sort.Slice(out.Glyphs, func(i, j int) bool { return out.Glyphs[i].Codepoint < out.Glyphs[j].Codepoint })

	for pair, k := range d.Kerning {
		out.Kernings = append(out.Kernings, metadata.FontKerning{
			Codepoint0: pair.First,
			Codepoint1: pair.Second,
			Amount:     int16(k.Amount),
		})
	}
	sort.Slice(out.Kernings, func(i, j int) bool {
		if out.Kernings[i].Codepoint0 != out.Kernings[j].Codepoint0 {
			return out.Kernings[i].Codepoint0 < out.Kernings[j].Codepoint0
		}
		return out.Kernings[i].Codepoint1 < out.Kernings[j].Codepoint1
	})

	return out
}
