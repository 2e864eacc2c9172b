package loaders

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/renderer/metadata"
)

const cubeMTL = `# two materials
newmtl crate
Kd 0.8 0.6 0.4
Ns 32
map_Kd textures/crate_diffuse.png
map_Bump -bm 0.5 textures\crate_normal.png

newmtl metal
Kd 0.5 0.5 0.5
d 0.25
map_Ks metal_spec.jpg
`

const quadOBJ = `mtllib cube.mtl
o quad
v -1 -1 0
v 1 -1 0
v 1 1 0
v -1 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
usemtl crate
f 1/1/1 2/2/1 3/3/1 4/4/1
usemtl metal
f -4/-4/-1 -2/-2/-1 -1/-1/-1
`

func openString(files map[string]string) func(string) (io.ReadCloser, error) {
	return func(name string) (io.ReadCloser, error) {
		s, ok := files[name]
		if !ok {
			return nil, os.ErrNotExist
		}
		return io.NopCloser(strings.NewReader(s)), nil
	}
}

func TestParseMTL(t *testing.T) {
	materials, err := parseMTL(strings.NewReader(cubeMTL))
	require.NoError(t, err)
	require.Len(t, materials, 2)

	crate := materials["crate"]
	assert.Equal(t, mgl32.Vec4{0.8, 0.6, 0.4, 1}, crate.DiffuseColour)
	assert.Equal(t, float32(32), crate.Shininess)
	assert.Equal(t, "crate_diffuse", crate.DiffuseMapName)
	assert.Equal(t, "crate_normal", crate.NormalMapName)
	assert.Empty(t, crate.SpecularMapName)

	metal := materials["metal"]
	assert.Equal(t, float32(0.25), metal.DiffuseColour[3])
	assert.Equal(t, "metal_spec", metal.SpecularMapName)
}

func TestParseMTLRejectsInvalidInput(t *testing.T) {
	_, err := parseMTL(strings.NewReader("Kd 1 1 1\n"))
	assert.Error(t, err)

	_, err = parseMTL(strings.NewReader("newmtl a\nKd 2 0 0\n"))
	assert.Error(t, err)

	_, err = parseMTL(strings.NewReader("newmtl a\nNs shiny\n"))
	assert.Error(t, err)
}

func TestParseOBJ(t *testing.T) {
	data, err := ParseOBJ(strings.NewReader(quadOBJ), openString(map[string]string{"cube.mtl": cubeMTL}))
	require.NoError(t, err)
	require.Len(t, data.SubMeshes, 2)

	quad := data.SubMeshes[0]
	assert.Equal(t, "quad_crate", quad.Name)
	assert.Len(t, quad.Vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, quad.Indices)
	assert.Equal(t, mgl32.Vec2{1, 1}, quad.Vertices[2].Texcoord)
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, quad.Vertices[0].Normal)
	require.NotNil(t, quad.MaterialData)
	assert.Equal(t, "crate_diffuse", quad.MaterialData.DiffuseMapName)

	// negative indices count back from the last element
	tri := data.SubMeshes[1]
	assert.Equal(t, "quad_metal", tri.Name)
	assert.Len(t, tri.Vertices, 3)
	assert.Equal(t, mgl32.Vec3{-1, -1, 0}, tri.Vertices[0].Position)
	assert.Equal(t, mgl32.Vec3{-1, 1, 0}, tri.Vertices[2].Position)
	assert.Equal(t, "metal", tri.MaterialData.Name)
}

func TestParseOBJComputesMissingNormals(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"
	data, err := ParseOBJ(strings.NewReader(src), nil)
	require.NoError(t, err)
	require.Len(t, data.SubMeshes, 1)

	sm := data.SubMeshes[0]
	assert.Equal(t, "default", sm.Name)
	assert.Nil(t, sm.MaterialData)
	for _, v := range sm.Vertices {
		assert.True(t, v.Normal.ApproxEqual(mgl32.Vec3{0, 0, 1}), "got %v", v.Normal)
	}
}

func TestParseOBJErrors(t *testing.T) {
	_, err := ParseOBJ(strings.NewReader("v 0 0 0\nf 1 2 3\n"), nil)
	assert.Error(t, err)

	_, err = ParseOBJ(strings.NewReader("v 0 0\n"), nil)
	assert.Error(t, err)

	_, err = ParseOBJ(strings.NewReader("v 0 0 0\n"), nil)
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)

	_, err = ParseOBJ(strings.NewReader("mtllib missing.mtl\n"), openString(nil))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func writePNG(t *testing.T, path string, w, h int) {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 7, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestImageLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gradient.png")
	writePNG(t, path, 4, 3)

	loader := &ImageLoader{}
	res, err := loader.Load(path, metadata.ResourceTypeImage, &metadata.ImageResourceParams{})
	require.NoError(t, err)
	data := res.Data.(*metadata.ImageResourceData)
	assert.Equal(t, uint32(4), data.Width)
	assert.Equal(t, uint32(3), data.Height)
	assert.Equal(t, uint8(4), data.ChannelCount)
	require.Len(t, data.Pixels, 4*3*4)
	// pixel (1, 0)
	assert.Equal(t, []uint8{1, 0, 7, 255}, data.Pixels[4:8])

	flipped, err := loader.Load(path, metadata.ResourceTypeImage, &metadata.ImageResourceParams{FlipY: true})
	require.NoError(t, err)
	fdata := flipped.Data.(*metadata.ImageResourceData)
	// first row of the flipped image is the last row of the source
	assert.Equal(t, []uint8{1, 2, 7, 255}, fdata.Pixels[4:8])

	require.NoError(t, loader.Unload(res))
	assert.Nil(t, res.Data)
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	_, err := DecodeImage(strings.NewReader("definitely not an image"), false)
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestBinaryLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	loader := &BinaryLoader{}
	text, err := loader.Load(path, metadata.ResourceTypeText, map[string]string{"name": "notes"})
	require.NoError(t, err)
	assert.Equal(t, "notes", text.Name)
	assert.Equal(t, "hello", text.Data)

	raw, err := loader.Load(path, metadata.ResourceTypeBinary, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), raw.Data)
	assert.Equal(t, uint64(5), raw.DataSize)
}

const fontFNT = `info face="Mono" size=16 bold=0 italic=0 charset="" unicode=1 stretchH=100 smooth=1 aa=1 padding=0,0,0,0 spacing=1,1 outline=0
common lineHeight=18 base=14 scaleW=64 scaleH=32 pages=1 packed=0 alphaChnl=0 redChnl=4 greenChnl=4 blueChnl=4
page id=0 file="mono_0.png"
chars count=2
char id=66   x=8     y=0     width=6     height=10    xoffset=1     yoffset=4     xadvance=8     page=0  chnl=15
char id=65   x=0     y=0     width=7     height=10    xoffset=0     yoffset=4     xadvance=8     page=0  chnl=15
kernings count=1
kerning first=65  second=66  amount=-1
`

func TestBitmapFontLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mono.fnt")
	require.NoError(t, os.WriteFile(path, []byte(fontFNT), 0o644))
	writePNG(t, filepath.Join(dir, "mono_0.png"), 64, 32)

	loader := &BitmapFontLoader{}
	res, err := loader.Load(path, metadata.ResourceTypeBitmapFont, nil)
	require.NoError(t, err)
	assert.Equal(t, "mono", res.Name)

	data := res.Data.(*metadata.BitmapFontResourceData)
	assert.Equal(t, "Mono", data.Face)
	assert.Equal(t, uint32(16), data.Size)
	assert.Equal(t, int32(18), data.LineHeight)
	assert.Equal(t, int32(14), data.Baseline)
	assert.Equal(t, uint32(64), data.AtlasSizeX)
	assert.Equal(t, uint32(32), data.AtlasSizeY)
	require.Len(t, data.Pages, 1)
	assert.Equal(t, "mono_0", data.Pages[0].File)
	require.Len(t, data.Glyphs, 2)
	assert.Equal(t, 'A', data.Glyphs[0].Codepoint)
	assert.Equal(t, uint16(7), data.Glyphs[0].Width)
	require.Len(t, data.Kernings, 1)
	assert.Equal(t, int16(-1), data.Kernings[0].Amount)

	require.NoError(t, loader.Unload(res))
	assert.Nil(t, res.Data)
}
