package systems

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/playground/engine/assets"
	"github.com/spaghettifunk/playground/engine/renderer/headless"
	"github.com/spaghettifunk/playground/engine/renderer/metadata"
	"github.com/spaghettifunk/playground/engine/scene"
)

const crateOBJ = `mtllib crate.mtl
o crate
v -1 -1 0
v 1 -1 0
v 1 1 0
vt 0 0
vt 1 0
vt 1 1
vn 0 0 1
usemtl wood
f 1/1/1 2/2/1 3/3/1
usemtl plain
f 3/3/1 2/2/1 1/1/1
`

const crateMTL = `newmtl wood
Kd 1 0.5 0.25
map_Kd wood.png

newmtl plain
Kd 0.2 0.2 0.2
`

type fixture struct {
	root      string
	backend   *headless.Backend
	jobs      *JobSystem
	textures  *TextureSystem
	resources *ResourceSystem
}

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func newFixture(t *testing.T, capacity uint32, threshold uint32) *fixture {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "crate.obj"), []byte(crateOBJ), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "crate.mtl"), []byte(crateMTL), 0o644))
	writeTestPNG(t, filepath.Join(root, "wood.png"), 4, 4)
	writeTestPNG(t, filepath.Join(root, "stone.png"), 2, 2)

	am := assets.NewAssetManager(root)
	require.NoError(t, am.Initialize(false))

	backend := headless.New(capacity)
	require.NoError(t, backend.Initialize(metadata.RendererBackendConfig{FramesInFlight: 2}))
	ts := NewTextureSystem(TextureSystemConfig{FramesInFlight: 2, LargeArrayThreshold: threshold}, backend)
	require.NoError(t, ts.Initialize())

	js := newStartedJobSystem(t, 2)

	return &fixture{
		root:      root,
		backend:   backend,
		jobs:      js,
		textures:  ts,
		resources: NewResourceSystem(ResourceSystemConfig{}, js, am, backend, ts),
	}
}

func TestAcquireImageLoadsThroughJobs(t *testing.T) {
	f := newFixture(t, 16, 0)

	img := f.resources.AcquireImage("stone")
	assert.False(t, img.HasLoaded())
	assert.Same(t, img, f.resources.AcquireImage("stone"))

	pump(t, f.jobs, img.HasLoaded)
	assert.Equal(t, uint32(2), img.Width)
	assert.Equal(t, uint32(2), img.Height)
	assert.Equal(t, uint32(1), img.Generation)
	// per-draw mode hands out no permanent slot
	assert.Equal(t, metadata.InvalidTextureIndex, img.TextureIndex)

	assert.Same(t, f.textures.FallbackImage(), f.resources.AcquireImage(""))
}

func TestAcquireImageRegistersInLargeArrayMode(t *testing.T) {
	f := newFixture(t, 16, 8)
	require.Equal(t, metadata.TextureModeLargeArray, f.textures.Mode())

	img := f.resources.AcquireImage("stone")
	pump(t, f.jobs, img.HasLoaded)
	// slot 0 belongs to the fallback
	assert.Equal(t, uint32(1), img.TextureIndex)
	assert.Same(t, img, f.backend.SlotImage(f.textures.GlobalGroup(), 1))
}

func TestMissingImageStaysUnloaded(t *testing.T) {
	f := newFixture(t, 16, 0)

	img := f.resources.AcquireImage("does_not_exist")
	// the image load is the first job the fixture queues
	pump(t, f.jobs, func() bool { return f.jobs.Status(metadata.JobHandle(1)) == metadata.JobStateFailed })
	f.jobs.ProcessMainThreadWork()

	assert.False(t, img.HasLoaded())
	assert.Equal(t, 1, f.backend.LiveImages(), "only the fallback exists")
}

func TestAcquireMeshResolvesMaterials(t *testing.T) {
	f := newFixture(t, 16, 0)

	mesh := f.resources.AcquireMesh("crate")
	assert.Same(t, mesh, f.resources.AcquireMesh("crate"))
	pump(t, f.jobs, mesh.HasLoaded)

	require.Len(t, mesh.SubMeshes, 2)
	wood := mesh.SubMeshes[0].Material
	require.NotNil(t, wood)
	assert.Equal(t, "wood", wood.Name)
	assert.Equal(t, mgl32.Vec4{1, 0.5, 0.25, 1}, wood.DiffuseColour)
	assert.Nil(t, wood.Maps[metadata.MaterialMapNormal])

	// the diffuse map load was queued by the mesh completion
	diffuse := wood.Maps[metadata.MaterialMapDiffuse]
	require.NotNil(t, diffuse)
	assert.Equal(t, "wood", diffuse.Name)
	pump(t, f.jobs, diffuse.HasLoaded)

	plain := mesh.SubMeshes[1].Material
	assert.Equal(t, "plain", plain.Name)
	assert.Nil(t, plain.Maps[metadata.MaterialMapDiffuse])

	m, ok := f.resources.Materials().Get("wood")
	assert.True(t, ok)
	assert.Same(t, wood, m)
	assert.Equal(t, 2, f.resources.Materials().Len())
}

func TestMaterialSystemDefaults(t *testing.T) {
	f := newFixture(t, 16, 0)
	ms := f.resources.Materials()

	assert.Same(t, ms.Default(), ms.Acquire(nil))
	assert.Same(t, ms.Default(), ms.AcquireFromConfig(metadata.MaterialConfig{}))
	m, ok := ms.Get(metadata.DefaultMaterialName)
	assert.True(t, ok)
	assert.Same(t, ms.Default(), m)

	a := ms.AcquireFromConfig(metadata.MaterialConfig{Name: "red", DiffuseColour: mgl32.Vec4{1, 0, 0, 1}})
	b := ms.AcquireFromConfig(metadata.MaterialConfig{Name: "red", DiffuseColour: mgl32.Vec4{0, 1, 0, 1}})
	assert.Same(t, a, b)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, b.DiffuseColour)
}

func TestDrawFrameSkipsUnloadedMeshes(t *testing.T) {
	f := newFixture(t, 16, 0)
	graph := scene.NewGraph()
	node := graph.CreateNodeAt("crate", mgl32.Vec3{1, 2, 3}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1})
	r := NewRendererSystem(RendererSystemConfig{FramesInFlight: 2}, f.backend, f.textures, f.resources.Materials(), graph)

	mesh := f.resources.AcquireMesh("crate")
	packet := &metadata.RenderPacket{
		DeltaTime: 1.0 / 60.0,
		Models:    []*metadata.Model{{Name: "crate", Node: node, Mesh: mesh}},
	}

	// the mesh is not loaded until the main-thread phase runs
	require.NoError(t, r.DrawFrame(packet))
	frames := f.backend.Frames()
	require.Len(t, frames, 1)
	assert.Empty(t, frames[0].Commands)
	assert.Equal(t, uint32(0), frames[0].Index)

	pump(t, f.jobs, mesh.HasLoaded)
	diffuse := mesh.SubMeshes[0].Material.Maps[metadata.MaterialMapDiffuse]
	pump(t, f.jobs, diffuse.HasLoaded)

	require.NoError(t, r.DrawFrame(packet))
	frames = f.backend.Frames()
	require.Len(t, frames, 2)
	frame := frames[1]
	assert.Equal(t, uint32(1), frame.Index)
	require.Len(t, frame.Commands, 2)
	require.NotNil(t, frame.Group)

	woodCmd := frame.Commands[0]
	assert.Equal(t, mgl32.Translate3D(1, 2, 3), woodCmd.Constants.Model)
	diffuseSlot := woodCmd.Constants.TextureIndices[metadata.MaterialMapDiffuse]
	assert.Equal(t, uint32(1), diffuseSlot)
	assert.Same(t, diffuse, f.backend.SlotImage(frame.Group, diffuseSlot))
	assert.Equal(t, metadata.FallbackTextureSlot, woodCmd.Constants.TextureIndices[metadata.MaterialMapNormal])
	assert.Equal(t, [3]uint32{0, 0, 0}, frame.Commands[1].Constants.TextureIndices)

	// the frame index wraps around and reclaims the groups of that slot
	liveBefore := f.backend.LiveGroups()
	require.NoError(t, r.DrawFrame(packet))
	assert.Equal(t, uint32(0), f.backend.Frames()[2].Index)
	assert.Equal(t, liveBefore, f.backend.LiveGroups())
	assert.Equal(t, uint64(3), r.FrameNumber())
}

func TestDrawFrameWaitsForResizeToSettle(t *testing.T) {
	f := newFixture(t, 16, 0)
	r := NewRendererSystem(RendererSystemConfig{FramesInFlight: 2}, f.backend, f.textures, f.resources.Materials(), scene.NewGraph())

	r.OnResize(800, 600)
	packet := &metadata.RenderPacket{}
	for i := 0; i < int(resizeSettleFrames)-1; i++ {
		require.NoError(t, r.DrawFrame(packet))
	}
	assert.Empty(t, f.backend.Frames())
	require.NoError(t, r.DrawFrame(packet))
	assert.Len(t, f.backend.Frames(), 1)
	assert.False(t, r.Resizing)
}

func TestResourceShutdownReleasesGPUObjects(t *testing.T) {
	f := newFixture(t, 16, 0)
	img := f.resources.AcquireImage("stone")
	mesh := f.resources.AcquireMesh("crate")
	pump(t, f.jobs, func() bool { return img.HasLoaded() && mesh.HasLoaded() })
	require.NoError(t, f.jobs.Shutdown())

	require.NoError(t, f.resources.Shutdown())
	require.NoError(t, f.textures.Shutdown())
	assert.Equal(t, 0, f.backend.LiveImages())
	assert.False(t, img.HasLoaded())
}
