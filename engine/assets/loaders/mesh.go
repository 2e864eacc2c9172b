package loaders

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/renderer/metadata"
)

// MeshLoader parses Wavefront OBJ files. Every object, group or material change starts a
// new sub-mesh; material libraries are read relative to the OBJ file.
type MeshLoader struct{}

func (ml *MeshLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dir := filepath.Dir(path)
	data, err := ParseOBJ(f, func(lib string) (io.ReadCloser, error) {
		return os.Open(filepath.Join(dir, lib))
	})
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	size := 0
	for _, sm := range data.SubMeshes {
		size += len(sm.Vertices)*int(vertexSize) + len(sm.Indices)*4
	}
	return &metadata.Resource{
		Name:     "mesh",
		FullPath: path,
		DataSize: uint64(size),
		Data:     data,
	}, nil
}

func (ml *MeshLoader) Unload(resource *metadata.Resource) error {
	resource.Data = nil
	resource.DataSize = 0
	return nil
}

// position + normal + texcoord + colour
const vertexSize = (3 + 3 + 2 + 4) * 4

type objIndex struct {
	position int
	texcoord int
	normal   int
}

type objBuilder struct {
	positions []mgl32.Vec3
	texcoords []mgl32.Vec2
	normals   []mgl32.Vec3
	materials map[string]*metadata.MeshMaterialData

	groupName       string
	current         *metadata.SubMesh
	pendingMaterial *metadata.MeshMaterialData
	lookup          map[objIndex]uint32
	needsFlat       bool
	out             []*metadata.SubMesh
}

// ParseOBJ reads OBJ geometry from r. openLibrary resolves mtllib statements; when nil
// material libraries are ignored.
func ParseOBJ(r io.Reader, openLibrary func(name string) (io.ReadCloser, error)) (*metadata.MeshResourceData, error) {
	b := &objBuilder{
		materials: make(map[string]*metadata.MeshMaterialData),
		groupName: "default",
	}

	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}
		fields := strings.Fields(line)
		args := fields[1:]

		switch fields[0] {
		case "v":
			v, err := parseVec(args, 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNumber, err)
			}
			b.positions = append(b.positions, mgl32.Vec3{v[0], v[1], v[2]})
		case "vt":
			v, err := parseVec(args, 2)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNumber, err)
			}
			b.texcoords = append(b.texcoords, mgl32.Vec2{v[0], v[1]})
		case "vn":
			v, err := parseVec(args, 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNumber, err)
			}
			b.normals = append(b.normals, mgl32.Vec3{v[0], v[1], v[2]}.Normalize())
		case "f":
			if err := b.face(args); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNumber, err)
			}
		case "o", "g":
			b.finish()
			if len(args) > 0 {
				b.groupName = strings.Join(args, " ")
			}
		case "usemtl":
			var material *metadata.MeshMaterialData
			if len(args) > 0 {
				material = b.materials[args[0]]
				if material == nil {
					core.LogWarn("material '%s' is not defined by any loaded library", args[0])
				}
			}
			b.finish()
			b.begin(material)
		case "mtllib":
			if openLibrary == nil {
				continue
			}
			for _, lib := range args {
				if err := b.loadLibrary(openLibrary, lib); err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNumber, err)
				}
			}
		case "s", "l", "p":
			// smoothing groups, lines and points are ignored
		default:
			core.LogDebug("Unknown OBJ statement '%s'. Skipping...", fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	b.finish()

	if len(b.out) == 0 {
		return nil, fmt.Errorf("no faces found: %w", core.ErrUnsupportedFormat)
	}
	return &metadata.MeshResourceData{SubMeshes: b.out}, nil
}

func (b *objBuilder) loadLibrary(open func(name string) (io.ReadCloser, error), name string) error {
	rc, err := open(name)
	if err != nil {
		return err
	}
	defer rc.Close()

	materials, err := parseMTL(rc)
	if err != nil {
		return fmt.Errorf("material library %s: %w", name, err)
	}
	for k, v := range materials {
		b.materials[k] = v
	}
	return nil
}

func (b *objBuilder) begin(material *metadata.MeshMaterialData) {
	name := b.groupName
	if material != nil {
		name = fmt.Sprintf("%s_%s", b.groupName, material.Name)
	}
	b.current = &metadata.SubMesh{
		Name:         name,
		MaterialData: material,
	}
	b.lookup = make(map[objIndex]uint32)
	b.needsFlat = false
}

// finish closes the current sub-mesh. Sub-meshes without faces are dropped; a new one
// keeps using the material of the previous.
func (b *objBuilder) finish() {
	if b.current == nil {
		return
	}
	material := b.current.MaterialData
	if len(b.current.Indices) > 0 {
		if b.needsFlat {
			computeNormals(b.current)
		}
		b.out = append(b.out, b.current)
	}
	b.current = nil
	b.pendingMaterial = material
}

func (b *objBuilder) face(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("face with %d vertices", len(args))
	}
	if b.current == nil {
		b.begin(b.pendingMaterial)
	}

	corners := make([]uint32, len(args))
	for i, a := range args {
		idx, err := b.parseIndex(a)
		if err != nil {
			return err
		}
		corners[i] = b.vertex(idx)
	}
	// fan triangulation
	for i := 1; i+1 < len(corners); i++ {
		b.current.Indices = append(b.current.Indices, corners[0], corners[i], corners[i+1])
	}
	return nil
}

func (b *objBuilder) vertex(idx objIndex) uint32 {
	if v, ok := b.lookup[idx]; ok {
		return v
	}
	vert := metadata.Vertex3D{
		Position: b.positions[idx.position],
		Colour:   mgl32.Vec4{1, 1, 1, 1},
	}
	if idx.texcoord >= 0 {
		vert.Texcoord = b.texcoords[idx.texcoord]
	}
	if idx.normal >= 0 {
		vert.Normal = b.normals[idx.normal]
	} else {
		b.needsFlat = true
	}
	i := uint32(len(b.current.Vertices))
	b.current.Vertices = append(b.current.Vertices, vert)
	b.lookup[idx] = i
	return i
}

// parseIndex resolves v, v/vt, v//vn and v/vt/vn references, including negative ones.
func (b *objBuilder) parseIndex(s string) (objIndex, error) {
	parts := strings.Split(s, "/")
	idx := objIndex{texcoord: -1, normal: -1}

	var err error
	if idx.position, err = resolveIndex(parts[0], len(b.positions)); err != nil {
		return idx, err
	}
	if len(parts) > 1 && parts[1] != "" {
		if idx.texcoord, err = resolveIndex(parts[1], len(b.texcoords)); err != nil {
			return idx, err
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if idx.normal, err = resolveIndex(parts[2], len(b.normals)); err != nil {
			return idx, err
		}
	}
	return idx, nil
}

func resolveIndex(s string, count int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid index '%s'", s)
	}
	if i < 0 {
		i = count + i
	} else {
		i--
	}
	if i < 0 || i >= count {
		return 0, fmt.Errorf("index %s out of range (%d elements)", s, count)
	}
	return i, nil
}

func parseVec(args []string, n int) ([]float32, error) {
	if len(args) < n {
		return nil, fmt.Errorf("expected %d components, got %d", n, len(args))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := parseFloat(args[i])
		if err != nil {
			return nil, fmt.Errorf("invalid component '%s'", args[i])
		}
		out[i] = f
	}
	return out, nil
}

// computeNormals fills missing normals by accumulating face normals per vertex.
func computeNormals(sm *metadata.SubMesh) {
	missing := make([]bool, len(sm.Vertices))
	for i, v := range sm.Vertices {
		missing[i] = v.Normal == (mgl32.Vec3{})
	}
	for i := 0; i+2 < len(sm.Indices); i += 3 {
		i0, i1, i2 := sm.Indices[i], sm.Indices[i+1], sm.Indices[i+2]
		p0 := sm.Vertices[i0].Position
		n := sm.Vertices[i1].Position.Sub(p0).Cross(sm.Vertices[i2].Position.Sub(p0))
		for _, idx := range []uint32{i0, i1, i2} {
			if missing[idx] {
				sm.Vertices[idx].Normal = sm.Vertices[idx].Normal.Add(n)
			}
		}
	}
	for i := range sm.Vertices {
		if missing[i] && sm.Vertices[i].Normal.Len() > 0 {
			sm.Vertices[i].Normal = sm.Vertices[i].Normal.Normalize()
		}
	}
}
