package metadata

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type Vertex3D struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Texcoord mgl32.Vec2
	Colour   mgl32.Vec4
}

/**
 * @brief Material description attached to a sub-mesh by the mesh parser. Map names
 * are asset names; an empty name means the fallback texture.
 */
type MeshMaterialData struct {
	Name            string
	DiffuseColour   mgl32.Vec4
	Shininess       float32
	DiffuseMapName  string
	NormalMapName   string
	SpecularMapName string
}

/** @brief A range of geometry drawn with one material. */
type SubMesh struct {
	Name         string
	Vertices     []Vertex3D
	Indices      []uint32
	MaterialData *MeshMaterialData
	/** @brief Resolved on the main thread from MaterialData. */
	Material *Material
	/** @brief The backend vertex/index buffers. */
	Handle interface{}
}

/** @brief Output of the mesh parser. */
type MeshResourceData struct {
	SubMeshes []*SubMesh
}

type Mesh struct {
	ID        uuid.UUID
	Name      string
	SubMeshes []*SubMesh

	loaded atomic.Bool
}

func NewMesh(name string) *Mesh {
	return &Mesh{
		ID:   uuid.New(),
		Name: name,
	}
}

/** @brief True once the mesh is uploaded and its materials resolved. */
func (m *Mesh) HasLoaded() bool {
	return m != nil && m.loaded.Load()
}

func (m *Mesh) MarkLoaded() {
	m.loaded.Store(true)
}
