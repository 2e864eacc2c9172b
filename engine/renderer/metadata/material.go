package metadata

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

/** @brief The name of the default material. */
const DefaultMaterialName string = "default"

/** @brief Texture slots of a material. */
type MaterialMap int

const (
	MaterialMapDiffuse MaterialMap = iota
	MaterialMapNormal
	MaterialMapSpecular
	MaterialMapCount
)

/**
 * @brief Material configuration typically loaded from
 * a file or created in code to load a material from.
 */
type MaterialConfig struct {
	/** @brief The name of the material. */
	Name string
	/** @brief The diffuse colour of the material. */
	DiffuseColour mgl32.Vec4
	/** @brief The shininess of the material. */
	Shininess float32
	/** @brief The diffuse map name. */
	DiffuseMapName string
	/** @brief The specular map name. */
	SpecularMapName string
	/** @brief The normal map name. */
	NormalMapName string
}

/**
 * @brief A material, which represents various properties
 * of a surface in the world such as texture, colour,
 * bumpiness, shininess and more.
 */
type Material struct {
	/** @brief The material id. */
	ID uuid.UUID
	/** @brief The material name. */
	Name string
	/** @brief The diffuse colour. */
	DiffuseColour mgl32.Vec4
	/** @brief The material shininess, determines how concentrated the specular lighting is. */
	Shininess float32
	/** @brief The texture of each map. A nil or not yet loaded image renders with the fallback texture. */
	Maps [MaterialMapCount]*Image
}
