package loaders

import (
	"bufio"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/renderer/metadata"
)

// parseMTL reads a Wavefront material library. Texture map names are reduced to the
// file name without extension, which is how images are acquired.
func parseMTL(r io.Reader) (map[string]*metadata.MeshMaterialData, error) {
	materials := make(map[string]*metadata.MeshMaterialData)
	var current *metadata.MeshMaterialData

	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		fields := strings.Fields(line)
		key := fields[0]
		args := fields[1:]

		if key == "newmtl" {
			if len(args) == 0 {
				return nil, fmt.Errorf("line %d: newmtl without a name", lineNumber)
			}
			current = &metadata.MeshMaterialData{
				Name:          args[0],
				DiffuseColour: mgl32.Vec4{1, 1, 1, 1},
			}
			materials[current.Name] = current
			continue
		}
		if current == nil {
			return nil, fmt.Errorf("line %d: '%s' before newmtl", lineNumber, key)
		}

		switch key {
		case "Kd":
			if len(args) < 3 {
				return nil, fmt.Errorf("line %d: invalid Kd, expected 3 values", lineNumber)
			}
			for i := 0; i < 3; i++ {
				f, err := parseFloat(args[i])
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid Kd value: %w", lineNumber, err)
				}
				current.DiffuseColour[i] = f
			}
		case "d", "Tr":
			if len(args) != 1 {
				return nil, fmt.Errorf("line %d: invalid %s", lineNumber, key)
			}
			f, err := parseFloat(args[0])
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid %s value: %w", lineNumber, key, err)
			}
			if key == "Tr" {
				f = 1 - f
			}
			current.DiffuseColour[3] = f
		case "Ns":
			if len(args) != 1 {
				return nil, fmt.Errorf("line %d: invalid Ns", lineNumber)
			}
			f, err := parseFloat(args[0])
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid shininess value: %w", lineNumber, err)
			}
			current.Shininess = f
		case "map_Kd":
			current.DiffuseMapName = mapName(args)
		case "map_Ks":
			current.SpecularMapName = mapName(args)
		case "map_Bump", "map_bump", "bump", "norm":
			current.NormalMapName = mapName(args)
		case "Ka", "Ks", "Ke", "Ni", "illum":
			// not used by the renderer
		default:
			core.LogDebug("Unknown key '%s' found in material library. Skipping...", key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for _, m := range materials {
		if err := validateMaterial(m); err != nil {
			return nil, err
		}
	}
	return materials, nil
}

func validateMaterial(material *metadata.MeshMaterialData) error {
	if !isValidColour(material.DiffuseColour) {
		return fmt.Errorf("material %s: diffuse colour values must be between 0.0 and 1.0", material.Name)
	}
	if material.Shininess < 0 {
		return fmt.Errorf("material %s: shininess must be a non-negative value", material.Name)
	}
	return nil
}

func isValidColour(v mgl32.Vec4) bool {
	for _, c := range v {
		if c < 0 || c > 1 {
			return false
		}
	}
	return true
}

// mapName takes the file argument of a map statement, skipping options such as -bm 1.0.
func mapName(args []string) string {
	if len(args) == 0 {
		return ""
	}
	file := path.Base(strings.ReplaceAll(args[len(args)-1], "\\", "/"))
	return strings.TrimSuffix(file, path.Ext(file))
}

func parseFloat(s string) (float32, error) {
	f, err := strconv.ParseFloat(s, 32)
	return float32(f), err
}
