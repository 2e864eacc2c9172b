package loaders

import (
	"io"
	"os"

	"github.com/spaghettifunk/playground/engine/renderer/metadata"
)

// BinaryLoader reads a file verbatim. Text resources carry a string, binary resources
// carry the raw bytes.
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	name := path
	if p, ok := params.(map[string]string); ok && p["name"] != "" {
		name = p["name"]
	}

	var data interface{} = buf
	if assetType == metadata.ResourceTypeText {
		data = string(buf)
	}
	return &metadata.Resource{
		Name:     name,
		FullPath: path,
		DataSize: uint64(len(buf)),
		Data:     data,
	}, nil
}

func (bl *BinaryLoader) Unload(resource *metadata.Resource) error {
	resource.Data = nil
	resource.DataSize = 0
	return nil
}
