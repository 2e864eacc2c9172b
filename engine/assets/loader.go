package assets

import "github.com/spaghettifunk/playground/engine/renderer/metadata"

// Loader turns a file into a resource. Loaders run on worker goroutines and must not
// touch engine state.
type Loader interface {
	Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) // `interface{}` here allows loaders to take per-type parameters
	Unload(*metadata.Resource) error
}
