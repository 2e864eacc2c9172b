package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/playground/engine/assets/loaders"
	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/renderer/metadata"
)

type AssetInfo struct {
	// Path relative to the asset root, slash separated.
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

// AssetManager indexes an asset directory and resolves asset names to files. When
// watching, the index follows files being created, written and removed.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager(root string) *AssetManager {
	return &AssetManager{
		root:    filepath.Clean(root),
		assets:  make(map[string]AssetInfo),
		loaders: make(map[metadata.ResourceType]Loader),
		done:    make(chan struct{}),
	}
}

// Initialize indexes the asset root and registers the built-in loaders. With watch set
// the index is kept current until Shutdown.
func (am *AssetManager) Initialize(watch bool) error {
	if _, err := os.Stat(am.root); err != nil {
		return fmt.Errorf("asset root %s: %w", am.root, err)
	}

	// Register loaders
	binary := &loaders.BinaryLoader{}
	am.RegisterLoader(metadata.ResourceTypeText, binary)
	am.RegisterLoader(metadata.ResourceTypeBinary, binary)
	am.RegisterLoader(metadata.ResourceTypeImage, &loaders.ImageLoader{})
	am.RegisterLoader(metadata.ResourceTypeMesh, &loaders.MeshLoader{})
	am.RegisterLoader(metadata.ResourceTypeBitmapFont, &loaders.BitmapFontLoader{})

	if !watch {
		return am.watchRecursive(am.root, false)
	}

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	am.fsnotify = fsWatch
	if err := am.watchRecursive(am.root, false); err != nil {
		fsWatch.Close()
		am.fsnotify = nil
		return err
	}
	am.wg.Add(1)
	go am.start()
	core.LogInfo("watching asset directory %s", am.root)
	return nil
}

// Root returns the directory the manager indexes.
func (am *AssetManager) Root() string {
	return am.root
}

// RegisterLoader sets the loader for a resource type, replacing any previous one.
func (am *AssetManager) RegisterLoader(assetType metadata.ResourceType, loader Loader) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.loaders[assetType] = loader
}

// Lookup resolves a name to an indexed asset of the given type. The name may be the
// relative path, the relative path without extension or the bare file name without
// extension. Ambiguous names resolve to the first match in path order.
func (am *AssetManager) Lookup(name string, resourceType metadata.ResourceType) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()

	name = strings.TrimPrefix(filepath.ToSlash(name), "./")
	if info, ok := am.assets[name]; ok && info.Type == resourceType {
		return info, true
	}

	var matches []string
	for p, info := range am.assets {
		if info.Type != resourceType {
			continue
		}
		noExt := strings.TrimSuffix(p, path.Ext(p))
		if noExt == name || path.Base(noExt) == name {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return AssetInfo{}, false
	}
	sort.Strings(matches)
	if len(matches) > 1 {
		core.LogWarn("asset name '%s' is ambiguous, using %s", name, matches[0])
	}
	return am.assets[matches[0]], true
}

// Len returns the number of indexed assets.
func (am *AssetManager) Len() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// LoadAsset loads an asset using the appropriate loader. It is safe to call from worker
// goroutines.
func (am *AssetManager) LoadAsset(name string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	asset, exists := am.Lookup(name, resourceType)
	if !exists {
		return nil, fmt.Errorf("%s asset '%s': %w", resourceType, name, core.ErrAssetNotFound)
	}

	am.mutex.Lock()
	asset.LastLoaded = time.Now()
	am.assets[asset.Path] = asset // Update the loaded time
	loader, loaderExists := am.loaders[asset.Type]
	am.mutex.Unlock()

	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type %s: %w", asset.Type, core.ErrUnsupportedFormat)
	}

	res, err := loader.Load(filepath.Join(am.root, filepath.FromSlash(asset.Path)), resourceType, params)
	if err != nil {
		return nil, err
	}
	if res.Name == "" || res.Name == resourceType.String() {
		res.Name = name
	}
	return res, nil
}

func (am *AssetManager) UnloadAsset(resource *metadata.Resource, resourceType metadata.ResourceType) error {
	am.mutex.RLock()
	loader, ok := am.loaders[resourceType]
	am.mutex.RUnlock()
	if !ok {
		return fmt.Errorf("no loader registered for asset type %s: %w", resourceType, core.ErrUnsupportedFormat)
	}
	return loader.Unload(resource)
}

// Shutdown stops watching the asset directory.
func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	if am.fsnotify == nil {
		return nil
	}
	close(am.done)
	am.wg.Wait()
	return nil
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err.Error())

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	s, err := os.Stat(e.Name)
	if err == nil && s.IsDir() {
		if e.Op&fsnotify.Create != 0 {
			if err := am.watchRecursive(e.Name, false); err != nil {
				core.LogError("watching %s: %s", e.Name, err.Error())
			}
		}
		return
	}
	// Handle create or modify events
	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		am.handleFileEvent(e.Name)
	}
	// A removed or renamed directory cannot be told apart from a file any more, so
	// every indexed path below it is dropped.
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		am.removeAsset(e.Name)
	}
}

// watchRecursive indexes every file under path and, when watching, adds every directory
// to the watch list.
func (am *AssetManager) watchRecursive(root string, unWatch bool) error {
	return filepath.WalkDir(root, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if am.fsnotify == nil {
				return nil
			}
			if unWatch {
				if err := am.fsnotify.Remove(walkPath); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
					return err
				}
				return nil
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(file string) {
	assetType, ok := determineAssetType(file)
	if !ok {
		return
	}
	rel, err := am.relative(file)
	if err != nil {
		return
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	info := am.assets[rel]
	info.Path = rel
	info.Type = assetType
	am.assets[rel] = info
}

// Remove the asset, or every asset below a directory, from the index
func (am *AssetManager) removeAsset(file string) {
	rel, err := am.relative(file)
	if err != nil {
		return
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, rel)
	for p := range am.assets {
		if strings.HasPrefix(p, rel+"/") {
			delete(am.assets, p)
		}
	}
}

func (am *AssetManager) relative(file string) (string, error) {
	rel, err := filepath.Rel(am.root, file)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func determineAssetType(file string) (metadata.ResourceType, bool) {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp":
		return metadata.ResourceTypeImage, true
	case ".obj":
		return metadata.ResourceTypeMesh, true
	case ".fnt":
		return metadata.ResourceTypeBitmapFont, true
	case ".mtl", ".txt", ".toml", ".json":
		return metadata.ResourceTypeText, true
	case ".bin", ".spv":
		return metadata.ResourceTypeBinary, true
	default:
		return metadata.ResourceTypeCustom, false
	}
}
