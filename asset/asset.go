// Package asset locates audio, video and image files matching sample names.
// Resolution is deliberately forgiving: an explicit path from the module's
// sample table wins when it exists on disk, otherwise the configured folders
// are searched in order for the first file whose stem equals, starts with or
// contains the lowercased sample name. A miss is an expected outcome, not an
// error; callers substitute silence or filler visuals.
package asset

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/modpmv/modpmv"
)

var kindExts = map[modpmv.AssetKind]map[string]bool{
	modpmv.AssetAudio: {".wav": true, ".mp3": true, ".ogg": true, ".flac": true, ".m4a": true},
	modpmv.AssetVideo: {".mp4": true, ".mov": true, ".webm": true, ".mkv": true, ".avi": true},
	modpmv.AssetImage: {".png": true, ".jpg": true, ".jpeg": true, ".bmp": true, ".gif": true},
}

type entry struct {
	name string // original file name
	stem string // lowercased name without extension
	ext  string // lowercased extension
}

// Resolver performs fuzzy sample-name lookup over ordered asset folders.
// Directory listings are read once per folder and cached for the lifetime of
// the resolver, so one render job sees a stable view of the asset folders.
// os.ReadDir returns entries sorted by file name, which makes "first match
// wins" deterministic for a given folder content.
type Resolver struct {
	folders map[modpmv.AssetKind][]string

	mu      sync.Mutex
	listing map[string][]entry
}

// NewResolver builds a resolver over the given folder lists. Nonexistent
// folders are tolerated and simply never match.
func NewResolver(audio, video, image []string) *Resolver {
	return &Resolver{
		folders: map[modpmv.AssetKind][]string{
			modpmv.AssetAudio: audio,
			modpmv.AssetVideo: video,
			modpmv.AssetImage: image,
		},
		listing: map[string][]entry{},
	}
}

// Resolve implements modpmv.Resolver.
func (r *Resolver) Resolve(name, explicit string, kind modpmv.AssetKind) (string, bool) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, true
		}
	}
	if name == "" {
		return "", false
	}
	base := strings.ToLower(name)
	exts := kindExts[kind]
	for _, folder := range r.folders[kind] {
		for _, e := range r.list(folder) {
			if !exts[e.ext] {
				continue
			}
			if e.stem == base || strings.HasPrefix(e.stem, base) || strings.Contains(e.stem, base) {
				return filepath.Join(folder, e.name), true
			}
		}
	}
	return "", false
}

// Images returns every image file in the resolver's image folders, in folder
// order. Used to pick filler backgrounds for unresolved video channels.
func (r *Resolver) Images() []string {
	var images []string
	for _, folder := range r.folders[modpmv.AssetImage] {
		for _, e := range r.list(folder) {
			if kindExts[modpmv.AssetImage][e.ext] {
				images = append(images, filepath.Join(folder, e.name))
			}
		}
	}
	return images
}

func (r *Resolver) list(folder string) []entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.listing[folder]; ok {
		return cached
	}
	var entries []entry
	dirents, err := os.ReadDir(folder)
	if err == nil {
		for _, d := range dirents {
			if d.IsDir() {
				continue
			}
			lower := strings.ToLower(d.Name())
			ext := filepath.Ext(lower)
			entries = append(entries, entry{
				name: d.Name(),
				stem: strings.TrimSuffix(lower, ext),
				ext:  ext,
			})
		}
	}
	r.listing[folder] = entries
	return entries
}

// List returns the files in folder carrying an extension of the given kind.
// Unlike Resolver, List reads the directory on every call.
func List(folder string, kind modpmv.AssetKind) []string {
	dirents, err := os.ReadDir(folder)
	if err != nil {
		return nil
	}
	exts := kindExts[kind]
	var files []string
	for _, d := range dirents {
		if d.IsDir() {
			continue
		}
		if exts[strings.ToLower(filepath.Ext(d.Name()))] {
			files = append(files, filepath.Join(folder, d.Name()))
		}
	}
	return files
}
