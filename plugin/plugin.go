// Package plugin is the closed registry of audio processors and visual
// effects a render job may chain. Built-ins are registered at construction;
// Lua scripts dropped into a plugin folder register under their file stem.
// Plugins are best-effort by contract: a failing plugin is skipped by the
// mixer and the compositor, never fatal to the job.
package plugin

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/modpmv/modpmv/audio"
	"github.com/modpmv/modpmv/video"
)

// Info describes one registered plugin for manifest listings.
type Info struct {
	Name string `json:"name"`
	Kind string `json:"kind"` // "audio", "transformer" or "generator"
}

// Registry maps plugin names to implementations. Not safe for concurrent
// registration; populate it during job setup, read it during rendering.
type Registry struct {
	audio  map[string]audio.Processor
	visual map[string]video.Effect
	log    *log.Logger
}

// NewRegistry builds a registry preloaded with the built-in plugins.
func NewRegistry(logger *log.Logger) *Registry {
	r := &Registry{
		audio:  map[string]audio.Processor{},
		visual: map[string]video.Effect{},
		log:    logger,
	}
	r.RegisterAudio(Gain{Factor: 1.2})
	r.RegisterAudio(FadeOut{Seconds: 2})
	r.RegisterVisual(Pulse{Period: 0.5, Depth: 0.25})
	r.RegisterVisual(Waveform{})
	return r
}

// RegisterAudio adds (or replaces) an audio processor under its own name.
func (r *Registry) RegisterAudio(p audio.Processor) {
	r.audio[strings.ToLower(p.Name())] = p
}

// RegisterVisual adds (or replaces) a visual effect under its own name.
func (r *Registry) RegisterVisual(e video.Effect) {
	r.visual[strings.ToLower(e.Name())] = e
}

// AudioChain resolves a list of plugin names into processors, preserving
// order. Unknown names are logged and dropped, so a typoed config degrades
// instead of failing the job.
func (r *Registry) AudioChain(names []string) []audio.Processor {
	var chain []audio.Processor
	for _, name := range names {
		p, ok := r.audio[strings.ToLower(name)]
		if !ok {
			r.logf("unknown audio plugin %q; skipping", name)
			continue
		}
		chain = append(chain, p)
	}
	return chain
}

// VisualChain resolves a list of plugin names into visual effects, same
// degradation rules as AudioChain.
func (r *Registry) VisualChain(names []string) []video.Effect {
	var chain []video.Effect
	for _, name := range names {
		e, ok := r.visual[strings.ToLower(name)]
		if !ok {
			r.logf("unknown visual plugin %q; skipping", name)
			continue
		}
		chain = append(chain, e)
	}
	return chain
}

// List returns every registered plugin sorted by name, audio first.
func (r *Registry) List() []Info {
	var out []Info
	for name := range r.audio {
		out = append(out, Info{Name: name, Kind: "audio"})
	}
	for name, e := range r.visual {
		kind := "transformer"
		if _, ok := e.(video.Generator); ok {
			kind = "generator"
		}
		out = append(out, Info{Name: name, Kind: kind})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// LoadFolder discovers .lua scripts in dir and registers each under its file
// stem. A script that fails to load is logged and skipped; a missing folder
// is not an error, matching the asset resolver's tolerance.
func (r *Registry) LoadFolder(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read plugin folder %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".lua") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		kind, err := probeScript(path)
		if err != nil {
			r.logf("plugin script %s: %v; skipping", path, err)
			continue
		}
		switch kind {
		case "audio":
			r.RegisterAudio(&luaProcessor{name: name, path: path})
		case "transformer":
			r.RegisterVisual(&luaTint{name: name, path: path})
		default:
			r.logf("plugin script %s defines no plugin entry point; skipping", path)
		}
	}
	return nil
}

func (r *Registry) logf(format string, args ...any) {
	if r.log != nil {
		r.log.Printf(format, args...)
	}
}
