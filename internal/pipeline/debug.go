package pipeline

import (
	"image"
	"sort"
	"sync"
)

// StageCapture is one intermediate image of a render.
type StageCapture struct {
	Image image.Image
	Name  string
}

// DebugContext collects intermediate images. A nil *DebugContext ignores
// captures.
type DebugContext struct {
	stages []StageCapture
	mu     sync.Mutex
}

// Capture records img under name.
func (d *DebugContext) Capture(name string, img image.Image) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stages = append(d.stages, StageCapture{Name: name, Image: img})
}

// SortedStages returns the captures ordered by name.
func (d *DebugContext) SortedStages() []StageCapture {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := append([]StageCapture(nil), d.stages...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
