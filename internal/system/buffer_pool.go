package system

import (
	"image"
	"sync"
)

// FramePool recycles RGBA preview buffers by size. The annotation preview is
// recomposed on every pointer move, and consecutive sessions on one video
// produce canvases of the same size.
type FramePool struct {
	mu    sync.Mutex
	sizes map[image.Point]*sync.Pool
}

var previews = &FramePool{sizes: make(map[image.Point]*sync.Pool)}

// GetImage returns a buffer with bounds rect. Its pixels are stale; callers
// overwrite the whole buffer.
func GetImage(rect image.Rectangle) *image.RGBA {
	img := previews.Get(rect.Size())
	img.Rect = img.Rect.Sub(img.Rect.Min).Add(rect.Min)
	return img
}

// PutImage hands a buffer back for reuse. nil is ignored.
func PutImage(img *image.RGBA) {
	if img != nil {
		previews.Put(img)
	}
}

func (p *FramePool) Get(size image.Point) *image.RGBA {
	return p.pool(size).Get().(*image.RGBA)
}

func (p *FramePool) Put(img *image.RGBA) {
	p.pool(img.Rect.Size()).Put(img)
}

func (p *FramePool) pool(size image.Point) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()

	sp, ok := p.sizes[size]
	if !ok {
		sp = &sync.Pool{New: func() any {
			return image.NewRGBA(image.Rectangle{Max: size})
		}}
		p.sizes[size] = sp
	}
	return sp
}
