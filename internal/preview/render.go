package preview

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/pagetailor/pagetailor/internal/model"
)

// Render returns a thumbnail of img for the given page at the requested
// size, consulting the cache first. The aspect ratio of the source is
// preserved; the thumbnail fits within width x height.
//
// ApproxBiLinear is used for scaling: thumbnails are previews, and it is
// several times faster than CatmullRom at sizes where the difference is
// invisible.
func Render(cache *Cache, page model.PageID, img image.Image, width, height int) image.Image {
	key := Key{Page: page, Width: width, Height: height}
	if thumb := cache.Get(key); thumb != nil {
		return thumb
	}

	thumb := scale(img, width, height)
	cache.Put(key, thumb)
	return thumb
}

// scale fits img into a width x height box, preserving aspect ratio.
func scale(img image.Image, width, height int) image.Image {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}

	// Fit within the box.
	dstW := width
	dstH := srcH * width / srcW
	if dstH > height {
		dstH = height
		dstW = srcW * height / srcH
	}
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}
