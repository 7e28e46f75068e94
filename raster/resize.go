package raster

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// Resize scales src to width x height using a Catmull-Rom kernel.
// This is the quality setting used for final output images.
func Resize(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Rect, src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// ResizeFast scales src to width x height with an approximate bi-linear
// kernel. Used for the working-size upscale of shape images, where exact
// edge quality does not matter (only alpha coverage is inspected).
func ResizeFast(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Rect, src, src.Bounds(), xdraw.Src, nil)
	return dst
}
