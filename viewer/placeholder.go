package viewer

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"sync"
)

var (
	placeholderOnce  sync.Once
	placeholderMain  []byte
	placeholderThumb []byte
)

// placeholders returns the fallback images shown when a photo fails to load.
func placeholders() (main, thumb []byte) {
	placeholderOnce.Do(func() {
		placeholderMain = solidJPEG(800, 600)
		placeholderThumb = solidJPEG(120, 90)
	})
	return placeholderMain, placeholderThumb
}

func solidJPEG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	// encoding into memory cannot fail
	_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 60})
	return buf.Bytes()
}
