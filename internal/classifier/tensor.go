package classifier

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	InputSize = 224
	Channels  = 3
)

var tensorPool = sync.Pool{
	New: func() any {
		buf := make([]float32, InputSize*InputSize*Channels)
		return &buf
	},
}

// Tensor is a normalized NHWC image batch of size one. Obtain it from Preprocess and
// release it once inference has finished.
type Tensor struct {
	Shape []int64
	Data  []float32

	buf      *[]float32
	released bool
}

// Preprocess decodes an image, resizes it to 224x224 with nearest-neighbour sampling and
// scales RGB values to [0,1].
func Preprocess(imageBytes []byte) (*Tensor, error) {
	src, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return FromImage(src), nil
}

// FromImage builds a tensor from an already decoded image.
func FromImage(src image.Image) *Tensor {
	dst := image.NewRGBA(image.Rect(0, 0, InputSize, InputSize))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	buf := tensorPool.Get().(*[]float32)
	data := *buf
	for p, i := 0, 0; p < len(dst.Pix); p += 4 {
		data[i] = float32(dst.Pix[p]) / 255
		data[i+1] = float32(dst.Pix[p+1]) / 255
		data[i+2] = float32(dst.Pix[p+2]) / 255
		i += Channels
	}

	return &Tensor{
		Shape: []int64{1, InputSize, InputSize, Channels},
		Data:  data,
		buf:   buf,
	}
}

// Released reports whether Release has been called.
func (t *Tensor) Released() bool {
	return t == nil || t.released
}

// Release returns the tensor's buffer to the pool. It is safe to call more than once.
func (t *Tensor) Release() {
	if t == nil || t.released {
		return
	}
	t.released = true
	t.Data = nil
	if t.buf != nil {
		tensorPool.Put(t.buf)
		t.buf = nil
	}
}
