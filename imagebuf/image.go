// Package imagebuf implements the coordinator's final-image merge and
// the minimal EXR/CSV writers it calls once rendering completes.
package imagebuf

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"fresnel/log"
)

var logger = log.New("imagebuf")

// Image holds one named float32 RGBA buffer per name passed to New (the
// coordinator passes Config.Image.Buffers), each sized Width*Height*4.
type Image struct {
	Width, Height int
	Buffers       map[string][]float32
}

// New allocates an Image with a zeroed buffer for each name in buffers.
func New(width, height int, buffers []string) *Image {
	img := &Image{
		Width:   width,
		Height:  height,
		Buffers: make(map[string][]float32, len(buffers)),
	}
	for _, name := range buffers {
		img.Buffers[name] = make([]float32, width*height*4)
	}
	return img
}

// Merge sums other's buffers into img, pixel-wise, for every buffer name
// present in both images. Merge is commutative and associative, so
// repeated per-worker merges into the same final image are order
// independent.
func (img *Image) Merge(other *Image) error {
	if other.Width != img.Width || other.Height != img.Height {
		return fmt.Errorf("imagebuf: cannot merge %dx%d image into %dx%d", other.Width, other.Height, img.Width, img.Height)
	}
	for name, src := range other.Buffers {
		dst, ok := img.Buffers[name]
		if !ok {
			logger.Warningf("merge: unknown buffer %q, skipping", name)
			continue
		}
		for i, v := range src {
			dst[i] += v
		}
	}
	return nil
}

// EncodeImage serialises img for SYNC_IMAGE: width, height, buffer count,
// then per buffer (in sorted name order, for determinism) a length-
// prefixed name followed by its float32 data.
func EncodeImage(img *Image) []byte {
	names := make([]string, 0, len(img.Buffers))
	for name := range img.Buffers {
		names = append(names, name)
	}
	sort.Strings(names)

	size := 4 + 4 + 4
	for _, name := range names {
		size += 4 + len(name) + len(img.Buffers[name])*4
	}

	buf := make([]byte, size)
	off := 0
	binary.LittleEndian.PutUint32(buf[off:], uint32(img.Width))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(img.Height))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(names)))
	off += 4
	for _, name := range names {
		binary.LittleEndian.PutUint32(buf[off:], uint32(len(name)))
		off += 4
		off += copy(buf[off:], name)
		for _, v := range img.Buffers[name] {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
			off += 4
		}
	}
	return buf
}

// DecodeImage parses a SYNC_IMAGE body produced by a worker: a full-canvas
// image with every pixel outside its assigned tile left at zero, so that
// repeated Merge calls across all workers sum to the completed render
// (§4.7) without the coordinator needing to know tile boundaries here.
func DecodeImage(body []byte) (*Image, error) {
	if len(body) < 12 {
		return nil, fmt.Errorf("imagebuf: image body too short: %d bytes", len(body))
	}
	off := 0
	width := int(binary.LittleEndian.Uint32(body[off:]))
	off += 4
	height := int(binary.LittleEndian.Uint32(body[off:]))
	off += 4
	bufferCount := int(binary.LittleEndian.Uint32(body[off:]))
	off += 4

	img := &Image{Width: width, Height: height, Buffers: make(map[string][]float32, bufferCount)}
	for i := 0; i < bufferCount; i++ {
		if len(body) < off+4 {
			return nil, fmt.Errorf("imagebuf: image body truncated reading buffer %d's name length", i)
		}
		nameLen := int(binary.LittleEndian.Uint32(body[off:]))
		off += 4
		if len(body) < off+nameLen {
			return nil, fmt.Errorf("imagebuf: image body truncated reading buffer %d's name", i)
		}
		name := string(body[off : off+nameLen])
		off += nameLen

		n := width * height * 4
		if len(body) < off+n*4 {
			return nil, fmt.Errorf("imagebuf: image body truncated reading buffer %q's data", name)
		}
		data := make([]float32, n)
		for j := 0; j < n; j++ {
			data[j] = math.Float32frombits(binary.LittleEndian.Uint32(body[off:]))
			off += 4
		}
		img.Buffers[name] = data
	}
	return img, nil
}
