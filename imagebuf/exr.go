package imagebuf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

const (
	exrMagic   = 0x01312f76
	exrVersion = 2 // version 2, no tiles/deep/multipart flags set
)

// WriteEXR writes img's named buffer as a minimal, valid, single-part
// scanline OpenEXR file: magic, version, header attributes, then an
// offset table followed by one uncompressed chunk per scanline.
//
// This hand-rolls the container rather than reusing a library: the only
// OpenEXR package in reach (github.com/achilleasa/openimageigo) covers
// reading and compositing, not a flat scanline writer, so there
// is nothing in the pack to call for this direction.
func (img *Image) WriteEXR(path string, bufferName string) error {
	buf, ok := img.Buffers[bufferName]
	if !ok {
		return fmt.Errorf("imagebuf: unknown buffer %q", bufferName)
	}

	header := buildEXRHeader(img.Width, img.Height)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("imagebuf: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("imagebuf: %w", err)
	}
	if err := writeEXRScanlines(f, len(header), img.Width, img.Height, buf); err != nil {
		return fmt.Errorf("imagebuf: %w", err)
	}
	return nil
}

func buildEXRHeader(width, height int) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, uint32(exrMagic))
	binary.Write(&b, binary.LittleEndian, uint32(exrVersion))

	writeAttr(&b, "channels", "chlist", encodeChannelList())
	writeAttr(&b, "compression", "compression", []byte{0}) // NO_COMPRESSION
	writeAttr(&b, "dataWindow", "box2i", encodeBox2i(width, height))
	writeAttr(&b, "displayWindow", "box2i", encodeBox2i(width, height))
	writeAttr(&b, "lineOrder", "lineOrder", []byte{0}) // INCREASING_Y
	writeAttr(&b, "pixelAspectRatio", "float", encodeFloat32(1.0))
	writeAttr(&b, "screenWindowCenter", "v2f", encodeV2f(0, 0))
	writeAttr(&b, "screenWindowWidth", "float", encodeFloat32(1.0))
	b.WriteByte(0) // end of header attribute list

	return b.Bytes()
}

func encodeChannelList() []byte {
	var out []byte
	for _, name := range []string{"A", "B", "G", "R"} {
		out = append(out, []byte(name)...)
		out = append(out, 0)
		out = append(out, 1, 0, 0, 0) // pixel type: FLOAT
		out = append(out, 0, 0, 0, 0) // pLinear + reserved
		out = append(out, 1, 0, 0, 0) // xSampling
		out = append(out, 1, 0, 0, 0) // ySampling
	}
	out = append(out, 0) // end of channel list
	return out
}

func encodeBox2i(width, height int) []byte {
	out := make([]byte, 16)
	binary.LittleEndian.PutUint32(out[0:4], 0)
	binary.LittleEndian.PutUint32(out[4:8], 0)
	binary.LittleEndian.PutUint32(out[8:12], uint32(width-1))
	binary.LittleEndian.PutUint32(out[12:16], uint32(height-1))
	return out
}

func encodeFloat32(v float32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, math.Float32bits(v))
	return out
}

func encodeV2f(x, y float32) []byte {
	return append(encodeFloat32(x), encodeFloat32(y)...)
}

func writeAttr(b *bytes.Buffer, name, typ string, value []byte) {
	b.WriteString(name)
	b.WriteByte(0)
	b.WriteString(typ)
	b.WriteByte(0)
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(len(value)))
	b.Write(size[:])
	b.Write(value)
}

// writeEXRScanlines writes the per-scanline offset table followed by one
// chunk per scanline (y, data size, then channels in alphabetical order:
// A, B, G, R), matching the order declared in the channel list.
func writeEXRScanlines(f *os.File, headerSize int, width, height int, rgba []float32) error {
	rowBytes := 4 + 4 + 4*width*4 // y + dataSize + 4 channels * width floats
	offsetTableSize := height * 8

	offsets := make([]uint64, height)
	offset := uint64(headerSize + offsetTableSize)
	for y := 0; y < height; y++ {
		offsets[y] = offset
		offset += uint64(rowBytes)
	}
	if err := binary.Write(f, binary.LittleEndian, offsets); err != nil {
		return err
	}

	channelOrder := [4]int{3, 2, 1, 0} // A, B, G, R indices into an RGBA pixel
	row := make([]float32, width)
	for y := 0; y < height; y++ {
		if err := binary.Write(f, binary.LittleEndian, uint32(y)); err != nil {
			return err
		}
		if err := binary.Write(f, binary.LittleEndian, uint32(4*width*4)); err != nil {
			return err
		}
		for _, ch := range channelOrder {
			for x := 0; x < width; x++ {
				row[x] = rgba[(y*width+x)*4+ch]
			}
			if err := binary.Write(f, binary.LittleEndian, row); err != nil {
				return err
			}
		}
	}
	return nil
}
