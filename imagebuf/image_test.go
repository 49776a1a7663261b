package imagebuf

import (
	"reflect"
	"testing"
)

func TestMergeSumsPixelwise(t *testing.T) {
	a := New(2, 2, []string{"color"})
	b := New(2, 2, []string{"color"})
	for i := range a.Buffers["color"] {
		a.Buffers["color"][i] = 1
		b.Buffers["color"][i] = 2
	}

	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge: %s", err)
	}
	for i, v := range a.Buffers["color"] {
		if v != 3 {
			t.Fatalf("pixel %d: expected 3, got %f", i, v)
		}
	}
}

func TestMergeCommutativeAndAssociative(t *testing.T) {
	fresh := func(v float32) *Image {
		img := New(2, 2, []string{"color"})
		for i := range img.Buffers["color"] {
			img.Buffers["color"][i] = v
		}
		return img
	}

	ab := fresh(1)
	if err := ab.Merge(fresh(2)); err != nil {
		t.Fatal(err)
	}
	if err := ab.Merge(fresh(3)); err != nil {
		t.Fatal(err)
	}

	ba := fresh(3)
	if err := ba.Merge(fresh(1)); err != nil {
		t.Fatal(err)
	}
	if err := ba.Merge(fresh(2)); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(ab.Buffers, ba.Buffers) {
		t.Fatalf("merge order changed the result: %v vs %v", ab.Buffers, ba.Buffers)
	}
}

func TestMergeDimensionMismatch(t *testing.T) {
	a := New(2, 2, []string{"color"})
	b := New(3, 3, []string{"color"})
	if err := a.Merge(b); err == nil {
		t.Fatal("expected an error merging mismatched image dimensions")
	}
}

func TestImageEncodeDecodeRoundTrip(t *testing.T) {
	img := New(2, 2, []string{"color", "albedo"})
	for name, buf := range img.Buffers {
		for i := range buf {
			buf[i] = float32(i) + float32(len(name))
		}
	}

	body := EncodeImage(img)
	got, err := DecodeImage(body)
	if err != nil {
		t.Fatalf("DecodeImage: %s", err)
	}

	if got.Width != img.Width || got.Height != img.Height {
		t.Fatalf("dimensions changed across round trip: got %dx%d, want %dx%d", got.Width, got.Height, img.Width, img.Height)
	}
	if !reflect.DeepEqual(got.Buffers, img.Buffers) {
		t.Fatalf("buffers changed across round trip: got %v, want %v", got.Buffers, img.Buffers)
	}
}

func TestDecodeImageTruncated(t *testing.T) {
	img := New(1, 1, []string{"color"})
	body := EncodeImage(img)
	if _, err := DecodeImage(body[:len(body)-4]); err == nil {
		t.Fatal("expected an error decoding a truncated image body")
	}
}
