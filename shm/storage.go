package shm

import (
	"errors"
	"fmt"
	"image"
	"os"

	"deedles.dev/ximage"
	"deedles.dev/xwl/dix"
	"golang.org/x/image/draw"
	"golang.org/x/sys/unix"
)

// BytesPerPixel is the size of a pixel in every Storage. Depths below
// 32 are stored with an unused alpha byte.
const BytesPerPixel = 4

// Storage is pixmap memory backed by a shared memory file so that it
// can be handed to a compositor without copying.
type Storage struct {
	w, h  int
	depth int
	file  *os.File
	mmap  Mmap
}

func NewStorage(w, h, depth int) (s *Storage, err error) {
	if (w <= 0) || (h <= 0) {
		return nil, fmt.Errorf("invalid storage size %vx%v", w, h)
	}

	s = &Storage{
		w:     w,
		h:     h,
		depth: depth,
	}
	defer func() {
		if err != nil {
			s.Destroy()
		}
	}()

	file, err := Create("xwl-pixmap")
	if err != nil {
		return s, fmt.Errorf("create SHM file: %w", err)
	}
	s.file = file

	err = file.Truncate(int64(s.Len()))
	if err != nil {
		return s, fmt.Errorf("truncate SHM file: %w", err)
	}

	mmap, err := Map(file, s.Len(), unix.PROT_READ|unix.PROT_WRITE)
	if err != nil {
		return s, fmt.Errorf("mmap SHM file: %w", err)
	}
	s.mmap = mmap

	return s, nil
}

// File returns the file that backs the storage. It remains owned by
// s.
func (s *Storage) File() *os.File {
	return s.file
}

func (s *Storage) Depth() int {
	return s.depth
}

func (s *Storage) Stride() int {
	return s.w * BytesPerPixel
}

func (s *Storage) Len() int {
	return s.Stride() * s.h
}

func (s *Storage) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.w, s.h)
}

func (s *Storage) Image() draw.Image {
	return &ximage.FormatImage{
		Format: ximage.ARGB8888,
		Rect:   s.Bounds(),
		Pix:    s.mmap,
	}
}

func (s *Storage) Destroy() error {
	var errs []error
	if s.mmap != nil {
		errs = append(errs, s.mmap.Unmap())
		s.mmap = nil
	}
	if s.file != nil {
		errs = append(errs, s.file.Close())
		s.file = nil
	}
	return errors.Join(errs...)
}

// Allocator allocates pixmap storage in shared memory.
type Allocator struct{}

func (Allocator) Allocate(w, h, depth int) (dix.Storage, error) {
	return NewStorage(w, h, depth)
}
