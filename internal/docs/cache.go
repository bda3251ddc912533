package docs

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jcdickinson/xmldocmd/internal/config"
	"github.com/klauspost/compress/zstd"
)

const compressedExt = ".zst"

// CachePath returns where the transformed graph named name is cached.
func CachePath(name string) string {
	return filepath.Join(config.GraphCacheDir(), name+".json.zst")
}

// SaveGraph encodes g and writes it to path, compressing with zstd when the
// path ends in ".zst".
func SaveGraph(g *Graph, path string) error {
	data, err := Encode(g)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating graph dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating graph file: %w", err)
	}
	defer f.Close()

	if !strings.HasSuffix(path, compressedExt) {
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("writing graph file: %w", err)
		}
		return nil
	}

	w, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("writing compressed data: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing zstd writer: %w", err)
	}
	return nil
}

// LoadGraph reads a graph dump from path. Compressed dumps are detected by
// content, so the extension does not matter.
func LoadGraph(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening graph file: %w", err)
	}
	if isZstd(data) {
		r, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("creating zstd reader: %w", err)
		}
		defer r.Close()
		if data, err = io.ReadAll(r); err != nil {
			return nil, fmt.Errorf("decompressing graph: %w", err)
		}
	}
	return Parse(data)
}

// HasCachedGraph checks whether a cached graph exists on disk.
func HasCachedGraph(name string) bool {
	_, err := os.Stat(CachePath(name))
	return err == nil
}

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

func isZstd(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}
