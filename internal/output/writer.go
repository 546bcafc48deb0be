// Package output writes the generated JSON files and publishes them.
package output

import (
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/zeebo/xxh3"

	"github.com/pable/atlas-metrics/internal/metrics"
)

// ArchiveExt is appended to the name of a compressed sibling file.
const ArchiveExt = ".zst"

// ManifestName is the file under Dir holding the xxh3 hash of every
// written document, keyed by name.
const ManifestName = ".checksums.json"

// File is the outcome of one WriteJSON call.
type File struct {
	Name    string
	Changed bool
}

// Writer writes JSON documents into one directory. A document whose hash
// matches the one recorded for the file on disk is left untouched, so the
// modification time only moves when the content does. Hashes persist in
// ManifestName across runs and are saved by Close.
type Writer struct {
	Dir      string
	Compress bool

	enc    *zstd.Encoder
	sums   map[string]uint64
	logger zerolog.Logger
}

// NewWriter returns a Writer for dir. When compress is set every written
// file also gets a zstd-compressed sibling.
func NewWriter(dir string, compress bool) (*Writer, error) {
	w := &Writer{
		Dir:      dir,
		Compress: compress,
		logger:   log.With().Str("module", "output").Str("dir", dir).Logger(),
	}
	w.sums = w.loadManifest()
	if compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			return nil, errors.Wrap(err, "failed to create zstd encoder")
		}
		w.enc = enc
	}
	return w, nil
}

// Encode renders v as indented JSON, or compact when compact is set.
func Encode(v any, compact bool) ([]byte, error) {
	if compact {
		return json.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

// WriteJSON encodes v and writes it to name under Dir. It reports whether
// the file content changed.
func (w *Writer) WriteJSON(name string, v any, compact bool) (File, error) {
	b, err := Encode(v, compact)
	if err != nil {
		return File{Name: name}, errors.Wrapf(err, "failed to encode %s", name)
	}
	return w.WriteBytes(name, b)
}

// WriteBytes writes already-encoded content.
func (w *Writer) WriteBytes(name string, b []byte) (File, error) {
	f := File{Name: name}
	path := filepath.Join(w.Dir, name)

	sum := xxh3.Hash(b)
	if w.unchanged(name, path, sum, len(b)) {
		metrics.FilesWritten.WithLabelValues("unchanged").Inc()
		w.logger.Debug().Str("file", name).Msg("content unchanged, skipping")
		return f, nil
	}
	if err := writeAtomic(path, b); err != nil {
		return f, errors.Wrapf(err, "failed to write %s", name)
	}
	if w.enc != nil {
		if err := writeAtomic(path+ArchiveExt, w.enc.EncodeAll(b, nil)); err != nil {
			return f, errors.Wrapf(err, "failed to write %s%s", name, ArchiveExt)
		}
	}
	w.sums[name] = sum
	f.Changed = true
	metrics.FilesWritten.WithLabelValues("written").Inc()
	w.logger.Info().Str("file", name).Int("bytes", len(b)).Msg("wrote file")
	return f, nil
}

// Close saves the hash manifest and releases the compression encoder.
func (w *Writer) Close() error {
	err := w.saveManifest()
	if w.enc != nil {
		if cerr := w.enc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// unchanged reports whether name was last written with the same hash and
// its file, plus the archive when compressing, is still on disk at that size.
func (w *Writer) unchanged(name, path string, sum uint64, size int) bool {
	prev, ok := w.sums[name]
	if !ok || prev != sum {
		return false
	}
	st, err := os.Stat(path)
	if err != nil || st.Size() != int64(size) {
		return false
	}
	if w.enc != nil {
		if _, err := os.Stat(path + ArchiveExt); err != nil {
			return false
		}
	}
	return true
}

func (w *Writer) loadManifest() map[string]uint64 {
	sums := map[string]uint64{}
	b, err := os.ReadFile(filepath.Join(w.Dir, ManifestName))
	if err != nil {
		return sums
	}
	if err := json.Unmarshal(b, &sums); err != nil {
		w.logger.Warn().Err(err).Msg("unreadable checksum manifest, rewriting every file")
		return map[string]uint64{}
	}
	return sums
}

func (w *Writer) saveManifest() error {
	if len(w.sums) == 0 {
		return nil
	}
	b, err := json.Marshal(w.sums)
	if err != nil {
		return errors.Wrap(err, "failed to encode checksum manifest")
	}
	return errors.Wrap(writeAtomic(filepath.Join(w.Dir, ManifestName), b), "failed to write checksum manifest")
}

// writeAtomic writes through a temp file in the same directory and renames
// it into place.
func writeAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
