package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/section"
)

// codec reads and writes one artifact format.
type codec interface {
	encode(path string, info Info, sections []section.Section) error
	decode(path string) (Info, []section.Section, error)
	decodeInfo(path string) (Info, error)
}

// codecFor picks the artifact format from the file extension.
func codecFor(path string) codec {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return jsonCodec{}
	}
	return sqliteCodec{}
}

// FormatOf names the artifact format chosen for path: "json" or "sqlite".
func FormatOf(path string) string {
	if _, ok := codecFor(path).(jsonCodec); ok {
		return "json"
	}
	return "sqlite"
}

// Save writes idx to target. The artifact is encoded next to target first,
// then the old artifact is removed and the new one renamed into place, so a
// failed encode leaves the previous artifact untouched.
func Save(idx *Index, target string) error {
	info := idx.Info()
	if info.BuiltAt.IsZero() {
		info.BuiltAt = time.Now().UTC()
	}
	sections := idx.Sections()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return artifactWriteError(target, fmt.Errorf("failed to create directory: %w", err))
	}

	tmp := target + ".tmp"
	_ = os.Remove(tmp)

	if err := codecFor(target).encode(tmp, info, sections); err != nil {
		_ = os.Remove(tmp)
		return artifactWriteError(target, err)
	}

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		_ = os.Remove(tmp)
		return artifactWriteError(target, fmt.Errorf("failed to remove old artifact: %w", err))
	}
	if err := os.Rename(tmp, target); err != nil {
		return artifactWriteError(target, fmt.Errorf("failed to move artifact into place: %w", err))
	}

	slog.Debug("search_index_saved",
		slog.String("path", target),
		slog.Int("sections", info.Count),
		slog.String("digest", info.Digest))
	return nil
}

func artifactWriteError(target string, cause error) error {
	return docerrors.New(docerrors.ErrCodeArtifactWrite,
		fmt.Sprintf("failed to write search index %s", target), cause).
		WithDetail("path", target)
}

// Load reads the artifact at source and rebuilds a searchable index.
// Every failure, including a missing file, is reported as a corrupt index.
func Load(source string) (*Index, error) {
	if _, err := os.Stat(source); err != nil {
		return nil, docerrors.CorruptIndex(source, err)
	}

	info, sections, err := codecFor(source).decode(source)
	if err != nil {
		return nil, docerrors.CorruptIndex(source, err)
	}

	b, err := NewBuilder()
	if err != nil {
		return nil, err
	}
	idx, err := b.Create()
	if err != nil {
		return nil, err
	}
	if err := idx.InsertBatch(sections); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to rebuild index: %w", err)
	}
	idx.Stamp(info.Digest, info.BuiltAt)

	slog.Debug("search_index_loaded",
		slog.String("path", source),
		slog.Int("sections", len(sections)))
	return idx, nil
}

// ReadInfo returns the metadata of the artifact at source without building
// an index.
func ReadInfo(source string) (Info, error) {
	if _, err := os.Stat(source); err != nil {
		return Info{}, docerrors.CorruptIndex(source, err)
	}
	info, err := codecFor(source).decodeInfo(source)
	if err != nil {
		return Info{}, docerrors.CorruptIndex(source, err)
	}
	return info, nil
}

// checkHeader validates the schema recorded in an artifact.
func checkHeader(version int, fields []string) error {
	if version != SchemaVersion {
		return fmt.Errorf("unsupported schema version %d (want %d)", version, SchemaVersion)
	}
	if strings.Join(fields, ",") != strings.Join(Fields, ",") {
		return fmt.Errorf("field list %v does not match %v", fields, Fields)
	}
	return nil
}
