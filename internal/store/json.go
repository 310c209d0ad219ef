package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Aman-CERP/docsearch/internal/section"
)

// jsonCodec stores the index as one JSON document, for sites that serve the
// artifact to the browser.
type jsonCodec struct{}

var _ codec = jsonCodec{}

type jsonArtifact struct {
	Schema   int               `json:"schema"`
	Fields   []string          `json:"fields"`
	BuiltAt  time.Time         `json:"built_at"`
	Digest   string            `json:"digest"`
	Count    int               `json:"count"`
	Sections []section.Section `json:"sections"`
}

func (jsonCodec) encode(path string, info Info, sections []section.Section) error {
	if sections == nil {
		sections = []section.Section{}
	}
	data, err := json.Marshal(jsonArtifact{
		Schema:   SchemaVersion,
		Fields:   Fields,
		BuiltAt:  info.BuiltAt.UTC(),
		Digest:   info.Digest,
		Count:    len(sections),
		Sections: sections,
	})
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

func (jsonCodec) read(path string) (jsonArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return jsonArtifact{}, fmt.Errorf("failed to read index: %w", err)
	}

	var a jsonArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return jsonArtifact{}, fmt.Errorf("failed to decode index: %w", err)
	}
	if err := checkHeader(a.Schema, a.Fields); err != nil {
		return jsonArtifact{}, err
	}
	if len(a.Sections) != a.Count {
		return jsonArtifact{}, fmt.Errorf("artifact holds %d sections, header says %d", len(a.Sections), a.Count)
	}
	return a, nil
}

func (c jsonCodec) decodeInfo(path string) (Info, error) {
	a, err := c.read(path)
	if err != nil {
		return Info{}, err
	}
	return Info{SchemaVersion: a.Schema, BuiltAt: a.BuiltAt, Digest: a.Digest, Count: a.Count}, nil
}

func (c jsonCodec) decode(path string) (Info, []section.Section, error) {
	a, err := c.read(path)
	if err != nil {
		return Info{}, nil, err
	}
	info := Info{SchemaVersion: a.Schema, BuiltAt: a.BuiltAt, Digest: a.Digest, Count: a.Count}
	return info, a.Sections, nil
}
