package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/OpenGG/asdbs/internal/dbs/domain"
)

// wireSnapshot is the on-disk layout of a *.config.json file. Key names and the
// integer version code match files written by earlier releases of the switcher.
type wireSnapshot struct {
	Name                string       `json:"Name"`
	Version             *int         `json:"Version,omitempty"`
	DataSources         []DataSource `json:"DataSources"`
	SupportDirIsLink    *bool        `json:"SupportDirIsLink,omitempty"`
	SupportDirLink      *string      `json:"SupportDirLink,omitempty"`
	RevitConfigFileName *string      `json:"RevitConfigFileName,omitempty"`
}

// Serialize renders s as indented JSON. The output is stable: decoding and
// re-encoding it yields the same bytes.
func Serialize(s *Snapshot) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil snapshot", domain.ErrInvalidSnapshot)
	}
	code := s.Version.Code()
	w := wireSnapshot{
		Name:        s.Name,
		Version:     &code,
		DataSources: s.DataSources,
	}
	if w.DataSources == nil {
		w.DataSources = []DataSource{}
	}

	switch t := s.Target.(type) {
	case SteelTarget:
		isLink := t.SupportDirIsLink
		link := ""
		if isLink {
			link = NormalizeLinkTarget(t.SupportDirLinkTarget)
		}
		w.SupportDirIsLink = &isLink
		w.SupportDirLink = &link
	case RevitTarget:
		file := t.ConfigFileName
		w.RevitConfigFileName = &file
	default:
		return nil, fmt.Errorf("%w: snapshot %q has no target", domain.ErrInvalidSnapshot, s.Name)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(w); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Deserialize parses a *.config.json document. Unknown keys are ignored and a
// missing version falls back to domain.DefaultVersion.
func Deserialize(data []byte) (*Snapshot, error) {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	version := domain.DefaultVersion
	if w.Version != nil {
		v, err := domain.VersionFromCode(*w.Version)
		if err != nil {
			return nil, err
		}
		version = v
	}

	sources := w.DataSources
	if sources == nil {
		sources = []DataSource{}
	}

	if version.IsRevit() {
		file := ""
		if w.RevitConfigFileName != nil {
			file = *w.RevitConfigFileName
		}
		return NewRevit(w.Name, version, sources, file)
	}

	isLink := w.SupportDirIsLink != nil && *w.SupportDirIsLink
	link := ""
	if w.SupportDirLink != nil {
		link = *w.SupportDirLink
	}
	return NewSteel(w.Name, version, sources, isLink, link)
}
