// Package dbconfig reads and writes DatabaseConfiguration.xml, the file in
// which Advance Steel and Revit Steel Connections look up their databases.
package dbconfig

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/OpenGG/asdbs/internal/dbs/snapshot"
)

// Header is the declaration Advance Steel expects. The file must not start with a BOM.
const Header = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

type document struct {
	XMLName     xml.Name            `xml:"AdvanceSteel"`
	DataSources []dataSourceElement `xml:"DataSource"`
}

type dataSourceElement struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:"Value,attr"`
}

// Decode parses the DataSource elements of an AdvanceSteel document in document order.
// UTF-8 and UTF-16 byte order marks are honoured; other declared encodings are
// translated through the IANA registry.
func Decode(r io.Reader) ([]snapshot.DataSource, error) {
	src := transform.NewReader(r, unicode.BOMOverride(encoding.Nop.NewDecoder()))
	dec := xml.NewDecoder(src)
	dec.CharsetReader = charsetReader

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse database configuration: %w", err)
	}

	sources := make([]snapshot.DataSource, 0, len(doc.DataSources))
	for i, el := range doc.DataSources {
		if el.Name == "" {
			return nil, fmt.Errorf("failed to parse database configuration: DataSource %d has no Name", i)
		}
		sources = append(sources, snapshot.DataSource{Name: el.Name, Value: el.Value})
	}
	return sources, nil
}

// Encode writes sources as an AdvanceSteel document encoded as UTF-8 without BOM.
func Encode(w io.Writer, sources []snapshot.DataSource) error {
	doc := document{DataSources: make([]dataSourceElement, 0, len(sources))}
	for _, ds := range sources {
		doc.DataSources = append(doc.DataSources, dataSourceElement{Name: ds.Name, Value: ds.Value})
	}

	if _, err := io.WriteString(w, Header); err != nil {
		return fmt.Errorf("failed to write xml header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode database configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush database configuration: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("failed to write xml trailer: %w", err)
	}
	return nil
}

// Marshal is Encode into a byte slice.
func Marshal(sources []snapshot.DataSource) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, sources); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	// BOMOverride has already converted UTF-16 input to UTF-8.
	if strings.HasPrefix(strings.ToLower(label), "utf-16") {
		return input, nil
	}
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", label)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}
