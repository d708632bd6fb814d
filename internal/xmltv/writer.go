// SPDX-License-Identifier: MIT

package xmltv

import (
	"encoding/xml"
	"fmt"
	"io"
)

// Writer emits an XMLTV document record by record so callers can stream
// arbitrarily large programme sets without buffering the document.
type Writer struct {
	enc    *xml.Encoder
	closed bool
}

// NewWriter writes the XML declaration and the opening <tv> element.
func NewWriter(w io.Writer, generator string) (*Writer, error) {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return nil, fmt.Errorf("write xml header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	start := xml.StartElement{Name: xml.Name{Local: "tv"}}
	if generator != "" {
		start.Attr = []xml.Attr{{
			Name:  xml.Name{Local: "generator-info-name"},
			Value: generator,
		}}
	}
	if err := enc.EncodeToken(start); err != nil {
		return nil, fmt.Errorf("open tv element: %w", err)
	}
	return &Writer{enc: enc}, nil
}

// Channel emits one channel declaration.
func (w *Writer) Channel(ch Channel) error {
	return w.enc.Encode(ch)
}

// Programme emits one programme record.
func (w *Writer) Programme(p Programme) error {
	return w.enc.Encode(p)
}

// Close terminates the <tv> element and flushes the encoder. It does not
// close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "tv"}}); err != nil {
		return fmt.Errorf("close tv element: %w", err)
	}
	return w.enc.Close()
}
