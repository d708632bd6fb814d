// SPDX-License-Identifier: MIT

// Package xmltv provides typed XMLTV records and streaming decode/encode.
//
// Reference EPG sources are tens of megabytes of markup, so both directions
// stream record by record; the whole document is never held in memory.
package xmltv

import (
	"encoding/xml"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Channel declares one EPG channel with its canonical id and display names.
type Channel struct {
	XMLName      xml.Name `xml:"channel"`
	ID           string   `xml:"id,attr"`
	DisplayNames []string `xml:"display-name"`
	Icon         *Icon    `xml:"icon,omitempty"`
}

// Icon is an optional channel logo reference.
type Icon struct {
	Src string `xml:"src,attr"`
}

// Programme is one schedule record keyed to a channel id.
type Programme struct {
	XMLName  xml.Name `xml:"programme"`
	Start    string   `xml:"start,attr"`
	Stop     string   `xml:"stop,attr,omitempty"`
	Channel  string   `xml:"channel,attr"`
	Title    Title    `xml:"title"`
	SubTitle string   `xml:"sub-title,omitempty"`
	Desc     string   `xml:"desc,omitempty"`
	Category []string `xml:"category,omitempty"`
}

// Title carries the programme title with an optional language code.
type Title struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

// Scan streams an XMLTV document, invoking onChannel and onProgramme per
// record. Either callback may be nil to skip that record type. Records that
// fail validation (missing id, missing channel attribute) are skipped;
// a callback returning an error aborts the scan.
func Scan(r io.Reader, onChannel func(Channel) error, onProgramme func(Programme) error) error {
	dec := xml.NewDecoder(r)
	// Disable entity expansion; sources are untrusted remote documents.
	dec.Entity = map[string]string{}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "channel":
			if onChannel == nil {
				if err := dec.Skip(); err != nil {
					return err
				}
				continue
			}
			var ch Channel
			if err := dec.DecodeElement(&ch, &se); err != nil {
				return err
			}
			if ch.ID == "" {
				continue // malformed record, keep streaming
			}
			if err := onChannel(ch); err != nil {
				return err
			}
		case "programme":
			if onProgramme == nil {
				if err := dec.Skip(); err != nil {
					return err
				}
				continue
			}
			var p Programme
			if err := dec.DecodeElement(&p, &se); err != nil {
				return err
			}
			if p.Channel == "" {
				continue
			}
			if err := onProgramme(p); err != nil {
				return err
			}
		}
	}
}

// Open opens an XMLTV file for streaming, transparently decompressing
// gzip-suffixed files.
func Open(path string) (io.ReadCloser, error) {
	path = filepath.Clean(path)
	f, err := os.Open(path) // #nosec G304 -- path comes from controlled configuration
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &gzipReadCloser{zr: zr, f: f}, nil
}

type gzipReadCloser struct {
	zr *gzip.Reader
	f  *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.zr.Read(p) }

func (g *gzipReadCloser) Close() error {
	zerr := g.zr.Close()
	ferr := g.f.Close()
	if zerr != nil {
		return zerr
	}
	return ferr
}
