// SPDX-License-Identifier: MIT
package playlist

import (
	"bytes"
	"fmt"
	"io"
)

// WriteM3U emits the playlist in M3U format with tvg-id attributes filled
// from the resolved matches, so a player lines the streams up with the
// repaired guide. Entries without a resolved id keep an empty tvg-id.
// streamURL supplies the tune-in URL per entry; nil emits no URL line.
func WriteM3U(w io.Writer, entries []Entry, ids map[string]string, streamURL func(Entry) string) error {
	buf := &bytes.Buffer{}
	buf.WriteString("#EXTM3U\n")
	for _, e := range entries {
		buf.WriteString(fmt.Sprintf(
			`#EXTINF:-1 tvg-id="%s" group-title="%s",%s`+"\n",
			ids[e.Name], e.Category, e.Name,
		))
		if streamURL != nil {
			buf.WriteString(streamURL(e) + "\n")
		}
	}
	_, err := io.Copy(w, buf)
	return err
}
