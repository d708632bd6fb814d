// SPDX-License-Identifier: MIT

//go:build go1.18

package playlist

import (
	"bytes"
	"testing"
)

// FuzzWriteM3U ensures the playlist writer never panics and always produces a
// well-formed document regardless of what the provider puts in its names.
func FuzzWriteM3U(f *testing.F) {
	f.Add("US| ESPN HD", "US Sports", "ESPN.us")
	f.Add("Test & <Special>", "Default", "")
	f.Add("", "", "")
	f.Add("Unicode Тест ᴴᴰ", "Интер", "unicode.ru")

	f.Fuzz(func(t *testing.T, name, category, id string) {
		entries := []Entry{{Name: name, Category: category}}
		ids := map[string]string{name: id}

		var buf bytes.Buffer
		if err := WriteM3U(&buf, entries, ids, nil); err != nil {
			t.Fatalf("WriteM3U failed: %v", err)
		}

		out := buf.Bytes()
		if !bytes.HasPrefix(out, []byte("#EXTM3U")) {
			t.Errorf("output doesn't start with #EXTM3U")
		}
		if !bytes.Contains(out, []byte("#EXTINF")) {
			t.Error("output missing #EXTINF for non-empty playlist")
		}
	})
}
