package deck

import (
	"bufio"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const ydkePrefix = "ydke://"

// EncodeYDK renders a deck in the .ydk text format, one line per copy.
func EncodeYDK(main, extra []Entry) string {
	var b strings.Builder
	b.WriteString("#created by ygodeck\n#main\n")
	writeCopies(&b, main)
	b.WriteString("#extra\n")
	writeCopies(&b, extra)
	b.WriteString("!side\n")
	return b.String()
}

func writeCopies(b *strings.Builder, entries []Entry) {
	for _, e := range entries {
		for i := 0; i < e.Count; i++ {
			b.WriteString(strconv.Itoa(e.ID))
			b.WriteByte('\n')
		}
	}
}

// ParseYDK reads a .ydk file. Repeated ids collapse into counts in first-seen
// order; the side deck is skipped.
func ParseYDK(r io.Reader) (main, extra []Entry, err error) {
	var (
		section  *[]Entry
		mainIdx  = map[int]int{}
		extraIdx = map[int]int{}
		index    map[int]int
	)

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		switch {
		case text == "":
			continue
		case text == "#main":
			section, index = &main, mainIdx
			continue
		case text == "#extra":
			section, index = &extra, extraIdx
			continue
		case text == "!side":
			section, index = nil, nil
			continue
		case strings.HasPrefix(text, "#"):
			continue
		}
		if section == nil {
			continue
		}
		id, convErr := strconv.Atoi(text)
		if convErr != nil {
			return nil, nil, fmt.Errorf("ydk line %d: invalid card id %q", line, text)
		}
		if pos, ok := index[id]; ok {
			(*section)[pos].Count++
			continue
		}
		index[id] = len(*section)
		*section = append(*section, Entry{ID: id, Count: 1})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read ydk: %w", err)
	}
	return main, extra, nil
}

// EncodeYDKE renders a ydke:// URI: base64 little-endian uint32 ids per
// section, main then extra then an empty side.
func EncodeYDKE(main, extra []Entry) string {
	return ydkePrefix + encodeIDs(main) + "!" + encodeIDs(extra) + "!!"
}

func encodeIDs(entries []Entry) string {
	var buf []byte
	for _, e := range entries {
		for i := 0; i < e.Count; i++ {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(e.ID))
		}
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeYDKE is the inverse of EncodeYDKE.
func DecodeYDKE(uri string) (main, extra []Entry, err error) {
	if !strings.HasPrefix(uri, ydkePrefix) {
		return nil, nil, fmt.Errorf("ydke: missing %s prefix", ydkePrefix)
	}
	parts := strings.Split(strings.TrimPrefix(uri, ydkePrefix), "!")
	if len(parts) < 3 {
		return nil, nil, fmt.Errorf("ydke: expected 3 sections, got %d", len(parts))
	}
	if main, err = decodeIDs(parts[0]); err != nil {
		return nil, nil, fmt.Errorf("ydke main: %w", err)
	}
	if extra, err = decodeIDs(parts[1]); err != nil {
		return nil, nil, fmt.Errorf("ydke extra: %w", err)
	}
	return main, extra, nil
}

func decodeIDs(s string) ([]Entry, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("payload length %d is not a multiple of 4", len(raw))
	}
	var out []Entry
	idx := map[int]int{}
	for i := 0; i < len(raw); i += 4 {
		id := int(binary.LittleEndian.Uint32(raw[i:]))
		if pos, ok := idx[id]; ok {
			out[pos].Count++
			continue
		}
		idx[id] = len(out)
		out = append(out, Entry{ID: id, Count: 1})
	}
	return out, nil
}
