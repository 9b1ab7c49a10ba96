// Package directive parses and patches the identity directives of the shared
// configuration header.
//
// A header is a sequence of lines. Lines of the form
//
//	#define KEY "value"
//
// whose KEY is one of the recognized identity keys are indexed so their value
// can be replaced. Every other line is kept verbatim, including its line
// ending, so a patched document differs from its source only in the
// recognized directive lines.
package directive

import (
	"bytes"
	"regexp"
	"strings"
)

// Recognized directive keys.
const (
	KeyNodeID          = "NODE_ID"
	KeyName            = "NAME"
	KeyFirmwareVersion = "FIRMWARE_VERSION"
)

// Keys lists the recognized keys in the order missing directives are prepended.
var Keys = []string{KeyNodeID, KeyName, KeyFirmwareVersion}

// directivePattern captures: indent+#define+space, key, separator, value, rest of line.
var directivePattern = regexp.MustCompile(`^(\s*#define\s+)(NODE_ID|NAME|FIRMWARE_VERSION)(\s+)"((?:[^"\\]|\\.)*)"(.*)$`)

var escaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)

// Line is one line of the header without its line ending.
type Line struct {
	Text string
	EOL  string // "\n", "\r\n" or "" for a final unterminated line

	key    string // recognized key, empty for pass-through lines
	prefix string
	sep    string
	value  string
	rest   string
}

// Key returns the recognized directive key on this line, or "".
func (l Line) Key() string {
	return l.key
}

// Document is a parsed header. Pass-through lines are held in order and are
// never modified.
type Document struct {
	lines []Line
	index map[string][]int // key -> line positions
	added map[string]string
	eol   string
}

// Parse splits content into lines and indexes the recognized directives.
func Parse(content []byte) *Document {
	doc := &Document{
		index: make(map[string][]int),
		added: make(map[string]string),
		eol:   "\n",
	}

	rest := content
	for len(rest) > 0 {
		var text, eol string
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			text = string(rest[:i])
			eol = "\n"
			rest = rest[i+1:]
			if strings.HasSuffix(text, "\r") {
				text = text[:len(text)-1]
				eol = "\r\n"
			}
		} else {
			text = string(rest)
			rest = nil
		}

		line := Line{Text: text, EOL: eol}
		if m := directivePattern.FindStringSubmatch(text); m != nil {
			line.prefix, line.key, line.sep, line.value, line.rest = m[1], m[2], m[3], m[4], m[5]
			doc.index[line.key] = append(doc.index[line.key], len(doc.lines))
		}
		doc.lines = append(doc.lines, line)
	}

	// New directives follow the document's own line ending convention.
	if len(doc.lines) > 0 && doc.lines[0].EOL == "\r\n" {
		doc.eol = "\r\n"
	}

	return doc
}

// Lines returns the parsed lines in original order.
func (d *Document) Lines() []Line {
	return d.lines
}

// Value returns the current raw (escaped) value for key and whether it is set.
func (d *Document) Value(key string) (string, bool) {
	if v, ok := d.added[key]; ok {
		return v, true
	}
	positions := d.index[key]
	if len(positions) == 0 {
		return "", false
	}
	return d.lines[positions[0]].value, true
}

// Has reports whether the source content defines key.
func (d *Document) Has(key string) bool {
	return len(d.index[key]) > 0
}

// Set replaces the value of every line defining key. If no line defines it,
// a new directive is prepended when the document is serialized.
func (d *Document) Set(key, value string) {
	escaped := escaper.Replace(value)
	positions := d.index[key]
	if len(positions) == 0 {
		d.added[key] = escaped
		return
	}
	for _, pos := range positions {
		d.lines[pos].value = escaped
	}
}

// Bytes serializes the document.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	for _, key := range Keys {
		if v, ok := d.added[key]; ok {
			buf.WriteString("#define " + key + ` "` + v + `"` + d.eol)
		}
	}
	for _, l := range d.lines {
		buf.WriteString(l.render())
		buf.WriteString(l.EOL)
	}
	return buf.Bytes()
}

func (l Line) render() string {
	if l.key == "" {
		return l.Text
	}
	return l.prefix + l.key + l.sep + `"` + l.value + `"` + l.rest
}
