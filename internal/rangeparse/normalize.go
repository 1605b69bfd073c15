// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rangeparse

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// substitution replaces every occurrence of from with to.
type substitution struct {
	from string
	to   string
}

// glyphTable is applied in order, one full pass per entry. Superscript and
// subscript marks come first so that separators they expose are caught by
// the later passes.
var glyphTable = []substitution{
	{"³", ""},
	{"²", ""},
	{"⁻", "-"},
	{"⁺", "+"},
	{"₂", "2"},
	{"₃", "3"},
	{",", ""},
	{"–", "-"},
	{" to ", "-"},
	{"−", "-"},
	{"—", "-"},
	{"≤", "<"},
	{"≥", ">"},
}

// normalized is a normalized string together with, for every byte, the
// byte offset in the source it came from. offsets has one extra trailing
// entry holding the source length.
type normalized struct {
	text    string
	offsets []int
}

// Normalize folds typographic glyphs to ASCII, removes thousands commas,
// and rewrites dash-like separators and " to " as "-". The result is
// trimmed. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	return normalize(s).text
}

func normalize(s string) normalized {
	n := identity(s)
	n = n.foldWidth()
	for _, sub := range glyphTable {
		n = n.replace(sub.from, sub.to)
	}
	return n.trim()
}

func identity(s string) normalized {
	offs := make([]int, len(s)+1)
	for i := range offs {
		offs[i] = i
	}
	return normalized{text: s, offsets: offs}
}

// foldWidth maps full-width forms (digits, signs, the ideographic comma)
// to their ASCII counterparts.
func (n normalized) foldWidth() normalized {
	var (
		b    strings.Builder
		offs = make([]int, 0, len(n.offsets))
	)
	for i := 0; i < len(n.text); {
		r, size := utf8.DecodeRuneInString(n.text[i:])
		if p := width.LookupRune(r); p.Kind() == width.EastAsianFullwidth {
			if narrow := p.Narrow(); narrow != 0 {
				r = narrow
			}
		}
		before := b.Len()
		if r == utf8.RuneError && size == 1 {
			b.WriteByte(n.text[i])
		} else {
			b.WriteRune(r)
		}
		for j := before; j < b.Len(); j++ {
			offs = append(offs, n.offsets[i])
		}
		i += size
	}
	offs = append(offs, n.offsets[len(n.text)])
	return normalized{text: b.String(), offsets: offs}
}

func (n normalized) replace(from, to string) normalized {
	if !strings.Contains(n.text, from) {
		return n
	}
	var (
		b    strings.Builder
		offs = make([]int, 0, len(n.offsets))
	)
	for i := 0; i < len(n.text); {
		if strings.HasPrefix(n.text[i:], from) {
			b.WriteString(to)
			for j := 0; j < len(to); j++ {
				offs = append(offs, n.offsets[i])
			}
			i += len(from)
			continue
		}
		b.WriteByte(n.text[i])
		offs = append(offs, n.offsets[i])
		i++
	}
	offs = append(offs, n.offsets[len(n.text)])
	return normalized{text: b.String(), offsets: offs}
}

func (n normalized) trim() normalized {
	start := len(n.text) - len(strings.TrimLeftFunc(n.text, unicode.IsSpace))
	end := len(strings.TrimRightFunc(n.text, unicode.IsSpace))
	if start >= end {
		return normalized{offsets: []int{n.offsets[len(n.text)]}}
	}
	return normalized{
		text:    n.text[start:end],
		offsets: n.offsets[start : end+1],
	}
}

// sourceOffset maps a byte position in the normalized text back to the
// source string.
func (n normalized) sourceOffset(pos int) int {
	return n.offsets[pos]
}
