package services

import (
	"errors"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	xunicode "golang.org/x/text/encoding/unicode"
)

var errUndecodableFont = errors.New("composite font without a ToUnicode map")

var cmapUTF16 = xunicode.UTF16(xunicode.BigEndian, xunicode.IgnoreBOM)

// pdfFont is what the content stream walker needs to know about a page
// font: whether its codes are multi-byte glyph ids and how to map them.
type pdfFont struct {
	composite bool
	toUnicode *toUnicodeCMap
}

func (f *pdfFont) decode(raw []byte) (string, error) {
	switch {
	case f == nil:
		return decodePDFText(raw), nil
	case f.toUnicode != nil:
		return f.toUnicode.decode(raw), nil
	case f.composite:
		return "", errUndecodableFont
	}
	return decodePDFText(raw), nil
}

// pageFonts resolves the font resources of a page keyed by resource name.
func pageFonts(pdfCtx *model.Context, pageNr int) map[string]*pdfFont {
	_, _, inh, err := pdfCtx.PageDict(pageNr, false)
	if err != nil || inh == nil || inh.Resources == nil {
		return nil
	}
	obj, found := inh.Resources.Find("Font")
	if !found {
		return nil
	}
	fontRes, err := pdfCtx.DereferenceDict(obj)
	if err != nil || fontRes == nil {
		return nil
	}

	fonts := make(map[string]*pdfFont, len(fontRes))
	for name, ref := range fontRes {
		fd, err := pdfCtx.DereferenceDict(ref)
		if err != nil || fd == nil {
			continue
		}
		f := &pdfFont{}
		if st := fd.Subtype(); st != nil && *st == "Type0" {
			f.composite = true
		}
		if tu, ok := fd.Find("ToUnicode"); ok {
			if data := streamContent(pdfCtx, tu); len(data) > 0 {
				f.toUnicode = parseToUnicodeCMap(data)
			}
		}
		fonts[name] = f
	}
	return fonts
}

func streamContent(pdfCtx *model.Context, o types.Object) []byte {
	obj, err := pdfCtx.Dereference(o)
	if err != nil {
		return nil
	}
	sd, ok := obj.(types.StreamDict)
	if !ok {
		return nil
	}
	if sd.Content == nil {
		if err := sd.Decode(); err != nil {
			return nil
		}
	}
	return sd.Content
}

// toUnicodeCMap holds the bfchar and bfrange mappings of a ToUnicode
// stream. Codes are looked up by their big-endian value and width.
type toUnicodeCMap struct {
	codeLen int
	chars   map[uint32]string
	ranges  []cmapRange
}

type cmapRange struct {
	lo, hi uint32
	base   []byte
	list   []string
}

func (m *toUnicodeCMap) lookup(code uint32) (string, bool) {
	if s, ok := m.chars[code]; ok {
		return s, true
	}
	for _, r := range m.ranges {
		if code < r.lo || code > r.hi {
			continue
		}
		off := code - r.lo
		if r.list != nil {
			if int(off) < len(r.list) {
				return r.list[off], true
			}
			return "", false
		}
		if len(r.base) < 2 {
			return "", false
		}
		dst := append([]byte(nil), r.base...)
		n := len(dst)
		last := uint16(dst[n-2])<<8 | uint16(dst[n-1])
		last += uint16(off)
		dst[n-2], dst[n-1] = byte(last>>8), byte(last)
		return utf16BytesToString(dst), true
	}
	return "", false
}

func (m *toUnicodeCMap) decode(raw []byte) string {
	n := m.codeLen
	if n <= 0 {
		n = 1
	}
	var sb strings.Builder
	for i := 0; i+n <= len(raw); i += n {
		var code uint32
		for _, b := range raw[i : i+n] {
			code = code<<8 | uint32(b)
		}
		if s, ok := m.lookup(code); ok {
			sb.WriteString(s)
		}
	}
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, sb.String())
}

// parseToUnicodeCMap reads the hex operands of bfchar and bfrange blocks.
// The code width comes from codespacerange, or from the first source code.
func parseToUnicodeCMap(data []byte) *toUnicodeCMap {
	m := &toUnicodeCMap{chars: make(map[uint32]string)}
	var operands [][]byte
	var list []string
	inList := false
	block := ""

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case isPDFSpace(c):
			i++
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '<' && i+1 < len(data) && data[i+1] == '<':
			i = skipDictionary(data, i)
		case c == '<':
			s, next := readHexString(data, i)
			i = next
			if inList {
				list = append(list, utf16BytesToString(s))
				continue
			}
			operands = append(operands, s)
			if m.codeLen == 0 && block == "codespacerange" {
				m.codeLen = len(s)
			}
			switch {
			case block == "bfchar" && len(operands) == 2:
				if m.codeLen == 0 {
					m.codeLen = len(operands[0])
				}
				m.chars[codeValue(operands[0])] = utf16BytesToString(operands[1])
				operands = operands[:0]
			case block == "bfrange" && len(operands) == 3:
				if m.codeLen == 0 {
					m.codeLen = len(operands[0])
				}
				m.ranges = append(m.ranges, cmapRange{
					lo:   codeValue(operands[0]),
					hi:   codeValue(operands[1]),
					base: operands[2],
				})
				operands = operands[:0]
			case block == "codespacerange" && len(operands) == 2:
				operands = operands[:0]
			}
		case c == '[':
			inList, list = true, nil
			i++
		case c == ']':
			inList = false
			i++
			if block == "bfrange" && len(operands) == 2 {
				if m.codeLen == 0 {
					m.codeLen = len(operands[0])
				}
				m.ranges = append(m.ranges, cmapRange{
					lo:   codeValue(operands[0]),
					hi:   codeValue(operands[1]),
					list: list,
				})
			}
			operands = operands[:0]
		default:
			j := i
			for j < len(data) && !isPDFSpace(data[j]) && !isPDFDelimiter(data[j]) {
				j++
			}
			if j == i {
				j++
			}
			switch tok := string(data[i:j]); tok {
			case "begincodespacerange":
				block = "codespacerange"
			case "beginbfchar":
				block = "bfchar"
			case "beginbfrange":
				block = "bfrange"
			case "endcodespacerange", "endbfchar", "endbfrange":
				block = ""
			default:
				if _, err := strconv.Atoi(tok); err != nil {
					operands = operands[:0]
				}
			}
			i = j
		}
	}

	if len(m.chars) == 0 && len(m.ranges) == 0 {
		return nil
	}
	return m
}

func codeValue(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

func utf16BytesToString(b []byte) string {
	if len(b) == 1 {
		return string(rune(b[0]))
	}
	out, err := cmapUTF16.NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return string(out)
}
