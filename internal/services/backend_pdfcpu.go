package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"

	"alfredoptarigan/cv-parser/internal/models"
)

// PdfcpuBackend reads page content streams directly and decodes the text
// showing operators. It keeps line structure where the stream moves the
// text position vertically.
type PdfcpuBackend struct{}

func NewPdfcpuBackend() *PdfcpuBackend {
	return &PdfcpuBackend{}
}

func (b *PdfcpuBackend) Name() models.BackendID {
	return models.BackendPdfcpu
}

func (b *PdfcpuBackend) Attempt(ctx context.Context, data []byte) (*models.ExtractionResult, error) {
	pdfCtx, err := readPDFContext(data)
	if err != nil {
		return nil, err
	}

	var pages []string
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := pageContentText(pdfCtx, pageNr)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNr, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no text content found in PDF")
	}

	return &models.ExtractionResult{
		Text:      strings.Join(pages, "\n\n"),
		PageCount: pdfCtx.PageCount,
		HasImages: detectImageStreams(pdfCtx),
	}, nil
}

// HasImageStreams reports whether the document carries image XObjects,
// the usual sign of a scanned résumé.
func (b *PdfcpuBackend) HasImageStreams(data []byte) (bool, error) {
	pdfCtx, err := readPDFContext(data)
	if err != nil {
		return false, err
	}
	return detectImageStreams(pdfCtx), nil
}

func readPDFContext(data []byte) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	return pdfCtx, nil
}

func pageContentText(pdfCtx *model.Context, pageNr int) (string, error) {
	r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
	if err != nil || r == nil {
		return "", nil
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return "", nil
	}
	return textFromContentStream(data, pageFonts(pdfCtx, pageNr))
}

func detectImageStreams(pdfCtx *model.Context) bool {
	if pdfCtx.Optimize != nil {
		for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
			if len(pdfcpu.ImageObjNrs(pdfCtx, pageNr)) > 0 {
				return true
			}
		}
	}
	for _, entry := range pdfCtx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if name, isName := subtype.(types.Name); isName && name == "Image" {
				return true
			}
		}
	}
	return false
}

type streamOperand struct {
	str    []byte
	num    float64
	name   string
	isStr  bool
	isNum  bool
	isName bool
	arr    []streamOperand
}

// textFromContentStream walks a content stream token by token and renders
// Tj, TJ, ' and " operands. Td, TD, Tm and T* produce line breaks when the
// vertical position changes. Strings are decoded through the font selected
// by the last Tf; a composite font with no ToUnicode map is an error.
func textFromContentStream(data []byte, fonts map[string]*pdfFont) (string, error) {
	var sb strings.Builder
	var operands, array []streamOperand
	var font *pdfFont
	inArray := false
	lastTmY, haveTm := 0.0, false

	show := func(raw []byte) error {
		text, err := font.decode(raw)
		if err != nil {
			return err
		}
		sb.WriteString(text)
		return nil
	}

	push := func(op streamOperand) {
		if inArray {
			array = append(array, op)
			return
		}
		operands = append(operands, op)
	}
	brk := func(sep byte) {
		if sb.Len() == 0 {
			return
		}
		s := sb.String()
		last := s[len(s)-1]
		if last == '\n' || (sep == ' ' && last == ' ') {
			return
		}
		sb.WriteByte(sep)
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case isPDFSpace(c):
			i++
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '(':
			s, next := readLiteralString(data, i)
			push(streamOperand{str: s, isStr: true})
			i = next
		case c == '<' && i+1 < len(data) && data[i+1] == '<':
			i = skipDictionary(data, i)
		case c == '<':
			s, next := readHexString(data, i)
			push(streamOperand{str: s, isStr: true})
			i = next
		case c == '[':
			inArray = true
			array = array[:0]
			i++
		case c == ']':
			inArray = false
			operands = append(operands, streamOperand{arr: append([]streamOperand(nil), array...)})
			i++
		case c == '/':
			j := i + 1
			for j < len(data) && !isPDFSpace(data[j]) && !isPDFDelimiter(data[j]) {
				j++
			}
			push(streamOperand{name: string(data[i+1 : j]), isName: true})
			i = j
		default:
			j := i
			for j < len(data) && !isPDFSpace(data[j]) && !isPDFDelimiter(data[j]) {
				j++
			}
			if j == i {
				i++
				continue
			}
			tok := string(data[i:j])
			i = j

			if n, err := strconv.ParseFloat(tok, 64); err == nil {
				push(streamOperand{num: n, isNum: true})
				continue
			}

			switch tok {
			case "BI":
				i = skipInlineImage(data, i)
			case "Tf":
				font = nil
				if len(operands) >= 1 && operands[0].isName {
					font = fonts[operands[0].name]
				}
			case "Tj":
				if s, ok := lastString(operands); ok {
					if err := show(s); err != nil {
						return "", err
					}
				}
			case "'", "\"":
				brk('\n')
				if s, ok := lastString(operands); ok {
					if err := show(s); err != nil {
						return "", err
					}
				}
			case "TJ":
				if len(operands) > 0 {
					for _, el := range operands[len(operands)-1].arr {
						switch {
						case el.isStr:
							if err := show(el.str); err != nil {
								return "", err
							}
						case el.isNum && el.num < -200:
							brk(' ')
						}
					}
				}
			case "Td", "TD":
				if len(operands) >= 2 && operands[len(operands)-1].isNum {
					if operands[len(operands)-1].num != 0 {
						brk('\n')
					} else {
						brk(' ')
					}
				}
			case "Tm":
				if len(operands) >= 6 && operands[5].isNum {
					y := operands[5].num
					if haveTm && y == lastTmY {
						brk(' ')
					} else {
						brk('\n')
					}
					lastTmY, haveTm = y, true
				}
			case "T*":
				brk('\n')
			}
			operands = operands[:0]
		}
	}

	return sb.String(), nil
}

func lastString(operands []streamOperand) ([]byte, bool) {
	for k := len(operands) - 1; k >= 0; k-- {
		if operands[k].isStr {
			return operands[k].str, true
		}
	}
	return nil, false
}

func isPDFSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func readLiteralString(data []byte, start int) ([]byte, int) {
	var out []byte
	depth := 0
	i := start
	for i < len(data) {
		c := data[i]
		switch {
		case c == '\\' && i+1 < len(data):
			i++
			e := data[i]
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b', 'f':
			case '\n':
			case '\r':
				if i+1 < len(data) && data[i+1] == '\n' {
					i++
				}
			default:
				if e >= '0' && e <= '7' {
					v := 0
					n := 0
					for n < 3 && i < len(data) && data[i] >= '0' && data[i] <= '7' {
						v = v*8 + int(data[i]-'0')
						i++
						n++
					}
					out = append(out, byte(v))
					continue
				}
				out = append(out, e)
			}
			i++
		case c == '(':
			if depth > 0 {
				out = append(out, c)
			}
			depth++
			i++
		case c == ')':
			depth--
			i++
			if depth == 0 {
				return out, i
			}
			out = append(out, c)
		default:
			out = append(out, c)
			i++
		}
	}
	return out, i
}

func readHexString(data []byte, start int) ([]byte, int) {
	end := bytes.IndexByte(data[start:], '>')
	if end < 0 {
		return nil, len(data)
	}
	raw := data[start+1 : start+end]

	var digits []byte
	for _, c := range raw {
		if !isPDFSpace(c) {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}

	out := make([]byte, 0, len(digits)/2)
	for k := 0; k+1 < len(digits); k += 2 {
		v, err := strconv.ParseUint(string(digits[k:k+2]), 16, 8)
		if err != nil {
			return nil, start + end + 1
		}
		out = append(out, byte(v))
	}
	return out, start + end + 1
}

func skipDictionary(data []byte, start int) int {
	depth := 0
	for i := start; i+1 < len(data); i++ {
		switch {
		case data[i] == '<' && data[i+1] == '<':
			depth++
			i++
		case data[i] == '>' && data[i+1] == '>':
			depth--
			i++
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(data)
}

func skipInlineImage(data []byte, start int) int {
	id := bytes.Index(data[start:], []byte("ID"))
	if id < 0 {
		return len(data)
	}
	rest := start + id + 2
	ei := bytes.Index(data[rest:], []byte("EI"))
	if ei < 0 {
		return len(data)
	}
	return rest + ei + 2
}

var utf16BE = xunicode.UTF16(xunicode.BigEndian, xunicode.ExpectBOM)

// decodePDFText decodes a string operand. UTF-16 strings carry a BOM;
// everything else is treated as WinAnsi, which covers simple fonts.
func decodePDFText(raw []byte) string {
	var decoded string
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		out, err := utf16BE.NewDecoder().Bytes(raw)
		if err != nil {
			return ""
		}
		decoded = string(out)
	} else {
		out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return ""
		}
		decoded = string(out)
	}

	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, decoded)
}
