package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"alfredoptarigan/cv-parser/internal/models"
)

// DocxBackend reads word/document.xml straight out of the OOXML archive.
// Paragraphs become lines, list paragraphs get a "- " marker and table rows
// are rendered as pipe-separated cells.
type DocxBackend struct{}

func NewDocxBackend() *DocxBackend {
	return &DocxBackend{}
}

func (b *DocxBackend) Name() models.BackendID {
	return models.BackendDocx
}

func (b *DocxBackend) Attempt(ctx context.Context, data []byte) (*models.ExtractionResult, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	var docFile, appFile *zip.File
	for _, f := range zr.File {
		switch f.Name {
		case "word/document.xml":
			docFile = f
		case "docProps/app.xml":
			appFile = f
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	body, err := readDocxBody(ctx, rc)
	if err != nil {
		return nil, err
	}

	pages := body.pageBreaks + 1
	if appFile != nil {
		if n, err := docxPageCount(appFile); err == nil && n > 0 {
			pages = n
		}
	}

	return &models.ExtractionResult{
		Text:      strings.Join(body.lines, "\n"),
		PageCount: pages,
		HasImages: body.hasImages,
		HasTables: body.hasTables,
	}, nil
}

type docxBody struct {
	lines      []string
	pageBreaks int
	hasTables  bool
	hasImages  bool
}

func readDocxBody(ctx context.Context, r io.Reader) (*docxBody, error) {
	out := &docxBody{}
	decoder := xml.NewDecoder(r)

	var (
		para       strings.Builder
		inText     bool
		listItem   bool
		tableDepth int
		cellParas  []string
		rowCells   []string
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				para.Reset()
				listItem = false
			case "numPr":
				listItem = true
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				if attrValue(t, "type") == "page" {
					out.pageBreaks++
				} else {
					para.WriteByte('\n')
				}
			case "tbl":
				tableDepth++
				out.hasTables = true
			case "tr":
				rowCells = rowCells[:0]
			case "tc":
				cellParas = cellParas[:0]
			case "drawing", "pict":
				out.hasImages = true
			}

		case xml.CharData:
			if inText {
				para.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text := strings.TrimSpace(para.String())
				if text == "" {
					continue
				}
				if tableDepth > 0 {
					cellParas = append(cellParas, text)
					continue
				}
				if listItem {
					text = "- " + text
				}
				out.lines = append(out.lines, text)
			case "tc":
				rowCells = append(rowCells, strings.Join(cellParas, " "))
			case "tr":
				if row := strings.TrimSpace(strings.Join(rowCells, " | ")); strings.Trim(row, "| ") != "" {
					out.lines = append(out.lines, row)
				}
			case "tbl":
				tableDepth--
			}
		}
	}

	if len(out.lines) == 0 {
		return nil, fmt.Errorf("no text content found in document")
	}
	return out, nil
}

func attrValue(el xml.StartElement, local string) string {
	for _, attr := range el.Attr {
		if attr.Name.Local == local {
			return attr.Value
		}
	}
	return ""
}

func docxPageCount(f *zip.File) (int, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	var props struct {
		Pages string `xml:"Pages"`
	}
	if err := xml.NewDecoder(rc).Decode(&props); err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(props.Pages))
}
