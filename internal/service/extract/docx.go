package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

// extractDocx walks the OOXML container: body paragraphs in document
// order, tables as delimited blocks, then every embedded media part
// through the vision oracle.
func (e *Extractor) extractDocx(ctx context.Context, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse error: %v", err)
	}

	var docXML *zip.File
	var media []*zip.File
	for _, f := range zr.File {
		switch {
		case f.Name == "word/document.xml":
			docXML = f
		case strings.HasPrefix(f.Name, "word/media/"):
			media = append(media, f)
		}
	}
	if docXML == nil {
		return "", fmt.Errorf("parse error: no document part")
	}

	rc, err := docXML.Open()
	if err != nil {
		return "", fmt.Errorf("parse error: %v", err)
	}
	paragraphs, tables, err := parseDocumentXML(rc)
	rc.Close()
	if err != nil {
		return "", fmt.Errorf("parse error: %v", err)
	}

	parts := make([]string, 0, len(paragraphs)+len(tables)+len(media))
	parts = append(parts, paragraphs...)

	for _, tbl := range tables {
		var rows []string
		for _, row := range tbl {
			var cells []string
			for _, cell := range row {
				if cell = strings.TrimSpace(cell); cell != "" {
					cells = append(cells, cell)
				}
			}
			if len(cells) > 0 {
				rows = append(rows, strings.Join(cells, " | "))
			}
		}
		if len(rows) > 0 {
			parts = append(parts, "\n── Table ──\n"+strings.Join(rows, "\n"))
		}
	}

	// Media parts carry sequence numbers in their names (image1.png,
	// image2.jpeg, ...); sorting keeps document order.
	sort.Slice(media, func(i, j int) bool { return media[i].Name < media[j].Name })
	for i, m := range media {
		name := path.Base(strings.ToLower(m.Name))
		imgData, err := readZipFile(m)
		if err != nil {
			parts = append(parts, fmt.Sprintf("\n── Embedded Image %d ──\n[extraction failed: %v]", i+1, err))
			continue
		}
		suffix := path.Ext(name)
		if suffix == "" {
			suffix = ".png"
		}
		ocrText := e.vision.RecognizeImage(ctx, imgData, suffix)
		parts = append(parts, fmt.Sprintf("\n── Embedded Image %d (%s) ──\n%s", i+1, name, ocrText))
	}

	return strings.Join(parts, "\n"), nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// parseDocumentXML streams word/document.xml, separating body paragraphs
// from table cell text. Paragraph nodes inside a table belong to the
// table, not the paragraph list.
func parseDocumentXML(r io.Reader) ([]string, [][][]string, error) {
	dec := xml.NewDecoder(r)

	var paragraphs []string
	var tables [][][]string

	var tableDepth int
	var para strings.Builder
	inPara := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
				if tableDepth == 1 {
					tables = append(tables, nil)
				}
			case "tr":
				if tableDepth == 1 {
					tables[len(tables)-1] = append(tables[len(tables)-1], nil)
				}
			case "tc":
				if tableDepth == 1 {
					tbl := tables[len(tables)-1]
					tbl[len(tbl)-1] = append(tbl[len(tbl)-1], "")
				}
			case "p":
				if tableDepth == 0 {
					inPara = true
					para.Reset()
				}
			case "t":
				var text string
				if err := dec.DecodeElement(&text, &t); err != nil {
					return nil, nil, err
				}
				if tableDepth > 0 {
					appendCellText(tables, text)
				} else if inPara {
					para.WriteString(text)
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				if tableDepth > 0 {
					tableDepth--
				}
			case "p":
				if tableDepth == 0 && inPara {
					if s := strings.TrimSpace(para.String()); s != "" {
						paragraphs = append(paragraphs, s)
					}
					inPara = false
				}
			}
		}
	}

	return paragraphs, tables, nil
}

func appendCellText(tables [][][]string, text string) {
	if len(tables) == 0 {
		return
	}
	tbl := tables[len(tables)-1]
	if len(tbl) == 0 {
		return
	}
	row := tbl[len(tbl)-1]
	if len(row) == 0 {
		return
	}
	row[len(row)-1] += text
}
