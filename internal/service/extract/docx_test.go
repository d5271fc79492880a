package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func buildDocx(t *testing.T, documentXML string, media map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}

	for name, data := range media {
		mw, err := zw.Create("word/media/" + name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := mw.Write(data); err != nil {
			t.Fatal(err)
		}
	}

	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

const docXMLParagraphs = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>   </w:t></w:r></w:p>
  </w:body>
</w:document>`

func TestExtractDocxParagraphs(t *testing.T) {
	data := buildDocx(t, docXMLParagraphs, nil)
	e := NewExtractor(&fakeDownloader{}, &fakeVision{}, 10_000_000, zerolog.Nop())

	text, err := e.extractDocx(context.Background(), data)
	if err != nil {
		t.Fatalf("extractDocx: %v", err)
	}
	if !strings.Contains(text, "First paragraph.") {
		t.Errorf("missing first paragraph: %q", text)
	}
	if !strings.Contains(text, "Second paragraph.") {
		t.Errorf("split runs not joined: %q", text)
	}
	if strings.Contains(text, "   ") {
		t.Errorf("blank paragraph not dropped: %q", text)
	}
}

const docXMLTable = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Intro.</w:t></w:r></w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Name</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>Score</w:t></w:r></w:p></w:tc>
      </w:tr>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Ada</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>95</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
  </w:body>
</w:document>`

func TestExtractDocxTable(t *testing.T) {
	data := buildDocx(t, docXMLTable, nil)
	e := NewExtractor(&fakeDownloader{}, &fakeVision{}, 10_000_000, zerolog.Nop())

	text, err := e.extractDocx(context.Background(), data)
	if err != nil {
		t.Fatalf("extractDocx: %v", err)
	}
	if !strings.Contains(text, "── Table ──") {
		t.Errorf("missing table block: %q", text)
	}
	if !strings.Contains(text, "Name | Score") {
		t.Errorf("missing header row: %q", text)
	}
	if !strings.Contains(text, "Ada | 95") {
		t.Errorf("missing data row: %q", text)
	}
	// Cell paragraphs belong to the table, not the paragraph list.
	if strings.Index(text, "Intro.") > strings.Index(text, "── Table ──") {
		t.Errorf("paragraph/table order wrong: %q", text)
	}
}

func TestExtractDocxEmbeddedImages(t *testing.T) {
	v := &fakeVision{reply: "diagram of a network"}
	data := buildDocx(t, docXMLParagraphs, map[string][]byte{
		"image1.png": {0x89, 'P', 'N', 'G'},
		"image2.jpeg": {0xff, 0xd8},
	})
	e := NewExtractor(&fakeDownloader{}, v, 10_000_000, zerolog.Nop())

	text, err := e.extractDocx(context.Background(), data)
	if err != nil {
		t.Fatalf("extractDocx: %v", err)
	}
	if v.calls != 2 {
		t.Errorf("vision called %d times, want 2", v.calls)
	}
	if !strings.Contains(text, "── Embedded Image 1 (image1.png) ──") {
		t.Errorf("missing first image label: %q", text)
	}
	if !strings.Contains(text, "── Embedded Image 2 (image2.jpeg) ──") {
		t.Errorf("missing second image label: %q", text)
	}
	if !strings.Contains(text, "diagram of a network") {
		t.Errorf("missing OCR text: %q", text)
	}
}

func TestExtractDocxNotAZip(t *testing.T) {
	e := NewExtractor(&fakeDownloader{}, &fakeVision{}, 10_000_000, zerolog.Nop())

	_, err := e.extractDocx(context.Background(), []byte("not a zip archive"))
	if err == nil || !strings.Contains(err.Error(), "parse error") {
		t.Errorf("err = %v, want parse error", err)
	}
}

func TestExtractDocxMissingDocumentPart(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/styles.xml")
	w.Write([]byte("<styles/>"))
	zw.Close()

	e := NewExtractor(&fakeDownloader{}, &fakeVision{}, 10_000_000, zerolog.Nop())
	_, err := e.extractDocx(context.Background(), buf.Bytes())
	if err == nil || !strings.Contains(err.Error(), "no document part") {
		t.Errorf("err = %v, want no document part", err)
	}
}
