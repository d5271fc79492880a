package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/profdeck/canvas-grader/internal/models"
	"github.com/rs/zerolog"
)

type fakeDownloader struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeDownloader) DownloadAttachment(ctx context.Context, att models.AttachmentRef) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

type fakeVision struct {
	reply string
	calls int
}

func (f *fakeVision) RecognizeImage(ctx context.Context, data []byte, suffix string) string {
	f.calls++
	return f.reply
}

func newTestExtractor(d *fakeDownloader, v *fakeVision) *Extractor {
	return NewExtractor(d, v, 10_000_000, zerolog.Nop())
}

func TestExtractAttachmentSizeGuard(t *testing.T) {
	d := &fakeDownloader{}
	e := newTestExtractor(d, &fakeVision{})

	att := models.AttachmentRef{
		Filename: "huge.pdf",
		Size:     15_000_000,
		URL:      "https://files.example.com/huge.pdf",
	}
	result := e.ExtractAttachment(context.Background(), att)

	if !strings.Contains(result.Error, "too large") {
		t.Errorf("Error = %q, want size rejection", result.Error)
	}
	if !strings.Contains(result.Error, "15 MB") {
		t.Errorf("Error = %q, want size in MB", result.Error)
	}
	if d.calls != 0 {
		t.Error("oversized attachment must not be downloaded")
	}
}

func TestExtractAttachmentNoURL(t *testing.T) {
	d := &fakeDownloader{}
	e := newTestExtractor(d, &fakeVision{})

	result := e.ExtractAttachment(context.Background(), models.AttachmentRef{Filename: "a.txt"})
	if result.Error != "no download URL available" {
		t.Errorf("Error = %q", result.Error)
	}
	if d.calls != 0 {
		t.Error("attachment without URL must not be downloaded")
	}
}

func TestExtractAttachmentDownloadError(t *testing.T) {
	d := &fakeDownloader{err: errors.New("connection reset")}
	e := newTestExtractor(d, &fakeVision{})

	att := models.AttachmentRef{Filename: "a.txt", URL: "https://files.example.com/a.txt"}
	result := e.ExtractAttachment(context.Background(), att)
	if result.Error != "connection reset" {
		t.Errorf("Error = %q", result.Error)
	}
}

func TestExtractBytesPlaintextInvalidUTF8(t *testing.T) {
	e := newTestExtractor(&fakeDownloader{}, &fakeVision{})

	text, err := e.ExtractBytes(context.Background(), "notes.txt", "text/plain", []byte{'h', 'i', 0xff, '!'})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "hi") || !strings.Contains(text, "�") {
		t.Errorf("text = %q, want replacement characters for invalid bytes", text)
	}
}

func TestExtractBytesUnsupportedFormat(t *testing.T) {
	e := newTestExtractor(&fakeDownloader{}, &fakeVision{})

	_, err := e.ExtractBytes(context.Background(), "model.blend", "application/octet-stream", []byte{1, 2, 3})
	if err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("err = %v, want unsupported format", err)
	}
}

func TestExtractBytesImageGoesToVision(t *testing.T) {
	v := &fakeVision{reply: "Whiteboard notes: chapter 4 summary"}
	e := newTestExtractor(&fakeDownloader{}, v)

	text, err := e.ExtractBytes(context.Background(), "photo.png", "image/png", []byte{0x89, 'P', 'N', 'G'})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.calls != 1 {
		t.Fatalf("vision called %d times, want 1", v.calls)
	}
	if text != "Whiteboard notes: chapter 4 summary" {
		t.Errorf("text = %q", text)
	}
}

func TestExtractBytesImagePlaceholderPassthrough(t *testing.T) {
	v := &fakeVision{reply: "[Image: analysis timed out]"}
	e := newTestExtractor(&fakeDownloader{}, v)

	text, err := e.ExtractBytes(context.Background(), "scan.jpg", "image/jpeg", []byte{0xff, 0xd8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "[Image: analysis timed out]" {
		t.Errorf("text = %q, want placeholder passed through", text)
	}
}

func TestExtractBytesDispatchByExtension(t *testing.T) {
	// Content type missing; extension alone must route correctly.
	e := newTestExtractor(&fakeDownloader{}, &fakeVision{reply: "ocr"})

	if _, err := e.ExtractBytes(context.Background(), "essay.txt", "", []byte("plain words")); err != nil {
		t.Errorf("txt by extension: %v", err)
	}
	if _, err := e.ExtractBytes(context.Background(), "fig.jpeg", "", []byte{0xff, 0xd8}); err != nil {
		t.Errorf("jpeg by extension: %v", err)
	}
}
