// Package extract turns raw submission attachments into plain gradable
// text. Document containers recurse into embedded images through the
// vision oracle; no failure here ever propagates as an error value
// beyond the returned ExtractedContent.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/profdeck/canvas-grader/internal/models"
	"github.com/profdeck/canvas-grader/internal/service/oracle"
	"github.com/profdeck/canvas-grader/pkg/utils"
	"github.com/rs/zerolog"
)

// Downloader resolves an attachment's download handle into bytes.
// Satisfied by the Canvas client.
type Downloader interface {
	DownloadAttachment(ctx context.Context, att models.AttachmentRef) ([]byte, error)
}

type Extractor struct {
	downloader Downloader
	vision     oracle.VisionOracle
	maxSize    int64
	logger     zerolog.Logger
}

func NewExtractor(downloader Downloader, vision oracle.VisionOracle, maxSize int64, logger zerolog.Logger) *Extractor {
	return &Extractor{
		downloader: downloader,
		vision:     vision,
		maxSize:    maxSize,
		logger:     logger,
	}
}

// ExtractAttachment downloads one attachment and extracts its text.
// Oversized attachments are rejected before any download happens.
func (e *Extractor) ExtractAttachment(ctx context.Context, att models.AttachmentRef) models.ExtractedContent {
	result := models.ExtractedContent{
		Filename:    att.Filename,
		ContentType: att.ContentType,
		Size:        att.Size,
	}

	if att.URL == "" {
		result.Error = "no download URL available"
		return result
	}

	if att.Size > 0 && att.Size > e.maxSize {
		result.Error = fmt.Sprintf("file too large (%d MB) to preview", att.Size/1_000_000)
		return result
	}

	data, err := e.downloader.DownloadAttachment(ctx, att)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	text, err := e.ExtractBytes(ctx, att.Filename, att.ContentType, data)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Text = text

	e.logger.Debug().
		Str("filename", att.Filename).
		Str("size", utils.FormatSize(att.Size)).
		Int("chars", len(result.Text)).
		Msg("Attachment extracted")
	return result
}

// ExtractBytes dispatches a raw document blob by media type and filename
// extension.
func (e *Extractor) ExtractBytes(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	lname := strings.ToLower(filename)
	ct := strings.ToLower(contentType)

	switch {
	case strings.Contains(ct, "wordprocessingml") || strings.HasSuffix(lname, ".docx"):
		return e.extractDocx(ctx, data)

	case strings.Contains(ct, "spreadsheetml") || strings.HasSuffix(lname, ".xlsx"):
		return extractXLSX(data)

	case strings.Contains(ct, "pdf") || strings.HasSuffix(lname, ".pdf"):
		return e.extractPDF(ctx, data)

	case isImage(ct, lname):
		suffix := filepath.Ext(lname)
		if suffix == "" {
			suffix = ".jpg"
		}
		return e.vision.RecognizeImage(ctx, data, suffix), nil

	case isPlaintext(ct, lname):
		// Replacement-character fallback for invalid bytes.
		return strings.ToValidUTF8(string(data), "�"), nil

	default:
		return "", fmt.Errorf("unsupported format: %s", filename)
	}
}
