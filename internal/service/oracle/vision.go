package oracle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	PlaceholderTimedOut    = "[Image: analysis timed out]"
	PlaceholderUnavailable = "[Image: claude CLI not available for OCR]"
	PlaceholderNoText      = "[Image: no readable text detected]"
)

type Vision struct {
	runner  commandRunner
	model   string
	timeout time.Duration
	logger  zerolog.Logger
}

func NewVision(command, model string, timeout time.Duration, logger zerolog.Logger) *Vision {
	return &Vision{
		runner:  execRunner{command: command},
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// RecognizeImage writes the image to a temp file and asks the oracle to
// OCR/describe it. All failure modes collapse into bracketed placeholder
// strings so an embedded image can never sink a whole extraction.
func (v *Vision) RecognizeImage(ctx context.Context, data []byte, suffix string) string {
	if suffix == "" {
		suffix = ".png"
	}

	tmp, err := os.CreateTemp("", "grader-img-*"+suffix)
	if err != nil {
		return fmt.Sprintf("[Image: analysis failed: %v]", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Sprintf("[Image: analysis failed: %v]", err)
	}
	tmp.Close()

	prompt := fmt.Sprintf(
		"Analyze the image file at %s. Extract ALL readable text exactly as written. "+
			"If there are charts/figures, briefly describe them. Keep response concise. No preamble.",
		tmpPath,
	)

	text, err := v.runner.Run(ctx, v.timeout,
		"--print",
		"--dangerously-skip-permissions",
		"--add-dir", filepath.Dir(tmpPath),
		"--model", v.model,
		prompt,
	)
	switch {
	case errors.Is(err, ErrTimeout):
		v.logger.Warn().Msg("Image recognition timed out")
		return PlaceholderTimedOut
	case errors.Is(err, ErrUnavailable):
		return PlaceholderUnavailable
	case err != nil:
		return fmt.Sprintf("[Image: analysis failed: %v]", err)
	}

	// Trivially short replies are treated as "nothing readable".
	if len(text) > 5 {
		return text
	}
	return PlaceholderNoText
}

// IsPlaceholder reports whether a vision result is one of the bracketed
// failure/no-content sentinels rather than extracted content.
func IsPlaceholder(s string) bool {
	return strings.HasPrefix(s, "[Image:")
}
