package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"alfredoptarigan/cv-parser/internal/config"
)

// OCREngine rasterizes a PDF and recognizes its pages.
type OCREngine interface {
	Available() bool
	Recognize(ctx context.Context, data []byte) (text string, pages int, err error)
}

type tesseractOCR struct {
	cfg    config.ExtractionConfig
	runner Runner
	logger *slog.Logger
}

func NewTesseractOCR(cfg config.ExtractionConfig, runner Runner, logger *slog.Logger) OCREngine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OCRDPI <= 0 {
		cfg.OCRDPI = 300
	}
	if cfg.OCRConcurrency <= 0 {
		cfg.OCRConcurrency = 1
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	return &tesseractOCR{cfg: cfg, runner: runner, logger: logger}
}

func (o *tesseractOCR) Available() bool {
	return o.cfg.OCREnabled &&
		o.runner != nil &&
		o.runner.Available(o.cfg.PdftoppmPath) &&
		o.runner.Available(o.cfg.TesseractPath)
}

var renderedPageRe = regexp.MustCompile(`-(\d+)\.png$`)

func (o *tesseractOCR) Recognize(ctx context.Context, data []byte) (string, int, error) {
	tmpDir, err := os.MkdirTemp("", "cvparser-ocr-*")
	if err != nil {
		return "", 0, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			o.logger.Warn("failed to remove OCR temp dir", "dir", tmpDir, "error", err)
		}
	}()

	pdfPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(pdfPath, data, 0o600); err != nil {
		return "", 0, fmt.Errorf("failed to stage PDF: %w", err)
	}

	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-r", strconv.Itoa(o.cfg.OCRDPI), "-png"}
	if o.cfg.OCRMaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(o.cfg.OCRMaxPages))
	}
	args = append(args, pdfPath, prefix)

	if _, errb, err := o.runner.Run(ctx, o.cfg.PdftoppmPath, args...); err != nil {
		return "", 0, fmt.Errorf("pdftoppm failed: %w (stderr=%q)", err, truncate(string(errb), 512))
	}

	images, _ := filepath.Glob(prefix + "-*.png")
	sortRenderedPages(images)
	if o.cfg.OCRMaxPages > 0 && len(images) > o.cfg.OCRMaxPages {
		images = images[:o.cfg.OCRMaxPages]
	}
	if len(images) == 0 {
		return "", 0, fmt.Errorf("pdftoppm produced no images")
	}

	texts := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.OCRConcurrency)

	for i, img := range images {
		g.Go(func() error {
			out, errb, err := o.runner.Run(gctx, o.cfg.TesseractPath, img, "stdout", "-l", o.cfg.TesseractLang)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				o.logger.Warn("tesseract failed on page",
					"page", i+1,
					"error", err,
					"stderr", truncate(string(errb), 512),
				)
				return nil
			}
			texts[i] = strings.TrimSpace(string(out))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", 0, err
	}

	var recognized []string
	for _, t := range texts {
		if t != "" {
			recognized = append(recognized, t)
		}
	}
	if len(recognized) == 0 {
		return "", len(images), fmt.Errorf("tesseract recognized no text on %d pages", len(images))
	}

	return strings.Join(recognized, "\n\n"), len(images), nil
}

// sortRenderedPages orders pdftoppm output by page number rather than name.
func sortRenderedPages(paths []string) {
	pageOf := func(p string) int {
		m := renderedPageRe.FindStringSubmatch(p)
		if m == nil {
			return 0
		}
		n, _ := strconv.Atoi(m[1])
		return n
	}
	sort.SliceStable(paths, func(i, j int) bool {
		return pageOf(paths[i]) < pageOf(paths[j])
	})
}

type noopOCR struct{}

func (noopOCR) Available() bool { return false }

func (noopOCR) Recognize(context.Context, []byte) (string, int, error) {
	return "", 0, errBackendUnavailable
}
