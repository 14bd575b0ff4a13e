package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/samber/do"
	"github.com/samber/lo"
)

type readFunc func(path string) (string, error)

// Extractor turns a document on disk into plain text. The reader is picked
// by file extension.
type Extractor struct {
	readers map[string]readFunc
}

func New(_ *do.Injector) (*Extractor, error) {
	return NewExtractor(), nil
}

func NewExtractor() *Extractor {
	return &Extractor{
		readers: map[string]readFunc{
			".pdf":      readPDF,
			".txt":      readText,
			".md":       readText,
			".markdown": readText,
		},
	}
}

// Extract returns the non-empty text of the document at path, or an *ExtractionError.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", newError(KindUnreadable, path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", newError(KindNotFound, path, err)
		}
		return "", newError(KindUnreadable, path, err)
	}
	if info.IsDir() {
		return "", newError(KindUnreadable, path, fmt.Errorf("%s is a directory", filepath.Base(path)))
	}

	ext := strings.ToLower(filepath.Ext(path))
	read, ok := e.readers[ext]
	if !ok {
		return "", newError(KindUnreadable, path, fmt.Errorf("unsupported document type %q (supported: %s)",
			ext, strings.Join(e.SupportedExtensions(), ", ")))
	}

	text, err := read(path)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", newError(KindNoText, path, nil)
	}

	slog.DebugContext(ctx, "Extracted document text",
		"path", path,
		"bytes", info.Size(),
		"chars", utf8.RuneCountInString(text),
	)

	return text, nil
}

// SupportedExtensions lists the extensions Extract accepts.
func (e *Extractor) SupportedExtensions() []string {
	exts := lo.Keys(e.readers)
	sort.Strings(exts)
	return exts
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", newError(KindUnreadable, path, err)
	}

	if !utf8.Valid(data) {
		return "", newError(KindUnreadable, path, errors.New("file is not valid UTF-8 text"))
	}

	return string(data), nil
}

func readPDF(path string) (text string, err error) {
	// the pdf package panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			err = newError(KindUnreadable, path, fmt.Errorf("malformed PDF: %v", r))
		}
	}()

	// Open tries the empty password on encrypted files.
	file, reader, err := pdf.Open(path)
	if err != nil {
		if isEncryptionError(err) {
			return "", newError(KindEncrypted, path, err)
		}
		return "", newError(KindUnreadable, path, err)
	}
	defer file.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", newError(KindUnreadable, path, err)
	}

	var buf bytes.Buffer
	if _, err = buf.ReadFrom(plain); err != nil {
		return "", newError(KindUnreadable, path, err)
	}

	return buf.String(), nil
}

func isEncryptionError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "encrypt")
}
