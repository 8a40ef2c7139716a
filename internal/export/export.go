// Package export renders a project catalogue to a document file and serves
// the files back by name.
package export

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ArCaneSec/apidock/internal/apidoc"
	"github.com/ArCaneSec/apidock/internal/logging"

	"github.com/google/uuid"
)

type Format string

const (
	FormatMarkdown Format = "md"
	FormatYAML     Format = "yaml"
)

var (
	ErrUnknownFormat = errors.New("unknown export format")
	ErrNoSuchFile    = errors.New("no such export file")
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatMarkdown, "markdown", "":
		return FormatMarkdown, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Renderer writes exported documents into one directory. Files are named
// by a random id and the format extension.
type Renderer struct {
	dir string
	log *slog.Logger
	now func() time.Time
}

func New(dir string, log *slog.Logger) (*Renderer, error) {
	if log == nil {
		log = logging.Nop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &Renderer{dir: dir, log: log.With("component", "export"), now: time.Now}, nil
}

func (r *Renderer) Dir() string {
	return r.dir
}

// Render writes c in the requested format and returns the file name.
func (r *Renderer) Render(c *apidoc.Catalogue, f Format) (string, error) {
	var (
		body []byte
		err  error
	)
	switch f {
	case FormatMarkdown:
		body = []byte(markdown(c, r.now()))
	case FormatYAML:
		body, err = renderYAML(c, r.now())
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return "", err
	}

	name := uuid.NewString() + "." + string(f)
	if err := os.WriteFile(filepath.Join(r.dir, name), body, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	r.log.Info("exported catalogue", "project", c.Label, "file", name, "bytes", len(body))
	return name, nil
}

// Path resolves an export file name to its location. Only bare names of
// regular files directly inside the export directory resolve.
func (r *Renderer) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrNoSuchFile
	}
	p := filepath.Join(r.dir, name)
	st, err := os.Stat(p)
	if err != nil || !st.Mode().IsRegular() {
		return "", ErrNoSuchFile
	}
	return p, nil
}

// Purge deletes export files last modified before now minus retention and
// returns how many were removed.
func (r *Renderer) Purge(retention time.Duration) (int, error) {
	cutoff := r.now().Add(-retention)

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return 0, fmt.Errorf("read export dir: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return removed, err
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(r.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("remove %s: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}
