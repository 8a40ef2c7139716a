// Package importer turns OpenAPI 3 and Swagger 2 documents into API
// definitions of a project.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/ArCaneSec/apidock/internal/apidoc"
	"github.com/ArCaneSec/apidock/internal/logging"
	"github.com/ArCaneSec/apidock/internal/notifs"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

const maxDocument = 8 << 20

// Catalog is the part of the definition store an import writes through.
type Catalog interface {
	EnsureGroup(ctx context.Context, actor, projectID uint, name string) (uint, error)
	CreateAPI(ctx context.Context, actor uint, in *apidoc.CreateInput) (uint, error)
}

type Importer struct {
	catalog Catalog
	notify  notifs.Notify
	client  *http.Client
	timeout time.Duration
	log     *slog.Logger
}

type Option func(*Importer)

func WithHTTPClient(c *http.Client) Option {
	return func(im *Importer) { im.client = c }
}

func WithTimeout(d time.Duration) Option {
	return func(im *Importer) { im.timeout = d }
}

func WithNotify(n notifs.Notify) Option {
	return func(im *Importer) { im.notify = n }
}

func WithLogger(log *slog.Logger) Option {
	return func(im *Importer) { im.log = log }
}

func New(catalog Catalog, opts ...Option) *Importer {
	im := &Importer{
		catalog: catalog,
		client:  http.DefaultClient,
		timeout: 30 * time.Second,
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(im)
	}
	if im.notify == nil {
		im.notify = notifs.NewNotif("", im.log)
	}
	im.log = im.log.With("component", "importer")
	return im
}

// Result lists the API names an import created and the ones it skipped
// because the project already had an API of that name.
type Result struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
}

// Import fetches the document at source and files its operations under
// projectID. It is not atomic: APIs created before a failure stay.
func (im *Importer) Import(ctx context.Context, actor, projectID uint, source string) (*Result, error) {
	u, err := url.Parse(source)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: source must be an http(s) url", apidoc.ErrInvalidParameter)
	}

	data, err := im.fetch(ctx, u.String())
	if err != nil {
		im.notify.ErrNotif(ctx, "import fetch failed: "+source, err)
		return nil, fmt.Errorf("%w: fetch %s: %w", apidoc.ErrOperationFailed, source, err)
	}
	return im.ImportData(ctx, actor, projectID, source, data)
}

// ImportData imports an already loaded document. label names it in logs
// and notifications.
func (im *Importer) ImportData(ctx context.Context, actor, projectID uint, label string, data []byte) (*Result, error) {
	doc, err := load(ctx, data)
	if err != nil {
		im.notify.ErrNotif(ctx, "import parse failed: "+label, err)
		return nil, fmt.Errorf("%w: %w", apidoc.ErrOperationFailed, err)
	}

	res, err := im.apply(ctx, actor, projectID, doc)
	if err != nil {
		im.notify.ErrNotif(ctx, "import failed: "+label, err)
		return res, err
	}

	project := doc.Info.Title
	if project == "" {
		project = fmt.Sprintf("project %d", projectID)
	}
	im.notify.ImportNotif(ctx, project, label, res.Created, res.Skipped)
	return res, nil
}

func (im *Importer) fetch(ctx context.Context, source string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, im.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.5")

	resp, err := im.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocument+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxDocument {
		return nil, fmt.Errorf("document larger than %d bytes", maxDocument)
	}
	return data, nil
}

// load parses an OpenAPI 3 document, or a Swagger 2 document converted to
// OpenAPI 3, from JSON or YAML.
func load(ctx context.Context, data []byte) (*openapi3.T, error) {
	var probe struct {
		Swagger string `json:"swagger" yaml:"swagger"`
		OpenAPI string `json:"openapi" yaml:"openapi"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("document is neither JSON nor YAML: %w", err)
	}

	var (
		doc *openapi3.T
		err error
	)
	switch {
	case probe.OpenAPI != "":
		loader := openapi3.NewLoader()
		loader.Context = ctx
		doc, err = loader.LoadFromData(data)
		if err != nil {
			return nil, fmt.Errorf("failed to load openapi document: %w", err)
		}
	case probe.Swagger != "":
		doc, err = loadSwagger(data)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("document declares neither openapi nor swagger version")
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	return doc, nil
}

func loadSwagger(data []byte) (*openapi3.T, error) {
	if !json.Valid(data) {
		var tree any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("failed to read swagger document: %w", err)
		}
		converted, err := json.Marshal(tree)
		if err != nil {
			return nil, fmt.Errorf("failed to read swagger document: %w", err)
		}
		data = converted
	}

	var doc2 openapi2.T
	if err := json.Unmarshal(data, &doc2); err != nil {
		return nil, fmt.Errorf("failed to load swagger document: %w", err)
	}
	doc, err := openapi2conv.ToV3(&doc2)
	if err != nil {
		return nil, fmt.Errorf("failed to convert swagger document: %w", err)
	}
	return doc, nil
}

func (im *Importer) apply(ctx context.Context, actor, projectID uint, doc *openapi3.T) (*Result, error) {
	res := &Result{Created: []string{}, Skipped: []string{}}
	groups := make(map[string]uint)
	protocol := protocolOf(doc)

	for _, op := range operations(doc) {
		in, err := op.input(projectID, protocol)
		if err != nil {
			return res, classify(err, op.name())
		}

		if tag := op.tag(); tag != "" {
			id, ok := groups[tag]
			if !ok {
				var err error
				id, err = im.catalog.EnsureGroup(ctx, actor, projectID, tag)
				if err != nil {
					return res, classify(err, "group "+tag)
				}
				groups[tag] = id
			}
			gid := apidoc.ID(id)
			in.FirstGroupID = &gid
		}

		_, err = im.catalog.CreateAPI(ctx, actor, in)
		switch {
		case err == nil:
			res.Created = append(res.Created, in.Name)
		case errors.Is(err, apidoc.ErrNameConflict):
			res.Skipped = append(res.Skipped, in.Name)
		default:
			return res, classify(err, in.Name)
		}
	}

	im.log.InfoContext(ctx, "import applied", "project_id", projectID, "created", len(res.Created), "skipped", len(res.Skipped))
	return res, nil
}

// classify keeps a missing project visible to the caller and folds every
// other failure into a generic one.
func classify(err error, what string) error {
	if errors.Is(err, apidoc.ErrProjectNotFound) || errors.Is(err, apidoc.ErrOperationFailed) {
		return err
	}
	return fmt.Errorf("%w: import %s: %w", apidoc.ErrOperationFailed, what, err)
}

func protocolOf(doc *openapi3.T) string {
	for _, s := range doc.Servers {
		if u, err := url.Parse(s.URL); err == nil && u.Scheme == "https" {
			return "HTTPS"
		}
	}
	return "HTTP"
}

var methods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}

// operations lists the importable operations of doc in path order.
func operations(doc *openapi3.T) []operation {
	if doc.Paths == nil {
		return nil
	}
	paths := doc.Paths.Map()
	keys := make([]string, 0, len(paths))
	for p := range paths {
		keys = append(keys, p)
	}
	sort.Strings(keys)

	var out []operation
	for _, p := range keys {
		item := paths[p]
		for _, m := range methods {
			op := item.GetOperation(m)
			if op == nil {
				continue
			}
			out = append(out, operation{path: p, method: m, item: item, op: op})
		}
	}
	return out
}
