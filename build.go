package pubgarden

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// RouteArtifactName is the generated route table written to the output dir.
const RouteArtifactName = "routes.json"

// BuildResult is everything one run of the pipeline produced.
type BuildResult struct {
	ID          string
	Mode        Mode
	StartedAt   time.Time
	Collections Collections
	Routes      *RouteTable
	Removed     []string // entries dropped by the publish filter
	Diagnostics []Diagnostic
}

// Builder runs the content pipeline: load sources, resolve references, apply
// the publish filter, derive routes. Each step sees the complete output of the
// previous one.
type Builder struct {
	Config SiteConfig
	Loader Loader
	Logger Logger
}

// NewBuilder returns a Builder loading files below cfg.ContentDir.
func NewBuilder(cfg SiteConfig, logger Logger) *Builder {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Builder{
		Config: cfg,
		Loader: NewFileLoader(os.DirFS(cfg.ContentDir)),
		Logger: logger,
	}
}

// Run executes the pipeline once. Any error aborts the whole build.
func (b *Builder) Run(ctx context.Context) (*BuildResult, error) {
	cfg := b.Config
	res := &BuildResult{
		ID:        uuid.NewString(),
		Mode:      cfg.Mode,
		StartedAt: time.Now(),
	}
	b.Logger.Infof("build %s: mode=%s sources=%d", res.ID, cfg.Mode, len(cfg.Sources))

	templates, err := parseTemplates(cfg.Templates)
	if err != nil {
		return nil, err
	}

	reg, err := NewRegistry(cfg.Sources, b.Logger)
	if err != nil {
		return nil, err
	}
	cols, diags, err := reg.Load(ctx, b.Loader)
	if err != nil {
		return nil, err
	}
	res.Collections = cols
	res.Diagnostics = append(res.Diagnostics, diags...)

	filter := PublishFilter{Mode: cfg.Mode, Collection: cfg.Publish.Collection, Field: cfg.Publish.Field}
	res.Removed = filter.Apply(cols)
	if len(res.Removed) > 0 {
		b.Logger.Infof("build %s: publish filter removed %d %s entries", res.ID, len(res.Removed), filter.Collection)
	}

	table, routeDiags, err := DeriveRoutes(cols, templates, cfg.Pages, cfg.NotFound, cfg.Routes.AllowShadowing)
	if err != nil {
		return nil, err
	}
	for _, d := range routeDiags {
		b.Logger.Warnf("%s", d.Message)
	}
	res.Routes = table
	res.Diagnostics = append(res.Diagnostics, routeDiags...)

	for _, name := range sortedKeys(cols) {
		b.Logger.Debugf("build %s: %s has %d entries", res.ID, name, cols[name].Len())
	}
	b.Logger.Infof("build %s: %d routes in %s", res.ID, table.Len(), time.Since(res.StartedAt).Round(time.Millisecond))
	return res, nil
}

func parseTemplates(cfgs []TemplateConfig) ([]RouteTemplate, error) {
	out := make([]RouteTemplate, 0, len(cfgs))
	for _, c := range cfgs {
		t, err := ParseRouteTemplate(c.TypeName, c.Page, c.Path)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// routeArtifact is the on-disk shape of the generated route table.
type routeArtifact struct {
	Site   string  `json:"site"`
	Mode   Mode    `json:"mode"`
	Routes []Route `json:"routes"`
}

// MarshalRoutes encodes the route table deterministically. The build id and
// timestamps are left out so identical inputs give identical bytes.
func MarshalRoutes(site string, mode Mode, t *RouteTable) ([]byte, error) {
	data, err := json.MarshalIndent(routeArtifact{Site: site, Mode: mode, Routes: t.Routes}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// WriteRouteArtifact writes routes.json to dir, replacing any previous file.
func WriteRouteArtifact(dir, site string, mode Mode, t *RouteTable) (string, error) {
	data, err := MarshalRoutes(site, mode, t)
	if err != nil {
		return "", fmt.Errorf("pubgarden: encode routes: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	out := filepath.Join(dir, RouteArtifactName)
	tmp := out + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, out); err != nil {
		return "", err
	}
	return out, nil
}

// ReadRouteArtifact loads a routes.json written by WriteRouteArtifact.
func ReadRouteArtifact(path string) (*RouteTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var a routeArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("pubgarden: decode %s: %w", path, err)
	}
	return NewRouteTable(a.Routes), nil
}
