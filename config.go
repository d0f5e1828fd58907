package pubgarden

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Mode selects the build flavour. It is read once at startup and never changes
// during a build.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// ErrInvalidMode is returned by ParseMode for anything but development/production.
var ErrInvalidMode = errors.New("pubgarden: invalid mode")

// ParseMode accepts "development"/"dev" and "production"/"prod", case-insensitively.
// An empty string means development.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "development", "dev":
		return ModeDevelopment, nil
	case "production", "prod":
		return ModeProduction, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// SiteConfig holds all configuration for a pubgarden site.
type SiteConfig struct {
	Name        string `mapstructure:"siteName"`    // Site name (default "Blog")
	URL         string `mapstructure:"siteUrl"`     // Canonical URL (default "http://localhost:3000")
	Description string `mapstructure:"description"` // Site description for RSS and meta tags
	Author      string `mapstructure:"author"`

	Mode Mode   `mapstructure:"mode"`
	Addr string `mapstructure:"addr"` // Listen address (default ":3000")

	ContentDir   string `mapstructure:"contentDir"`   // Root that source patterns are relative to (default ".")
	OutputDir    string `mapstructure:"outputDir"`    // Generated artifacts (default ".pubgarden")
	DatabasePath string `mapstructure:"databasePath"` // SQLite path (default ".pubgarden/site.db")

	CacheTTL time.Duration `mapstructure:"cacheTTL"` // Route cache TTL (default 5min)

	Sources   []SourceConfig   `mapstructure:"sources"`
	Templates []TemplateConfig `mapstructure:"templates"`
	Pages     []PageConfig     `mapstructure:"pages"`
	NotFound  PageConfig       `mapstructure:"notFound"`
	Publish   PublishConfig    `mapstructure:"publish"`
	Routes    RoutesConfig     `mapstructure:"routes"`

	Transformers TransformersConfig `mapstructure:"transformers"`
}

// SourceConfig declares one content source: a glob bound to a collection.
type SourceConfig struct {
	TypeName string      `mapstructure:"typeName"`
	Path     string      `mapstructure:"path"`
	Refs     []RefConfig `mapstructure:"refs"`
}

// RefConfig links a front matter field to entries of another collection.
type RefConfig struct {
	Field    string `mapstructure:"field"`
	TypeName string `mapstructure:"typeName"`
	Create   bool   `mapstructure:"create"`
}

// TemplateConfig binds a collection to a URL path template such as "/:title".
type TemplateConfig struct {
	TypeName string `mapstructure:"typeName"`
	Path     string `mapstructure:"path"`
	Page     string `mapstructure:"page"` // page unit rendering the entries (default TypeName)
}

// PageConfig declares a fixed route that is not derived from entries.
type PageConfig struct {
	Path string `mapstructure:"path"`
	Name string `mapstructure:"name"`
	Page string `mapstructure:"page"`
}

// PublishConfig names the collection and boolean field the publish filter uses.
type PublishConfig struct {
	Collection string `mapstructure:"collection"` // default "Post"
	Field      string `mapstructure:"field"`      // default "published"
}

// RoutesConfig tunes route table derivation.
type RoutesConfig struct {
	// AllowShadowing downgrades duplicate route paths from a build error to a
	// warning; the last registered route wins.
	AllowShadowing bool `mapstructure:"allowShadowing"`
}

// TransformersConfig is handed to the markdown renderer untouched.
type TransformersConfig struct {
	Markdown MarkdownConfig `mapstructure:"markdown"`
}

// MarkdownConfig configures the markdown renderer.
type MarkdownConfig struct {
	ExternalLinksTarget string         `mapstructure:"externalLinksTarget"`
	ExternalLinksRel    []string       `mapstructure:"externalLinksRel"`
	Extensions          []string       `mapstructure:"extensions"`
	Plugins             []PluginConfig `mapstructure:"plugins"`
}

// PluginConfig is an opaque renderer plugin declaration.
type PluginConfig struct {
	Name    string         `mapstructure:"name"`
	Options map[string]any `mapstructure:"options"`
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Mode == "" {
		c.Mode = ModeDevelopment
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.ContentDir == "" {
		c.ContentDir = "."
	}
	if c.OutputDir == "" {
		c.OutputDir = ".pubgarden"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = c.OutputDir + "/site.db"
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.Publish.Collection == "" {
		c.Publish.Collection = "Post"
	}
	if c.Publish.Field == "" {
		c.Publish.Field = "published"
	}
	if c.NotFound.Path == "" {
		c.NotFound.Path = "/404"
	}
	if c.NotFound.Name == "" {
		c.NotFound.Name = "404"
	}
	if c.NotFound.Page == "" {
		c.NotFound.Page = "NotFound"
	}
	for i := range c.Templates {
		if c.Templates[i].Page == "" {
			c.Templates[i].Page = c.Templates[i].TypeName
		}
	}
	for i := range c.Pages {
		if c.Pages[i].Page == "" {
			c.Pages[i].Page = c.Pages[i].Name
		}
	}
}

// Validate checks the configuration for declarations that can never build.
// Unknown reference targets are reported by NewRegistry.
func (c SiteConfig) Validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	seen := make(map[string]struct{})
	for _, s := range c.Sources {
		if strings.TrimSpace(s.TypeName) == "" {
			return fmt.Errorf("pubgarden: source %q has no typeName", s.Path)
		}
		if strings.TrimSpace(s.Path) == "" {
			return fmt.Errorf("pubgarden: source %s has no path", s.TypeName)
		}
		seen[s.TypeName] = struct{}{}
		for _, r := range s.Refs {
			if r.Field == "" || r.TypeName == "" {
				return fmt.Errorf("pubgarden: source %s has a reference without field or typeName", s.TypeName)
			}
		}
	}
	for _, t := range c.Templates {
		if !strings.HasPrefix(t.Path, "/") {
			return fmt.Errorf("pubgarden: template for %s must start with '/': %q", t.TypeName, t.Path)
		}
	}
	for _, p := range c.Pages {
		if !strings.HasPrefix(p.Path, "/") {
			return fmt.Errorf("pubgarden: page %q must start with '/'", p.Path)
		}
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithViews replaces the page components used to render routes.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.Views = v
	}
}

// WithLogger sets the logger used by the build pipeline and server.
func WithLogger(l Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// LoadConfig reads the site configuration from path (or pubgarden.yaml in the
// working directory when path is empty), overlays PUBGARDEN_* environment
// variables and any changed flags, and applies defaults.
func LoadConfig(path string, flags *pflag.FlagSet) (SiteConfig, error) {
	v := viper.New()

	v.SetDefault("mode", string(ModeDevelopment))

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("pubgarden")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PUBGARDEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return SiteConfig{}, fmt.Errorf("pubgarden: bind flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return SiteConfig{}, fmt.Errorf("pubgarden: read config: %w", err)
		}
	}

	var cfg SiteConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return SiteConfig{}, fmt.Errorf("pubgarden: decode config: %w", err)
	}
	mode, err := ParseMode(string(cfg.Mode))
	if err != nil {
		return SiteConfig{}, err
	}
	cfg.Mode = mode
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return SiteConfig{}, err
	}
	return cfg, nil
}
