// Package config loads the flat key-value configuration assetwatch is
// started with: tracked extensions, texture aliases, the handler table, and
// the watcher's boolean behavior flags.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// HandlerKind names one of the two closed format-handler variants.
type HandlerKind string

const (
	HandlerAttribute     HandlerKind = "attribute"
	HandlerStringLiteral HandlerKind = "stringliteral"
)

// Config is an immutable snapshot of startup configuration. Callers pass it
// by reference to constructors; nothing here is mutated after Load returns.
type Config struct {
	// Textures lists extensions treated as interchangeable texture aliases.
	Textures []string `yaml:"textures"`
	// Tracked lists extensions whose rename triggers RenameAsset.
	Tracked []string `yaml:"tracked"`
	// Handlers maps a container extension to the handler kind that parses it.
	Handlers map[string]HandlerKind `yaml:"handlers"`

	MatchAnyTextureExtension bool `yaml:"match_any_texture_extension"`
	AllowExtChange           bool `yaml:"allow_ext_change"`
	AllowDirChange           bool `yaml:"allow_dir_change"`
	DryRun                   bool `yaml:"dry_run"`
}

// Default mirrors original_source's AppConfig constants: the texture and
// tracked-extension sets a CryEngine-style asset project ships with, and the
// closed container-extension-to-handler-kind table from spec.md §4.1.
func Default() *Config {
	return &Config{
		Textures: []string{
			".dds", ".tif", ".tiff", ".png", ".jpg", ".jpeg",
			".tga", ".bmp", ".gif", ".hdr", ".exr", ".gfx",
		},
		Tracked: []string{
			".dds", ".tif", ".png", ".jpg", ".jpeg", ".tga", ".bmp", ".gif", ".hdr",
			".mtl", ".xml", ".lay", ".lyr", ".cdf", ".lua",
			".cgf", ".chr", ".cga", ".skin", ".adb",
		},
		Handlers: map[string]HandlerKind{
			".mtl": HandlerAttribute,
			".xml": HandlerAttribute,
			".lay": HandlerAttribute,
			".lyr": HandlerAttribute,
			".cdf": HandlerAttribute,
			".lua": HandlerStringLiteral,
		},
		MatchAnyTextureExtension: true,
		AllowExtChange:           true,
		AllowDirChange:           true,
		DryRun:                   false,
	}
}

// Load reads a YAML config file at path, falling back to Default() when the
// file does not exist. It never hot-reloads; callers hold the returned value
// for the life of the process, mirroring the teacher's load-once-at-startup
// approach to the CLI's own config directory.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	// yaml.v3 decodes a mapping into an existing map by adding keys, so the
	// default table is set aside first: a handlers key in the file replaces
	// the table, as textures/tracked replace their lists.
	defaultHandlers := cfg.Handlers
	cfg.Handlers = nil
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, err
	}
	if cfg.Handlers == nil {
		cfg.Handlers = defaultHandlers
	}
	return cfg, nil
}

// ContainerExtensions returns the closed set of extensions the handler table
// recognizes, i.e. the keys of Handlers.
func (c *Config) ContainerExtensions() []string {
	exts := make([]string, 0, len(c.Handlers))
	for ext := range c.Handlers {
		exts = append(exts, ext)
	}
	return exts
}

// IsTexture reports whether ext (including the leading dot) is in Textures.
func (c *Config) IsTexture(ext string) bool {
	return contains(c.Textures, ext)
}

// IsTracked reports whether ext (including the leading dot) is in Tracked.
func (c *Config) IsTracked(ext string) bool {
	return contains(c.Tracked, ext)
}

// IsContainer reports whether ext has a registered handler kind.
func (c *Config) IsContainer(ext string) bool {
	_, ok := c.Handlers[ext]
	return ok
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
