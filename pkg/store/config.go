package store

import (
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// propertyFileDecl is the on-disk shape NewStoreFromFile/NewStoreFromReader
// expect: a list (not a map) so declaration order survives the round trip
// through YAML/TOML, the same reason PropertyDecl/Properties are a slice
// in Go.
type propertyFileDecl struct {
	Name     string `yaml:"name" toml:"name"`
	Type     string `yaml:"type" toml:"type"`
	ReadOnly bool   `yaml:"readOnly" toml:"readOnly"`
	Computed string `yaml:"computed" toml:"computed"`
	Observer string `yaml:"observer" toml:"observer"`
}

type fileConfig struct {
	Properties []propertyFileDecl `yaml:"properties" toml:"properties"`
}

func (c fileConfig) toProperties() Properties {
	props := make(Properties, 0, len(c.Properties))
	for _, p := range c.Properties {
		props = append(props, PropertyDecl{
			Name: p.Name,
			PropertyConfig: PropertyConfig{
				Type:     p.Type,
				ReadOnly: p.ReadOnly,
				Computed: p.Computed,
				Observer: p.Observer,
			},
		})
	}
	return props
}

// NewStoreFromReader loads a property declaration from r in the given
// format ("yaml" or "toml") and constructs a Store from it. This is an
// additional entry point alongside spec.md §6's in-code configuration
// object, not a replacement for it.
func NewStoreFromReader(r io.Reader, format string, methods Methods, opts ...Option) (*Store, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var cfg fileConfig
	switch strings.ToLower(format) {
	case "toml":
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return nil, NewValidationError("invalid TOML property declaration: " + err.Error())
		}
	default:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, NewValidationError("invalid YAML property declaration: " + err.Error())
		}
	}

	return NewStore(cfg.toProperties(), methods, opts...)
}

// NewStoreFromFile loads a property declaration from path, picking the
// format from its extension (.toml selects TOML; anything else, YAML).
func NewStoreFromFile(path string, methods Methods, opts ...Option) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	format := "yaml"
	if strings.EqualFold(fileExt(path), "toml") {
		format = "toml"
	}
	return NewStoreFromReader(f, format, methods, opts...)
}

func fileExt(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return ""
	}
	return path[i+1:]
}
