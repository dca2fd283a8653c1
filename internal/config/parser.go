package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	pberrors "github.com/alexisbeaulieu97/postbuild/pkg/errors"
)

// Format identifies the syntax of a configuration document.
type Format string

const (
	// FormatYAML selects YAML decoding.
	FormatYAML Format = "yaml"
	// FormatTOML selects TOML decoding.
	FormatTOML Format = "toml"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// FormatFor picks the document format from the file extension, defaulting to YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// ParseConfig loads a configuration file from disk, validates it, and returns the resulting model.
func ParseConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pberrors.NewParseError(path, 0, err)
	}
	return Parse(data, FormatFor(path), path)
}

// Parse decodes and validates data. path is only used in error messages.
func Parse(data []byte, format Format, path string) (*Config, error) {
	var cfg Config

	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, pberrors.NewParseError(path, tomlLine(err), err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, pberrors.NewParseError(path, extractLine(err), err)
		}
	default:
		return nil, pberrors.NewParseError(path, 0, fmt.Errorf("unsupported format %q", format))
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func tomlLine(err error) int {
	var decodeErr *toml.DecodeError
	if errors.As(err, &decodeErr) {
		row, _ := decodeErr.Position()
		return row
	}
	return 0
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	_, scanErr := fmt.Sscanf(matches[1], "%d", &line)
	if scanErr != nil {
		return 0
	}

	return line
}
