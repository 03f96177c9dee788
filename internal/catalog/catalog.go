package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source is one candidate location of a variant in a given format.
type Source struct {
	URL    string `yaml:"url" json:"url"`
	Format string `yaml:"format" json:"format"`
}

// Variant is one stylistic rendering of a font, such as "regular" or "700italic".
type Variant struct {
	ID      string   `yaml:"id" json:"id"`
	Subsets []string `yaml:"subsets" json:"subsets"`
	Sources []Source `yaml:"urls" json:"urls"`
}

// Request describes everything needed to build one font archive. It is
// produced by catalog resolution and never modified afterwards.
type Request struct {
	FontID   string    `yaml:"font_id" json:"font_id"`
	Version  string    `yaml:"version" json:"version"`
	Subsets  []string  `yaml:"subsets" json:"subsets"`
	Variants []Variant `yaml:"variants" json:"variants"`
}

// Jobs returns the number of (variant, source) pairs in the request.
func (r Request) Jobs() int {
	n := 0
	for _, v := range r.Variants {
		n += len(v.Sources)
	}
	return n
}

// Validate checks the request for values that would produce ambiguous or
// unsafe cache keys. URLs are not checked here: a bad URL only drops its own
// entry when fetched.
func (r Request) Validate() error {
	if err := checkToken("font_id", r.FontID); err != nil {
		return err
	}
	if err := checkToken("version", r.Version); err != nil {
		return err
	}
	for _, s := range r.Subsets {
		if err := checkToken("subset", s); err != nil {
			return err
		}
	}

	seen := make(map[string]bool, len(r.Variants))
	for _, v := range r.Variants {
		if err := checkToken("variant id", v.ID); err != nil {
			return err
		}
		if seen[v.ID] {
			return fmt.Errorf("catalog: duplicate variant %q", v.ID)
		}
		seen[v.ID] = true

		for _, s := range v.Subsets {
			if err := checkToken("subset", s); err != nil {
				return err
			}
		}

		formats := make(map[string]bool, len(v.Sources))
		for _, src := range v.Sources {
			if err := checkToken("format", src.Format); err != nil {
				return fmt.Errorf("variant %s: %w", v.ID, err)
			}
			// The format is the key's extension; a dot in it would let two
			// (variant, format) pairs share one entry name.
			if strings.Contains(src.Format, ".") {
				return fmt.Errorf("catalog: variant %s: format %q must not contain '.'", v.ID, src.Format)
			}
			if formats[src.Format] {
				return fmt.Errorf("catalog: variant %s: duplicate format %q", v.ID, src.Format)
			}
			formats[src.Format] = true
		}
	}
	return nil
}

func checkToken(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("catalog: %s is required", field)
	}
	if strings.ContainsAny(v, `/\`) || v == "." || v == ".." {
		return fmt.Errorf("catalog: %s %q must not contain path separators", field, v)
	}
	return nil
}

// ErrUnknownFormat is returned by Load for files that are neither YAML nor JSON.
var ErrUnknownFormat = errors.New("catalog: request file must be .yaml, .yml or .json")

// Load reads a request from a YAML or JSON file and validates it.
func Load(path string) (Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Request{}, fmt.Errorf("read request file: %w", err)
	}

	var req Request
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &req)
	case ".json":
		err = json.Unmarshal(data, &req)
	default:
		return Request{}, ErrUnknownFormat
	}
	if err != nil {
		return Request{}, fmt.Errorf("parse request file: %w", err)
	}

	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}
