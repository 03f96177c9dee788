package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

const requestYAML = `
font_id: roboto
version: v30
subsets: [latin, latin-ext]
variants:
  - id: regular
    subsets: [latin, latin-ext]
    urls:
      - url: https://fonts.example/roboto-regular.woff2
        format: woff2
      - url: https://fonts.example/roboto-regular.ttf
        format: ttf
  - id: 700italic
    subsets: [latin, latin-ext]
    urls:
      - url: https://fonts.example/roboto-700italic.woff2
        format: woff2
`

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "request.yaml")
	if err := os.WriteFile(path, []byte(requestYAML), 0644); err != nil {
		t.Fatalf("write request file: %v", err)
	}

	req, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if req.FontID != "roboto" || req.Version != "v30" {
		t.Errorf("unexpected font %s %s", req.FontID, req.Version)
	}
	if len(req.Subsets) != 2 || req.Subsets[1] != "latin-ext" {
		t.Errorf("unexpected subsets %v", req.Subsets)
	}
	if len(req.Variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(req.Variants))
	}
	if req.Variants[0].Sources[1].Format != "ttf" {
		t.Errorf("expected second source ttf, got %s", req.Variants[0].Sources[1].Format)
	}
	if req.Jobs() != 3 {
		t.Errorf("expected 3 jobs, got %d", req.Jobs())
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "request.json")
	data := `{"font_id":"lato","version":"v24","subsets":["latin"],
"variants":[{"id":"regular","subsets":["latin"],"urls":[{"url":"https://fonts.example/lato.woff","format":"woff"}]}]}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write request file: %v", err)
	}

	req, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if req.Variants[0].Sources[0].URL != "https://fonts.example/lato.woff" {
		t.Errorf("unexpected url %s", req.Variants[0].Sources[0].URL)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	txt := filepath.Join(dir, "request.txt")
	os.WriteFile(txt, []byte("font_id: x"), 0644)
	if _, err := Load(txt); err != ErrUnknownFormat {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("variants: [unclosed"), 0644)
	if _, err := Load(bad); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Request {
		return Request{
			FontID:  "roboto",
			Version: "v30",
			Subsets: []string{"latin"},
			Variants: []Variant{{
				ID:      "regular",
				Subsets: []string{"latin"},
				Sources: []Source{{URL: "https://fonts.example/a.woff2", Format: "woff2"}},
			}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(r *Request)
		wantErr bool
	}{
		{"valid", func(r *Request) {}, false},
		{"no variants", func(r *Request) { r.Variants = nil }, false},
		{"bad url is not a request error", func(r *Request) { r.Variants[0].Sources[0].URL = "::" }, false},
		{"missing font id", func(r *Request) { r.FontID = "" }, true},
		{"missing version", func(r *Request) { r.Version = " " }, true},
		{"slash in font id", func(r *Request) { r.FontID = "../etc" }, true},
		{"empty subset", func(r *Request) { r.Subsets = []string{""} }, true},
		{"missing variant id", func(r *Request) { r.Variants[0].ID = "" }, true},
		{"duplicate variant", func(r *Request) { r.Variants = append(r.Variants, r.Variants[0]) }, true},
		{"missing format", func(r *Request) { r.Variants[0].Sources[0].Format = "" }, true},
		{"dot in format", func(r *Request) { r.Variants[0].Sources[0].Format = "woff.2" }, true},
		{"dotted variant id", func(r *Request) { r.Variants[0].ID = "700.italic" }, false},
		{"entry names would collide", func(r *Request) {
			r.Variants = []Variant{
				{ID: "x", Sources: []Source{{URL: "https://fonts.example/1", Format: "y.z"}}},
				{ID: "x.y", Sources: []Source{{URL: "https://fonts.example/2", Format: "z"}}},
			}
		}, true},
		{"duplicate format", func(r *Request) {
			r.Variants[0].Sources = append(r.Variants[0].Sources, r.Variants[0].Sources[0])
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(&r)
			err := r.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
