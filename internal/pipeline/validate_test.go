package pipeline

import (
	"context"
	"testing"

	"github.com/ligustah/fontpack/internal/cache"
	"github.com/ligustah/fontpack/internal/catalog"
	"github.com/ligustah/fontpack/internal/testutils"
)

// buildArchive stores a two-entry archive under the "fonts" prefix.
func buildArchive(t *testing.T) (*cache.Cache, *Result) {
	t.Helper()

	server := testutils.StartFontServer(t,
		testutils.TestFont{Path: "/regular.woff2", ContentType: "font/woff2", Data: testutils.GenerateFontData("wOF2", 16*1024)},
		testutils.TestFont{Path: "/regular.ttf", ContentType: "font/ttf", Data: testutils.GenerateFontData("ttf", 24*1024)},
	)
	c := testCache(t)

	req := robotoRequest(variant("regular",
		catalog.Source{URL: server.URL("/regular.woff2"), Format: "woff2"},
		catalog.Source{URL: server.URL("/regular.ttf"), Format: "ttf"},
	))
	result, err := New(testClient(), c, Options{Prefix: "fonts"}).Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return c, result
}

func overwrite(t *testing.T, c *cache.Cache, key string, data []byte) {
	t.Helper()
	w, err := c.Create(context.Background(), key)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	c, built := buildArchive(t)

	result, err := Validate(ctx, c, built.Path)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid, got errors: %v", result.Errors)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(result.Entries))
	}
	stored, err := c.Size(ctx, built.Path)
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if result.ArchiveSize != stored {
		t.Errorf("archive size %d, want %d", result.ArchiveSize, stored)
	}
	for _, e := range result.Entries {
		if e.Status != StatusOK {
			t.Errorf("%s: status %q", e.Name, e.Status)
		}
		if e.Key != "fonts/"+e.Name {
			t.Errorf("%s: key %q", e.Name, e.Key)
		}
	}
}

func TestValidateDetectsDamage(t *testing.T) {
	tests := []struct {
		name   string
		damage func(t *testing.T, c *cache.Cache, key string)
		status string
		count  func(*ValidationResult) int
	}{
		{
			name: "missing",
			damage: func(t *testing.T, c *cache.Cache, key string) {
				if err := c.Delete(context.Background(), key); err != nil {
					t.Fatalf("Delete: %v", err)
				}
			},
			status: StatusMissing,
			count:  func(r *ValidationResult) int { return r.MissingEntries },
		},
		{
			name: "size mismatch",
			damage: func(t *testing.T, c *cache.Cache, key string) {
				overwrite(t, c, key, []byte("short"))
			},
			status: StatusSizeMismatch,
			count:  func(r *ValidationResult) int { return r.SizeMismatches },
		},
		{
			name: "checksum mismatch",
			damage: func(t *testing.T, c *cache.Cache, key string) {
				overwrite(t, c, key, make([]byte, 16*1024))
			},
			status: StatusChecksumMismatch,
			count:  func(r *ValidationResult) int { return r.ChecksumMismatches },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, built := buildArchive(t)
			damaged := "fonts/roboto-v30-latin-regular.woff2"
			tt.damage(t, c, damaged)

			result, err := Validate(context.Background(), c, built.Path)
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if result.Valid {
				t.Fatal("expected invalid")
			}
			if tt.count(result) != 1 || len(result.Errors) != 1 {
				t.Errorf("expected exactly one problem, got %v", result.Errors)
			}
			for _, e := range result.Entries {
				want := StatusOK
				if e.Key == damaged {
					want = tt.status
				}
				if e.Status != want {
					t.Errorf("%s: status %q, want %q", e.Key, e.Status, want)
				}
			}
		})
	}
}

func TestValidateMissingArchive(t *testing.T) {
	_, err := Validate(context.Background(), testCache(t), "nope.zip")
	if err == nil || !cache.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestValidateNotAZip(t *testing.T) {
	c := testCache(t)
	overwrite(t, c, "broken.zip", []byte("not a zip"))

	if _, err := Validate(context.Background(), c, "broken.zip"); err == nil {
		t.Fatal("expected error for a non-zip archive")
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	c, built := buildArchive(t)

	// An already missing intermediate is not an error.
	if err := c.Delete(ctx, built.Entries[0].Path); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if err := Delete(ctx, c, built.Path); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	keys := []string{built.Path}
	for _, e := range built.Entries {
		keys = append(keys, e.Path)
	}
	for _, key := range keys {
		if exists, _ := c.Exists(ctx, key); exists {
			t.Errorf("%s still exists", key)
		}
	}

	if err := Delete(ctx, c, built.Path); err == nil {
		t.Error("expected error deleting a missing archive")
	}
}
