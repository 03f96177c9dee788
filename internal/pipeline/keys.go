package pipeline

import (
	"fmt"
	"path"
	"strings"

	"github.com/ligustah/fontpack/internal/catalog"
	"github.com/ligustah/fontpack/internal/downloader"
)

// ArchiveKey returns the key of the archive built for a request. The subset
// component comes from the first variant, or from subsets when there are no
// variants.
func ArchiveKey(fontID, version string, variants []catalog.Variant, subsets []string) string {
	if len(variants) > 0 {
		subsets = variants[0].Subsets
	}
	return fmt.Sprintf("%s-%s-%s.zip", fontID, version, strings.Join(subsets, "_"))
}

// EntryKey returns the key of the intermediate file for one (variant, format)
// pair. Its base name is also the entry name inside the archive.
func EntryKey(fontID, version string, subsets []string, variantID, format string) string {
	return fmt.Sprintf("%s-%s-%s-%s.%s", fontID, version, strings.Join(subsets, "_"), variantID, format)
}

// ArchivePath returns the cache key a run stores the archive for req under.
func ArchivePath(prefix string, req catalog.Request) string {
	return withPrefix(prefix, ArchiveKey(req.FontID, req.Version, req.Variants, req.Subsets))
}

// withPrefix places key under the cache prefix.
func withPrefix(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}

// IntermediateKey returns the key of the intermediate file for the archive
// entry name. Intermediates are stored next to the archive.
func IntermediateKey(archiveKey, name string) string {
	dir := path.Dir(archiveKey)
	if dir == "." {
		return name
	}
	return path.Join(dir, name)
}

// Jobs flattens a request into one fetch job per (variant, source) pair, in
// request order.
func Jobs(req catalog.Request, prefix string) []downloader.Job {
	jobs := make([]downloader.Job, 0, req.Jobs())
	for _, v := range req.Variants {
		for _, src := range v.Sources {
			jobs = append(jobs, downloader.Job{
				Variant: v.ID,
				Format:  src.Format,
				URL:     src.URL,
				Key:     withPrefix(prefix, EntryKey(req.FontID, req.Version, req.Subsets, v.ID, src.Format)),
			})
		}
	}
	return jobs
}
