package index

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/Aman-CERP/docsearch/internal/extract"
	"github.com/Aman-CERP/docsearch/internal/scanner"
	"github.com/Aman-CERP/docsearch/internal/section"
)

// Inserter receives the sections of each crawled page.
type Inserter interface {
	InsertBatch(sections []section.Section) error
}

// Progress is called after each page is extracted.
type Progress func(page scanner.FileInfo, sections int)

// CrawlResult summarizes a crawl.
type CrawlResult struct {
	Pages    int
	Sections int
	// Digest identifies the extracted corpus. Two crawls producing the same
	// sections in the same order share a digest.
	Digest string
}

// Crawl extracts every page the scanner yields and inserts its sections into
// dst, in scan order. The first scan, extraction or insert error aborts the
// crawl and is returned unchanged.
func Crawl(ctx context.Context, s *scanner.Scanner, opts *scanner.ScanOptions, ext *extract.Extractor, dst Inserter, progress Progress) (CrawlResult, error) {
	results, err := s.Scan(ctx, opts)
	if err != nil {
		return CrawlResult{}, err
	}
	// Drain on early return so the scanner goroutine can exit.
	defer func() {
		for range results {
		}
	}()

	digest := xxhash.New()
	var res CrawlResult

	for r := range results {
		if r.Error != nil {
			return CrawlResult{}, r.Error
		}
		if err := ctx.Err(); err != nil {
			return CrawlResult{}, err
		}

		sections, err := ext.ExtractFile(r.File.AbsPath)
		if err != nil {
			return CrawlResult{}, err
		}
		if err := dst.InsertBatch(sections); err != nil {
			return CrawlResult{}, fmt.Errorf("failed to index %s: %w", r.File.Path, err)
		}

		for _, sec := range sections {
			writeSection(digest, sec)
		}
		res.Pages++
		res.Sections += len(sections)
		if progress != nil {
			progress(*r.File, len(sections))
		}
	}

	if err := ctx.Err(); err != nil {
		return CrawlResult{}, err
	}

	res.Digest = fmt.Sprintf("%016x", digest.Sum64())
	return res, nil
}

// writeSection feeds every field of sec to d, NUL-terminated so field
// boundaries are unambiguous.
func writeSection(d *xxhash.Digest, sec section.Section) {
	for _, field := range []string{sec.Title, sec.Slug, sec.URL, sec.Content, sec.Code} {
		_, _ = d.WriteString(field)
		_, _ = d.Write([]byte{0})
	}
}
