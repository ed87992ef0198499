// Package importer turns a directory of markdown files into posts.
package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	apperrors "maiblog/internal/errors"
	"maiblog/internal/service"
)

const excerptLimit = 180

var (
	nonSlugChars = regexp.MustCompile(`[^a-zA-Z0-9]+`)
	markdownLink = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	markupChars  = regexp.MustCompile("[#>*`_]")
)

// Parsed is the metadata derived from one markdown file.
type Parsed struct {
	Slug    string
	Title   string
	Excerpt string
}

// Result counts what an import did.
type Result struct {
	Created int
	Skipped int
}

// Slugify lowercases name and collapses runs of non-alphanumerics into "-".
func Slugify(name string) string {
	slug := strings.ToLower(strings.Trim(nonSlugChars.ReplaceAllString(name, "-"), "-"))
	if slug == "" {
		return "post"
	}
	return slug
}

// Excerpt returns the first non-empty paragraph with links and markup stripped.
func Excerpt(body string) string {
	for _, paragraph := range strings.Split(body, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		paragraph = markdownLink.ReplaceAllString(paragraph, "$1")
		paragraph = strings.TrimSpace(markupChars.ReplaceAllString(paragraph, ""))

		runes := []rune(paragraph)
		if len(runes) > excerptLimit {
			return string(runes[:excerptLimit]) + "..."
		}
		return paragraph
	}
	return ""
}

// Parse derives slug, title and excerpt from a file name and its contents.
// The title is the first "# " heading, falling back to the file name.
func Parse(filename, raw string) Parsed {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	title := strings.TrimSpace(strings.ReplaceAll(stem, "_", " "))

	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	bodyStart := 0
	for i, line := range lines {
		if strings.HasPrefix(line, "# ") {
			title = strings.TrimSpace(strings.TrimLeft(line, "# "))
			bodyStart = i + 1
			break
		}
	}

	body := strings.TrimSpace(strings.Join(lines[bodyStart:], "\n"))
	if body == "" {
		body = strings.TrimSpace(raw)
	}
	if title == "" {
		title = stem
	}

	return Parsed{
		Slug:    Slugify(stem),
		Title:   title,
		Excerpt: Excerpt(body),
	}
}

// Importer creates posts from markdown files. Existing slugs are left untouched.
type Importer struct {
	posts  service.PostService
	logger *zap.Logger
}

// New creates an Importer.
func New(posts service.PostService, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{posts: posts, logger: logger}
}

// ImportDir imports every *.md file directly inside dir, in name order. The extension match is
// case-sensitive. Blank files are skipped since a post needs a body to read.
func (im *Importer) ImportDir(ctx context.Context, dir, visibility string) (Result, error) {
	var result Result

	entries, err := os.ReadDir(dir)
	if err != nil {
		return result, fmt.Errorf("read dir %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".md" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return result, fmt.Errorf("read %s: %w", name, err)
		}
		if strings.TrimSpace(string(raw)) == "" {
			im.logger.Warn("skip empty file", zap.String("file", name))
			result.Skipped++
			continue
		}

		parsed := Parse(name, string(raw))
		in := service.PostInput{
			Title:       parsed.Title,
			ContentPath: parsed.Slug + ".md",
			Content:     string(raw),
			Tags:        []string{},
			Slug:        &parsed.Slug,
			Visibility:  visibility,
		}
		if parsed.Excerpt != "" {
			excerpt := parsed.Excerpt
			in.Excerpt = &excerpt
		}

		post, err := im.posts.Create(ctx, in)
		if err != nil {
			if errors.Is(err, apperrors.ErrSlugTaken) {
				im.logger.Info("skip existing slug", zap.String("file", name), zap.String("slug", parsed.Slug))
				result.Skipped++
				continue
			}
			return result, fmt.Errorf("import %s: %w", name, err)
		}

		im.logger.Info("created post", zap.String("file", name), zap.Uint("id", post.ID), zap.String("title", post.Title))
		result.Created++
	}
	return result, nil
}
