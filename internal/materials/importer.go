package materials

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"ari/internal/logging"
)

// ImporterConfig holds import configuration.
type ImporterConfig struct {
	MaxConcurrency  int           // parallel source imports, default 4
	MaxContentBytes int64         // per-document fetch cap, default 2 MiB
	FetchTimeout    time.Duration // per-request timeout, default 30s
	Chunker         ChunkerConfig
}

// SourceReport describes the outcome of importing one source.
type SourceReport struct {
	Source string
	Title  string
	Chunks int
	Err    error
}

// Importer pulls documents from URLs, files, or pasted text into the library.
type Importer struct {
	library    Library
	embedder   Embedder
	chunker    *Chunker
	httpClient *http.Client
	config     ImporterConfig
	logger     logging.Logger
}

// embedIngestBatch bounds how many chunks go to the embedder per call.
const embedIngestBatch = 50

// NewImporter creates an importer writing into the given library.
func NewImporter(library Library, embedder Embedder, config ImporterConfig) *Importer {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.MaxContentBytes <= 0 {
		config.MaxContentBytes = 2 * 1024 * 1024
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = 30 * time.Second
	}

	return &Importer{
		library:  library,
		embedder: embedder,
		chunker:  NewChunker(config.Chunker),
		httpClient: &http.Client{
			Timeout: config.FetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				return nil
			},
		},
		config: config,
		logger: logging.NewComponentLogger("MaterialsImporter"),
	}
}

// Import ingests a single source, which is either an http(s) URL or a local
// file path. Re-importing a source replaces its previous chunks.
func (imp *Importer) Import(ctx context.Context, source string) (SourceReport, error) {
	report := SourceReport{Source: source}

	var title, text string
	var err error
	if isURL(source) {
		title, text, err = imp.fetchURL(ctx, source)
	} else {
		title, text, err = imp.readFile(source)
	}
	if err != nil {
		report.Err = err
		return report, err
	}

	report.Title = title
	report.Chunks, err = imp.ingest(ctx, source, title, text)
	if err != nil {
		report.Err = err
		return report, err
	}

	imp.logger.Info("Imported %s: %d chunks", source, report.Chunks)
	return report, nil
}

// ImportAll ingests sources concurrently, at most MaxConcurrency at a time.
// Per-source failures land in the returned reports; the error return is
// reserved for context cancellation.
func (imp *Importer) ImportAll(ctx context.Context, sources []string) ([]SourceReport, error) {
	if len(sources) == 0 {
		return nil, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(imp.config.MaxConcurrency)

	reports := make([]SourceReport, len(sources))
	for i, source := range sources {
		g.Go(func() error {
			report, err := imp.Import(gctx, source)
			if err != nil {
				imp.logger.Warn("Import %s failed: %v", source, err)
			}
			reports[i] = report
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, nil
}

// ImportText ingests pasted text under a synthetic source tag.
func (imp *Importer) ImportText(ctx context.Context, title, text string) (SourceReport, error) {
	source := "paste:" + contentKey(text)
	report := SourceReport{Source: source, Title: title}

	chunks, err := imp.ingest(ctx, source, title, text)
	if err != nil {
		report.Err = err
		return report, err
	}

	report.Chunks = chunks
	imp.logger.Info("Imported pasted text %s: %d chunks", source, chunks)
	return report, nil
}

// ingest replaces the source's chunks with freshly embedded ones.
func (imp *Importer) ingest(ctx context.Context, source, title, text string) (int, error) {
	chunks := imp.chunker.Split(text)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no text content in %s", source)
	}

	if err := imp.library.DeleteBySource(ctx, source); err != nil {
		return 0, fmt.Errorf("replace source %s: %w", source, err)
	}

	key := contentKey(source)
	for start := 0; start < len(chunks); start += embedIngestBatch {
		end := start + embedIngestBatch
		if end > len(chunks) {
			end = len(chunks)
		}

		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		embeddings, err := imp.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed batch: %w", err)
		}

		items := make([]Material, len(batch))
		for i, chunk := range batch {
			items[i] = Material{
				ID:        fmt.Sprintf("%s-%04d", key, chunk.Index),
				Source:    source,
				Title:     title,
				Content:   chunk.Text,
				Embedding: embeddings[i],
				Metadata:  map[string]string{"chunk": strconv.Itoa(chunk.Index)},
			}
		}

		if err := imp.library.Add(ctx, items); err != nil {
			return 0, fmt.Errorf("store batch: %w", err)
		}
	}

	return len(chunks), nil
}

// fetchURL downloads a page and reduces it to clean text.
func (imp *Importer) fetchURL(ctx context.Context, rawURL string) (string, string, error) {
	parsed, err := neturl.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", "", fmt.Errorf("invalid scheme: %s", parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Ari/1.0 (Materials Importer)")

	resp, err := imp.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("HTTP request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, imp.config.MaxContentBytes))
	if err != nil {
		return "", "", fmt.Errorf("read response: %w", err)
	}

	if isHTML(resp.Header.Get("Content-Type"), body) {
		return extractHTML(string(body))
	}

	title := strings.TrimSuffix(filepath.Base(parsed.Path), filepath.Ext(parsed.Path))
	if title == "" || title == "." || title == "/" {
		title = parsed.Host
	}
	return title, string(body), nil
}

// readFile loads a local document. HTML files go through the same extraction
// as fetched pages.
func (imp *Importer) readFile(path string) (string, string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".html" || ext == ".htm" {
		title, text, err := extractHTML(string(content))
		if err != nil {
			return "", "", err
		}
		if title == "" {
			title = filepath.Base(path)
		}
		return title, text, nil
	}

	return filepath.Base(path), string(content), nil
}

// extractHTML converts HTML to markdown-like text in document order.
func extractHTML(html string) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("parse HTML: %w", err)
	}

	// Remove noise elements
	doc.Find("script, style, nav, footer, header, aside, iframe").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())

	var content strings.Builder
	doc.Find("h1, h2, h3, h4, h5, h6, p, li, pre, blockquote").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}

		switch name := goquery.NodeName(s); name {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			level := int(name[1] - '0')
			content.WriteString(strings.Repeat("#", level) + " " + text + "\n\n")
		case "li":
			content.WriteString("- " + text + "\n")
		default:
			content.WriteString(text + "\n\n")
		}
	})

	return title, content.String(), nil
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func isHTML(contentType string, body []byte) bool {
	if strings.Contains(contentType, "text/html") {
		return true
	}
	if contentType != "" && !strings.Contains(contentType, "octet-stream") {
		return false
	}

	head := strings.ToLower(string(body[:min(len(body), 512)]))
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}

func contentKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", sum[:6])
}
