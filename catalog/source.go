package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// DataSource produces the current catalog on demand.
//
// Implementations must not cache: every call performs the underlying read.
// Failures wrap ErrIO or ErrFormat.
type DataSource interface {
	FetchCatalog(ctx context.Context) (Catalog, error)
}

// SourceFunc adapts a function to the DataSource interface.
type SourceFunc func(ctx context.Context) (Catalog, error)

func (f SourceFunc) FetchCatalog(ctx context.Context) (Catalog, error) {
	return f(ctx)
}

//go:embed fixture/products.json
var fixture []byte

// FixtureSource reads the built-in product fixture.
type FixtureSource struct{}

// FetchCatalog decodes the fixture again on each call, so callers never share a slice.
func (FixtureSource) FetchCatalog(ctx context.Context) (Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return Unmarshal(fixture)
}

// FixtureBytes returns a copy of the raw fixture document.
func FixtureBytes() []byte {
	return bytes.Clone(fixture)
}

// FileSource reads a JSON catalog from disk on every call.
type FileSource struct {
	Path string
}

func (f FileSource) FetchCatalog(ctx context.Context) (Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return Unmarshal(b)
}

// ProductsPath is the path of the products endpoint relative to an origin.
const ProductsPath = "/api/products"

// HTTPSource reads the catalog from a products endpoint.
// Timeouts are whatever the client is configured with.
type HTTPSource struct {
	// Origin base URL, e.g. http://localhost:8080
	BaseURL string
	// Client to use. http.DefaultClient is used if nil.
	Client *http.Client
}

// NewHTTPSource returns a source for the given origin with a client timeout.
// A zero timeout means no timeout.
func NewHTTPSource(baseURL string, timeout time.Duration) HTTPSource {
	return HTTPSource{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (h HTTPSource) FetchCatalog(ctx context.Context) (Catalog, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	uri := strings.TrimRight(h.BaseURL, "/") + ProductsPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	req.Header.Set("Accept", "application/json")
	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s responded %d", ErrIO, uri, res.StatusCode)
	}
	env, err := DecodeEnvelope(res.Body)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}
