package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	// ErrIO means the underlying read channel was unavailable.
	ErrIO = errors.New("catalog source unavailable")
	// ErrFormat means the payload could not be interpreted as a catalog.
	ErrFormat = errors.New("catalog payload malformed")
)

// Product is a single catalog entry.
// Price is in the minor currency unit.
type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       int64  `json:"price"`
	Stock       int64  `json:"stock"`
}

// Catalog is the product listing in source order.
// Id uniqueness is up to the source and is not checked.
type Catalog []Product

// Validate checks the constraints a fetched catalog must satisfy.
func (c Catalog) Validate() error {
	for i, p := range c {
		if p.Price < 0 {
			return fmt.Errorf("%w: product %d (index %d) has negative price %d", ErrFormat, p.ID, i, p.Price)
		}
		if p.Stock < 0 {
			return fmt.Errorf("%w: product %d (index %d) has negative stock %d", ErrFormat, p.ID, i, p.Stock)
		}
	}
	return nil
}

// Decode reads a JSON array of products.
// Read failures wrap ErrIO, anything that is not a valid catalog wraps ErrFormat.
func Decode(r io.Reader) (Catalog, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return Unmarshal(b)
}

// Unmarshal parses and validates a JSON array of products.
func Unmarshal(b []byte) (Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	// "null" decodes into a nil slice without error
	if c == nil {
		return nil, fmt.Errorf("%w: not a product list", ErrFormat)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Envelope is the body of the products endpoint.
type Envelope struct {
	Success   bool      `json:"success"`
	Data      Catalog   `json:"data"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// DecodeEnvelope reads an Envelope and returns its catalog.
// An envelope reporting failure is a format error, since it carries no catalog.
func DecodeEnvelope(r io.Reader) (Envelope, error) {
	var env Envelope
	b, err := io.ReadAll(r)
	if err != nil {
		return env, fmt.Errorf("%w: %w", ErrIO, err)
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return env, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	if !env.Success {
		return env, fmt.Errorf("%w: endpoint reported failure: %s", ErrFormat, env.Error)
	}
	if env.Data == nil {
		return env, fmt.Errorf("%w: envelope without data", ErrFormat)
	}
	if err := env.Data.Validate(); err != nil {
		return env, err
	}
	return env, nil
}
