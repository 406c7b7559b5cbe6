package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFixtureDecodes(t *testing.T) {
	c, err := FixtureSource{}.FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, c, 6)
	require.Equal(t, int64(1), c[0].ID)
	require.Equal(t, "Laptop ASUS ROG", c[0].Name)
}

func TestFixtureReturnsFreshSlices(t *testing.T) {
	a, err := FixtureSource{}.FetchCatalog(context.Background())
	require.NoError(t, err)
	b, err := FixtureSource{}.FetchCatalog(context.Background())
	require.NoError(t, err)
	a[0].Name = "changed"
	require.Equal(t, "Laptop ASUS ROG", b[0].Name)
}

func TestUnmarshalFormatErrors(t *testing.T) {
	cases := map[string]string{
		"not json":       `{{`,
		"object":         `{"id": 1}`,
		"null":           `null`,
		"negative price": `[{"id":1,"price":-1,"stock":1}]`,
		"negative stock": `[{"id":1,"price":1,"stock":-3}]`,
		"string price":   `[{"id":1,"price":"12"}]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal([]byte(doc))
			require.ErrorIs(t, err, ErrFormat)
			require.NotErrorIs(t, err, ErrIO)
		})
	}
}

func TestUnmarshalKeepsSourceOrder(t *testing.T) {
	c, err := Unmarshal([]byte(`[{"id":3},{"id":1},{"id":3}]`))
	require.NoError(t, err)
	require.Equal(t, []int64{3, 1, 3}, []int64{c[0].ID, c[1].ID, c[2].ID})
}

func TestEmptyCatalogIsValid(t *testing.T) {
	c, err := Unmarshal([]byte(`[]`))
	require.NoError(t, err)
	require.NotNil(t, c)
	require.Len(t, c, 0)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestDecodeReadFailureIsIO(t *testing.T) {
	_, err := Decode(failingReader{})
	require.ErrorIs(t, err, ErrIO)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.json")
	src := FileSource{Path: path}

	_, err := src.FetchCatalog(context.Background())
	require.ErrorIs(t, err, ErrIO)

	require.NoError(t, os.WriteFile(path, []byte(`[{"id":7,"name":"Pen","price":5000,"stock":2}]`), 0o644))
	c, err := src.FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Equal(t, Catalog{{ID: 7, Name: "Pen", Price: 5000, Stock: 2}}, c)

	// no caching: the next read sees the new content
	require.NoError(t, os.WriteFile(path, []byte(`garbage`), 0o644))
	_, err = src.FetchCatalog(context.Background())
	require.ErrorIs(t, err, ErrFormat)
}

func TestHTTPSource(t *testing.T) {
	var status int
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != ProductsPath {
			t.Errorf("Requested path %s", r.URL.Path)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	defer srv.Close()
	src := NewHTTPSource(srv.URL+"/", time.Second)

	env, _ := json.Marshal(Envelope{Success: true, Data: Catalog{{ID: 1, Name: "A"}}, Timestamp: time.Now()})
	status, body = http.StatusOK, string(env)
	c, err := src.FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Equal(t, Catalog{{ID: 1, Name: "A"}}, c)

	status, body = http.StatusInternalServerError, "oops"
	_, err = src.FetchCatalog(context.Background())
	require.ErrorIs(t, err, ErrIO)

	status, body = http.StatusOK, `{"success":false,"error":"boom"}`
	_, err = src.FetchCatalog(context.Background())
	require.ErrorIs(t, err, ErrFormat)
	require.True(t, strings.Contains(err.Error(), "boom"))

	status, body = http.StatusOK, `<html>`
	_, err = src.FetchCatalog(context.Background())
	require.ErrorIs(t, err, ErrFormat)
}

func TestHTTPSourceUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPSource(url, time.Second).FetchCatalog(context.Background())
	require.ErrorIs(t, err, ErrIO)
}
