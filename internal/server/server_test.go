package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/shapefill/shapefill/font"
	"github.com/shapefill/shapefill/internal/fetch"
	"github.com/shapefill/shapefill/internal/store"
)

// shapePNG encodes a transparent canvas with a centered opaque rectangle.
func shapePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	insetX, insetY := w/10, h/10
	for y := insetY; y < h-insetY; y++ {
		for x := insetX; x < w-insetX; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// upstream serves the test shape and font the way a remote host would.
func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	shape := shapePNG(t, 400, 200)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/shape.png":
			w.Write(shape)
		case "/font.ttf":
			w.Write(goregular.TTF)
		case "/empty.png":
			blank := image.NewNRGBA(image.Rect(0, 0, 100, 100))
			png.Encode(w, blank)
		case "/broken.png":
			w.Write([]byte("not an image"))
		case "/big.png":
			w.Write(make([]byte, 2<<20)) // over the 1 MiB fetch cap
		default:
			http.Error(w, "missing", http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type stubRegistry map[string]*font.Source

func (r stubRegistry) Lookup(name string) (*font.Source, error) {
	if src, ok := r[name]; ok {
		return src, nil
	}
	return nil, fmt.Errorf("unknown font %q", name)
}

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(dir, filepath.Join(dir, "renders.db"), time.Hour, nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	fetcher := fetch.NewClient(10*time.Second, 1<<20, 1<<20, nil)
	if opts.MaxConcurrent == 0 {
		opts.MaxConcurrent = 2
	}
	if opts.UpscaleWidth == 0 {
		opts.UpscaleWidth = 400
	}
	api := httptest.NewServer(New(fetcher, st, nil, opts).Handler())
	t.Cleanup(api.Close)
	return api
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

const fittableText = "lorem ipsum dolor sit amet lorem ipsum dolor sit amet " +
	"lorem ipsum dolor sit amet lorem ipsum dolor sit amet"

func TestFitTextEndToEnd(t *testing.T) {
	up := upstream(t)
	api := newTestServer(t, Options{})

	resp := postJSON(t, api.URL+"/fit-text", map[string]any{
		"urlImage": up.URL + "/shape.png",
		"urlFont":  up.URL + "/font.ttf",
		"text":     fittableText,
		"color":    "ff0000",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out renderResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Contains(t, out.ImageSrc, "/fit-text?name=")

	img := fetchPNG(t, out.ImageSrc)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func fetchPNG(t *testing.T, url string) image.Image {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	return img
}

func TestFitTextExplicitOutputSize(t *testing.T) {
	up := upstream(t)
	api := newTestServer(t, Options{})

	resp := postJSON(t, api.URL+"/fit-text", map[string]any{
		"urlImage": up.URL + "/shape.png",
		"urlFont":  up.URL + "/font.ttf",
		"text":     fittableText,
		"width":    120,
		"height":   90,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out renderResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	img := fetchPNG(t, out.ImageSrc)
	assert.Equal(t, 120, img.Bounds().Dx())
	assert.Equal(t, 90, img.Bounds().Dy())
}

func TestFitTextValidation(t *testing.T) {
	up := upstream(t)
	api := newTestServer(t, Options{})

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing urlImage", map[string]any{
			"urlFont": up.URL + "/font.ttf", "text": "hello"}},
		{"missing font", map[string]any{
			"urlImage": up.URL + "/shape.png", "text": "hello"}},
		{"missing text", map[string]any{
			"urlImage": up.URL + "/shape.png", "urlFont": up.URL + "/font.ttf"}},
		{"blank text", map[string]any{
			"urlImage": up.URL + "/shape.png", "urlFont": up.URL + "/font.ttf",
			"text": "   "}},
		{"bad color", map[string]any{
			"urlImage": up.URL + "/shape.png", "urlFont": up.URL + "/font.ttf",
			"text": "hello", "color": "zzzzzz"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, api.URL+"/fit-text", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestFitTextMalformedBody(t *testing.T) {
	api := newTestServer(t, Options{})

	resp, err := http.Post(api.URL+"/fit-text", "application/json",
		strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFitTextUpstreamFailure(t *testing.T) {
	up := upstream(t)
	api := newTestServer(t, Options{})

	resp := postJSON(t, api.URL+"/fit-text", map[string]any{
		"urlImage": up.URL + "/missing.png",
		"urlFont":  up.URL + "/font.ttf",
		"text":     "hello world",
	})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestFitTextUndecodableImage(t *testing.T) {
	up := upstream(t)
	api := newTestServer(t, Options{})

	resp := postJSON(t, api.URL+"/fit-text", map[string]any{
		"urlImage": up.URL + "/broken.png",
		"urlFont":  up.URL + "/font.ttf",
		"text":     "hello world",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFitTextUnfittableShape(t *testing.T) {
	up := upstream(t)
	api := newTestServer(t, Options{})

	resp := postJSON(t, api.URL+"/fit-text", map[string]any{
		"urlImage": up.URL + "/empty.png",
		"urlFont":  up.URL + "/font.ttf",
		"text":     "hello world",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestFitTextWordLimit(t *testing.T) {
	up := upstream(t)
	api := newTestServer(t, Options{MaxTextWords: 3})

	resp := postJSON(t, api.URL+"/fit-text", map[string]any{
		"urlImage": up.URL + "/shape.png",
		"urlFont":  up.URL + "/font.ttf",
		"text":     "one two three four",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFitTextRegistryFont(t *testing.T) {
	up := upstream(t)
	src, err := font.NewSource(goregular.TTF)
	require.NoError(t, err)
	api := newTestServer(t, Options{Fonts: stubRegistry{"regular": src}})

	resp := postJSON(t, api.URL+"/fit-text", map[string]any{
		"urlImage": up.URL + "/shape.png",
		"font":     "regular",
		"text":     fittableText,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, api.URL+"/fit-text", map[string]any{
		"urlImage": up.URL + "/shape.png",
		"font":     "nope",
		"text":     "hello world",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFitTextOversizedUpstream(t *testing.T) {
	up := upstream(t)
	api := newTestServer(t, Options{})

	resp := postJSON(t, api.URL+"/fit-text", map[string]any{
		"urlImage": up.URL + "/big.png",
		"urlFont":  up.URL + "/font.ttf",
		"text":     "hello world",
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestFitTextAdmissionShedding(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer slow.Close()

	api := newTestServer(t, Options{
		MaxConcurrent: 1,
		AdmitTimeout:  100 * time.Millisecond,
	})

	body, err := json.Marshal(map[string]any{
		"urlImage": slow.URL + "/shape.png",
		"urlFont":  slow.URL + "/font.ttf",
		"text":     "hello world",
	})
	require.NoError(t, err)

	// First request takes the only render slot and parks in the fetch.
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		resp, err := http.Post(api.URL+"/fit-text", "application/json", bytes.NewReader(body))
		if err == nil {
			resp.Body.Close()
		}
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Post(api.URL+"/fit-text", "application/json", bytes.NewReader(body))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusServiceUnavailable
	}, 5*time.Second, 50*time.Millisecond)

	close(release)
	<-firstDone
}

func TestGetImageUnknownName(t *testing.T) {
	api := newTestServer(t, Options{})

	for _, name := range []string{"", "missing.png", "../renders.db"} {
		resp, err := http.Get(api.URL + "/fit-text?name=" + name)
		require.NoError(t, err)
		body := make([]byte, 1)
		n, _ := resp.Body.Read(body)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
		assert.Zero(t, n)
	}
}

func TestTextOnPath(t *testing.T) {
	up := upstream(t)
	api := newTestServer(t, Options{})

	resp := postJSON(t, api.URL+"/text-on-path", map[string]any{
		"path":    "M10,100 L390,100",
		"text":    "along the line",
		"urlFont": up.URL + "/font.ttf",
		"color":   "0000ff",
		"viewBox": []float64{0, 0, 400, 200},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out renderResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	img := fetchPNG(t, out.ImageSrc)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestTextOnPathValidation(t *testing.T) {
	up := upstream(t)
	api := newTestServer(t, Options{})

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing path", map[string]any{
			"text": "x", "urlFont": up.URL + "/font.ttf",
			"viewBox": []float64{0, 0, 100, 100}}},
		{"missing text", map[string]any{
			"path": "M0,0 L10,10", "urlFont": up.URL + "/font.ttf",
			"viewBox": []float64{0, 0, 100, 100}}},
		{"bad viewBox", map[string]any{
			"path": "M0,0 L10,10", "text": "x",
			"urlFont": up.URL + "/font.ttf",
			"viewBox": []float64{0, 0, 0, 0}}},
		{"bad path data", map[string]any{
			"path": "X123", "text": "x",
			"urlFont": up.URL + "/font.ttf",
			"viewBox": []float64{0, 0, 100, 100}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, api.URL+"/text-on-path", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestHealthz(t *testing.T) {
	api := newTestServer(t, Options{})

	resp, err := http.Get(api.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ok", out["status"])
}

func TestMethodNotAllowed(t *testing.T) {
	api := newTestServer(t, Options{})

	resp, err := http.Get(api.URL + "/text-on-path")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
