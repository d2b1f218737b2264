package api

import (
	"bytes"
	"encoding/json"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youruser/framegen/internal/config"
	"github.com/youruser/framegen/internal/share"
	"github.com/youruser/framegen/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.Port = "8080"
	cfg.Layout.Slots = []config.Slot{
		{X: 17, Y: 17, W: 266, H: 178},
		{X: 17, Y: 214, W: 266, H: 178},
		{X: 17, Y: 410, W: 266, H: 178},
		{X: 17, Y: 604, W: 266, H: 178},
	}
	cfg.Output.Dir = t.TempDir()
	cfg.Output.DefaultTag = "frame"
	cfg.Templates.Dir = t.TempDir()
	cfg.Features.MultiCopy = true
	cfg.Features.TemplateListing = true
	return cfg
}

func testRouter(t *testing.T, cfg *config.Config, shareURL string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewHandler(cfg, storage.New(cfg.Output.Dir), share.NewClient(shareURL))
	r := gin.New()
	RegisterRoutes(r, h)
	return r
}

func pngBytes(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, imaging.New(w, h, c)))
	return buf.Bytes()
}

func multipartBody(t *testing.T, files map[string][]byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := mw.CreateFormFile(name, name+".png")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for name, value := range fields {
		require.NoError(t, mw.WriteField(name, value))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	r := testRouter(t, testConfig(t), "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGenerateRequiresTemplate(t *testing.T) {
	r := testRouter(t, testConfig(t), "")

	body, contentType := multipartBody(t, map[string][]byte{
		"photo1": pngBytes(t, 10, 10, color.NRGBA{R: 255, A: 255}),
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/generate", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no template uploaded")
}

func TestGenerateRequiresAtLeastOnePhoto(t *testing.T) {
	r := testRouter(t, testConfig(t), "")

	body, contentType := multipartBody(t, map[string][]byte{
		"template": pngBytes(t, 600, 800, color.NRGBA{B: 255, A: 255}),
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/generate", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no photos uploaded")
}

func TestGenerateRejectsUndecodablePhoto(t *testing.T) {
	r := testRouter(t, testConfig(t), "")

	body, contentType := multipartBody(t, map[string][]byte{
		"template": pngBytes(t, 600, 800, color.NRGBA{B: 255, A: 255}),
		"photo1":   []byte("junk data"),
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/generate", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "photo1")
}

func TestGenerateComposesPhotoIntoSlot(t *testing.T) {
	r := testRouter(t, testConfig(t), "")

	body, contentType := multipartBody(t, map[string][]byte{
		"template": pngBytes(t, 600, 800, color.NRGBA{B: 255, A: 255}),
		"photo1":   pngBytes(t, 100, 100, color.NRGBA{R: 255, A: 255}),
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/generate", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 600, img.Bounds().Dx())
	require.Equal(t, 800, img.Bounds().Dy())

	at := func(x, y int) color.NRGBA {
		return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	}

	// slot 1 shows the upscaled red photo, the rest stays template blue
	assert.InDelta(t, 255, int(at(150, 100).R), 1)
	assert.Equal(t, uint8(255), at(0, 0).B)
	assert.Equal(t, uint8(255), at(150, 300).B)
	assert.Equal(t, uint8(255), at(599, 799).B)
}

func TestSaveLocallyPersistsTiledCopies(t *testing.T) {
	cfg := testConfig(t)
	r := testRouter(t, cfg, "")

	body, contentType := multipartBody(t, map[string][]byte{
		"file": pngBytes(t, 200, 100, color.NRGBA{G: 255, A: 255}),
	}, map[string]string{"copyCount": "3"})
	req := httptest.NewRequest(http.MethodPost, "/save_locally", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success  bool   `json:"success"`
		Filepath string `json:"filepath"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Regexp(t, `^frame_\d{8}_\d{6}_3x\.png$`, resp.Filepath)

	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, resp.Filepath))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 600, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())
}

func TestSaveLocallyRequiresFile(t *testing.T) {
	r := testRouter(t, testConfig(t), "")

	body, contentType := multipartBody(t, nil, map[string]string{"copyCount": "2"})
	req := httptest.NewRequest(http.MethodPost, "/save_locally", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadTempRelaysLink(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","data":{"downloadPage":"https://gofile.io/d/xyz"}}`))
	}))
	defer upstream.Close()

	r := testRouter(t, testConfig(t), upstream.URL)

	body, contentType := multipartBody(t, map[string][]byte{
		"file": pngBytes(t, 4, 4, color.NRGBA{A: 255}),
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/upload_temp", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"link":"https://gofile.io/d/xyz"}`, w.Body.String())
}

func TestUploadTempRelaysUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no capacity", http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	r := testRouter(t, testConfig(t), upstream.URL)

	body, contentType := multipartBody(t, map[string][]byte{
		"file": pngBytes(t, 4, 4, color.NRGBA{A: 255}),
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/upload_temp", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestListTemplates(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Templates.Dir, "classic.png"), pngBytes(t, 600, 800, color.NRGBA{A: 255}), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Templates.Dir, "notes.txt"), []byte("x"), 0o644))

	r := testRouter(t, cfg, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/templates", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":1,"templates":["classic.png"]}`, w.Body.String())
}

func TestServeTemplateUnknownName(t *testing.T) {
	r := testRouter(t, testConfig(t), "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/templates/nope.png", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTemplateThumb(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Templates.Dir, "classic.png"), pngBytes(t, 600, 800, color.NRGBA{R: 3, A: 255}), 0o644))

	r := testRouter(t, cfg, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/templates/classic.png/thumb", nil))

	require.Equal(t, http.StatusOK, w.Code)
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	// 600x800 fitted into 300x300 keeps aspect: 225x300
	assert.Equal(t, 225, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())
}

func TestQRRequiresText(t *testing.T) {
	r := testRouter(t, testConfig(t), "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/qr", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/qr?text=https://gofile.io/d/xyz&size=128", nil))
	require.Equal(t, http.StatusOK, w.Code)

	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
}
