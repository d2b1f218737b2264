package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/youruser/framegen/internal/codec"
	"github.com/youruser/framegen/internal/config"
	"github.com/youruser/framegen/internal/frame"
	"github.com/youruser/framegen/internal/share"
	"github.com/youruser/framegen/internal/storage"
)

const thumbSize = 300

// Handler wires the composition pipeline and its collaborators to HTTP.
type Handler struct {
	cfg   *config.Config
	slots []frame.Slot
	store *storage.Store
	share *share.Client
}

func NewHandler(cfg *config.Config, store *storage.Store, shareClient *share.Client) *Handler {
	return &Handler{
		cfg:   cfg,
		slots: cfg.SlotTable(),
		store: store,
		share: shareClient,
	}
}

// health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Generate composites uploaded photos into the template slots and responds
// with the print-ready PNG.
func (h *Handler) Generate(c *gin.Context) {
	tplFile, err := c.FormFile("template")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no template uploaded"})
		return
	}

	// Up to one photo per slot, any of them may be absent.
	photos := make([]*frame.Raster, len(h.slots))
	supplied := 0
	for i := range h.slots {
		fh, err := c.FormFile(fmt.Sprintf("photo%d", i+1))
		if err != nil {
			continue
		}
		raster, err := decodeUpload(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("photo%d: %v", i+1, err)})
			return
		}
		photos[i] = &raster
		supplied++
	}
	if supplied == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no photos uploaded"})
		return
	}

	template, err := decodeUpload(tplFile)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("template: %v", err)})
		return
	}

	out, err := frame.Compose(template, h.slots, photos, frame.ComposeOptions{
		Sharpen: h.cfg.Features.SharpenOnCompose,
	})
	if err != nil {
		log.Error().Err(err).Msg("composition failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	data, err := codec.EncodePNG(out)
	if err != nil {
		log.Error().Err(err).Msg("encoding composite failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "image/png", data)
}

// SaveLocally normalizes the uploaded frame and persists it (tiled when
// multi-copy printing is enabled) under the output directory.
func (h *Handler) SaveLocally(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}

	raster, err := decodeUpload(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	normalized := frame.Normalize(raster)
	normalized.DPI = [2]int{frame.DefaultDPI, frame.DefaultDPI}

	copies := 1
	if h.cfg.Features.MultiCopy {
		copies = storage.ParseCopies(c.PostForm("copyCount"))
	}

	tag := c.PostForm("tag")
	if tag == "" {
		tag = h.cfg.Output.DefaultTag
	}

	path, err := h.store.Save(normalized, tag, copies)
	if err != nil {
		log.Error().Err(err).Msg("saving frame failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "filepath": path})
}

// UploadTemp proxies the uploaded file to the hosting service and relays the
// share link.
func (h *Handler) UploadTemp(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "no file uploaded"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	defer f.Close()

	link, err := h.share.Upload(c.Request.Context(), fh.Filename, f)
	if err != nil {
		log.Error().Err(err).Str("filename", fh.Filename).Msg("share upload failed")
		if ue, ok := share.AsUpstream(err); ok {
			status := ue.Status
			if status == http.StatusOK {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"success": false, "error": ue.Reason, "raw": ue.Body})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "link": link})
}

// QR returns a PNG QR code for a share link.
func (h *Handler) QR(c *gin.Context) {
	text := c.Query("text")
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing text parameter"})
		return
	}
	size := 400
	if sizeStr := c.Query("size"); sizeStr != "" {
		if v, err := strconv.Atoi(sizeStr); err == nil {
			size = v
		}
	}
	b, err := share.LinkQR(text, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", b)
}

// ListTemplates returns the deployable template designs.
func (h *Handler) ListTemplates(c *gin.Context) {
	entries, err := os.ReadDir(h.cfg.Templates.Dir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".png") {
			continue
		}
		names = append(names, e.Name())
	}
	c.JSON(http.StatusOK, gin.H{"count": len(names), "templates": names})
}

// ServeTemplate serves a template file by name.
func (h *Handler) ServeTemplate(c *gin.Context) {
	path, ok := h.templatePath(c)
	if !ok {
		return
	}
	c.File(path)
}

// TemplateThumb serves a Lanczos-fitted thumbnail of a template.
func (h *Handler) TemplateThumb(c *gin.Context) {
	path, ok := h.templatePath(c)
	if !ok {
		return
	}
	img, err := imaging.Open(path)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	thumb := imaging.Fit(img, thumbSize, thumbSize, imaging.Lanczos)
	data, err := codec.EncodePNG(frame.Raster{Img: thumb})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func (h *Handler) templatePath(c *gin.Context) (string, bool) {
	name := filepath.Base(c.Param("name"))
	if !strings.HasSuffix(strings.ToLower(name), ".png") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template name"})
		return "", false
	}
	path := filepath.Join(h.cfg.Templates.Dir, name)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
		return "", false
	}
	return path, true
}

// decodeUpload reads a multipart file and decodes it into a raw raster.
func decodeUpload(fh *multipart.FileHeader) (frame.Raster, error) {
	f, err := fh.Open()
	if err != nil {
		return frame.Raster{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return frame.Raster{}, err
	}
	return codec.Decode(data)
}
