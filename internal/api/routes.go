package api

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/health", h.Health)
	r.POST("/generate", h.Generate)
	r.POST("/save_locally", h.SaveLocally)
	r.POST("/upload_temp", h.UploadTemp)
	r.GET("/qr", h.QR)

	if h.cfg.Features.TemplateListing {
		r.GET("/templates", h.ListTemplates)
		r.GET("/templates/:name", h.ServeTemplate)
		r.GET("/templates/:name/thumb", h.TemplateThumb)
	}
}
