package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rez77/talabot/internal/flow"
)

// Handler processes one inbound conversation event.
type Handler interface {
	HandleEvent(ctx context.Context, ev flow.Event) flow.Response
}

// Webhook exposes the conversation over HTTP: one POST per event, the full
// response in the body. Used when WEBHOOK_HOST is configured.
type Webhook struct {
	srv *http.Server
	log *slog.Logger
}

func NewWebhook(addr, path string, h Handler, log *slog.Logger) *Webhook {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST(path, func(c *gin.Context) {
		var ev flow.Event
		if err := c.ShouldBindJSON(&ev); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload"})
			return
		}
		if ev.TelegramID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "external_user_id is required"})
			return
		}
		c.JSON(http.StatusOK, h.HandleEvent(c.Request.Context(), ev))
	})

	return &Webhook{
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

func (w *Webhook) Run() error {
	w.log.Info("webhook listening", "addr", w.srv.Addr)
	if err := w.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (w *Webhook) Shutdown(ctx context.Context) error {
	return w.srv.Shutdown(ctx)
}
