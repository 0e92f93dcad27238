// internal/app/features/workers/stream.go
package workers

import (
	"net/http"
	"time"

	"github.com/dalemusser/waffle/pantry/sse"
	"github.com/wastehub/wastehub/internal/app/system/apperr"
	"github.com/wastehub/wastehub/internal/app/system/authz"
	"github.com/wastehub/wastehub/internal/app/system/respond"
	"github.com/wastehub/wastehub/internal/domain/models"
	"go.uber.org/zap"
)

// keepAlive is how often an idle stream sends a comment line so proxies do
// not close it.
const keepAlive = 25 * time.Second

// ServeStream handles GET /api/workers/stream. Each roster snapshot is sent
// as a server-sent "roster" event; a failure ends the stream with an "error"
// event.
func (h *Handler) ServeStream(w http.ResponseWriter, r *http.Request) {
	c, err := authz.UserCtx(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	stream, err := sse.NewStream(w, r)
	if err != nil {
		h.Log.Error("roster stream", zap.Error(err))
		respond.Error(w, r, err)
		return
	}

	// Only the newest pending snapshot is kept if the client is slow. The
	// subscription serializes callbacks, so this is the only writer.
	events := make(chan *sse.Event, 1)
	push := func(ev *sse.Event) {
		select {
		case <-events:
		default:
		}
		events <- ev
	}
	sub := h.Directory.SubscribeWorkers(c.OrgID,
		func(ws []models.Worker) {
			ev, err := sse.NewJSONEvent("roster", map[string]any{"items": ws})
			if err != nil {
				h.Log.Error("encode roster event", zap.Error(err))
				return
			}
			push(ev)
		},
		func(err error) {
			e := apperr.HTTP(err)
			push(sse.MustJSONEvent("error", map[string]string{"code": e.Code, "message": e.Message}))
			close(events)
		},
	)
	defer sub.Cancel()

	if err := stream.SendJSON("subscribed", map[string]string{"subscription_id": sub.ID}); err != nil {
		return
	}

	cfg := sse.DefaultConfig()
	cfg.KeepAliveInterval = keepAlive
	if err := sse.Serve(r.Context(), stream, cfg, events); err != nil && r.Context().Err() == nil {
		h.Log.Debug("roster stream closed", zap.String("subscription_id", sub.ID), zap.Error(err))
	}
}
