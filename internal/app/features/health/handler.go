// Package health serves the liveness check. Besides the ping it reports
// whether the deployment can serve change streams, which decides whether
// worker rosters stream or poll.
package health

import (
	"context"
	"net/http"

	"github.com/wastehub/wastehub/internal/app/system/respond"
	"github.com/wastehub/wastehub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client *mongo.Client
	Log    *zap.Logger
}

func NewHandler(client *mongo.Client, logger *zap.Logger) *Handler {
	return &Handler{Client: client, Log: logger}
}

type status struct {
	Status        string `json:"status"`
	Database      string `json:"database"`
	RosterFeed    string `json:"roster_feed,omitempty"`
	ReplicaSet    string `json:"replica_set,omitempty"`
	FailureReason string `json:"error,omitempty"`
}

// Serve handles GET /health: 200 with the roster feed mode when MongoDB
// answers, 503 otherwise.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health check: mongo ping failed", zap.Error(err))
		respond.JSON(w, http.StatusServiceUnavailable, status{
			Status:        "error",
			Database:      "disconnected",
			FailureReason: err.Error(),
		})
		return
	}

	st := status{Status: "ok", Database: "connected", RosterFeed: "polling"}
	if set, ok := h.replicaSet(ctx); ok {
		st.RosterFeed = "change_stream"
		st.ReplicaSet = set
	}
	respond.JSON(w, http.StatusOK, st)
}

// replicaSet reports the replica set name; change streams need one.
func (h *Handler) replicaSet(ctx context.Context) (string, bool) {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	err := h.Client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello)
	if err != nil {
		h.Log.Debug("health check: hello failed", zap.Error(err))
		return "", false
	}
	// mongos reports msg "isdbgrid" and supports change streams without a set name
	if hello.Msg == "isdbgrid" {
		return "", true
	}
	return hello.SetName, hello.SetName != ""
}
