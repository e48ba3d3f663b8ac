package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/kbukum/flowgen/errors"
	"github.com/kbukum/flowgen/graph"
	"github.com/kbukum/flowgen/ledger"
	"github.com/kbukum/flowgen/logger"
	"github.com/kbukum/flowgen/scheduler"
	"github.com/kbukum/flowgen/server"
	"github.com/kbukum/flowgen/sse"
	"github.com/kbukum/flowgen/validation"
)

// NodesTopic is the event stream topic node updates are published on.
const NodesTopic = "nodes"

// Handler serves the /v1 routes.
type Handler struct {
	store  *graph.Store
	sched  *scheduler.Scheduler
	ledger *ledger.Ledger
	hub    *sse.Hub
	log    *logger.Logger
}

// NewHandler creates a handler. hub may be nil, in which case the event
// stream route is not registered.
func NewHandler(store *graph.Store, sched *scheduler.Scheduler, l *ledger.Ledger, hub *sse.Hub, log *logger.Logger) *Handler {
	return &Handler{store: store, sched: sched, ledger: l, hub: hub, log: log}
}

// Register mounts the routes under /v1.
func (h *Handler) Register(r gin.IRouter) {
	v1 := r.Group("/v1")

	v1.GET("/graph", h.getGraph)
	v1.PUT("/graph", h.putGraph)
	v1.POST("/graph/edges", h.connect)

	v1.GET("/nodes/:id", h.getNode)
	v1.POST("/nodes/:id/run", h.runNode)

	v1.POST("/batches", h.submitBatch)
	v1.GET("/batches/:id", h.getBatch)

	v1.GET("/tasks", h.listTasks)
	v1.DELETE("/tasks", h.clearTasks)
	v1.DELETE("/tasks/:id", h.removeTask)

	if h.hub != nil {
		v1.GET("/events", h.events)
	}
}

// NodeBroadcaster returns a graph.Listener publishing node updates.
func NodeBroadcaster(pub sse.Publisher, log *logger.Logger) graph.Listener {
	return func(n graph.Node) {
		if err := pub.Publish(NodesTopic, "node.updated", n); err != nil {
			log.Warn("publish node update failed", logger.MergeWithError(logger.NodeFields(n.ID, string(n.Type)), err))
		}
	}
}

func (h *Handler) getGraph(c *gin.Context) {
	server.RespondOK(c, h.store.Snapshot())
}

func (h *Handler) putGraph(c *gin.Context) {
	var snap graph.Snapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		server.RespondWithError(c, apperrors.Validation("invalid graph body").WithCause(err))
		return
	}
	if err := validation.Validate(&snap); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if err := h.store.Load(snap); err != nil {
		server.RespondWithError(c, err)
		return
	}
	h.log.Info("graph loaded", logger.Fields("nodes", len(snap.Nodes), "edges", len(snap.Edges)))
	server.RespondOK(c, h.store.Snapshot())
}

func (h *Handler) connect(c *gin.Context) {
	var e graph.Edge
	if err := c.ShouldBindJSON(&e); err != nil {
		server.RespondWithError(c, apperrors.Validation("invalid edge body").WithCause(err))
		return
	}
	if err := validation.Validate(&e); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if err := h.store.Connect(e); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, e)
}

func (h *Handler) getNode(c *gin.Context) {
	id := c.Param("id")
	n, ok := h.store.GetNode(id)
	if !ok {
		server.RespondWithError(c, apperrors.NotFound("node", id))
		return
	}
	server.RespondOK(c, n)
}

type runResponse struct {
	NodeID string `json:"nodeId"`
	TaskID string `json:"taskId"`
}

func (h *Handler) runNode(c *gin.Context) {
	run, err := h.sched.RunSingleNode(c.Request.Context(), c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondAccepted(c, runResponse{NodeID: run.NodeID, TaskID: run.TaskID})
}

// BatchRequest is the body of POST /v1/batches. Repeat defaults to 1.
type BatchRequest struct {
	NodeIDs []string `json:"nodeIds" validate:"required,min=1,dive,required"`
	Repeat  int      `json:"repeat" validate:"gte=0"`
}

type batchResponse struct {
	BatchID string `json:"batchId"`
}

func (h *Handler) submitBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondWithError(c, apperrors.Validation("invalid batch body").WithCause(err))
		return
	}
	if err := validation.Validate(&req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if req.Repeat == 0 {
		req.Repeat = 1
	}
	id, err := h.sched.Submit(req.NodeIDs, req.Repeat)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondAccepted(c, batchResponse{BatchID: id})
}

func (h *Handler) getBatch(c *gin.Context) {
	id := c.Param("id")
	if err := validation.New().RequiredUUID("id", id).Validate(); err != nil {
		server.RespondWithError(c, err)
		return
	}
	b, ok := h.sched.Batch(id)
	if !ok {
		server.RespondWithError(c, apperrors.NotFound("batch", id))
		return
	}
	server.RespondOK(c, b)
}

var taskStatuses = []string{
	string(ledger.StatusRunning),
	string(ledger.StatusCompleted),
	string(ledger.StatusFailed),
}

// listTasks returns the ledger, optionally filtered by ?status=.
func (h *Handler) listTasks(c *gin.Context) {
	status := c.Query("status")
	if err := validation.New().OneOf("status", status, taskStatuses).Validate(); err != nil {
		server.RespondWithError(c, err)
		return
	}
	tasks := []ledger.Record{}
	for _, r := range h.ledger.List() {
		if status == "" || string(r.Status) == status {
			tasks = append(tasks, r)
		}
	}
	server.RespondList(c, tasks, len(tasks))
}

func (h *Handler) clearTasks(c *gin.Context) {
	n := h.ledger.Clear()
	h.log.Info("tasks cleared", logger.Fields("removed", n))
	server.RespondNoContent(c)
}

func (h *Handler) removeTask(c *gin.Context) {
	id := c.Param("id")
	if err := validation.New().RequiredUUID("id", id).Validate(); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if !h.ledger.Remove(id) {
		server.RespondWithError(c, apperrors.NotFound("task", id))
		return
	}
	server.RespondNoContent(c)
}

// events streams hub events. ?topic= takes a glob such as "tasks" or "*".
func (h *Handler) events(c *gin.Context) {
	filter := c.DefaultQuery("topic", "*")
	sse.ServeSSE(h.hub, c.Writer, c.Request, uuid.NewString(), filter)
}
