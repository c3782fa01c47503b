package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/garyjia/approval-ledger/internal/application/ledger"
	"github.com/garyjia/approval-ledger/internal/domain/entity"
	domainwf "github.com/garyjia/approval-ledger/internal/domain/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine ledger.Engine
	health HealthChecker
	logger *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(engine ledger.Engine, health HealthChecker, logger *zap.Logger) *Handlers {
	return &Handlers{
		engine: engine,
		health: health,
		logger: logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// CreateWorkflowRequest is the body of POST /api/workflows
type CreateWorkflowRequest struct {
	TemplateHash string `json:"template_hash"`
	DataHash     string `json:"data_hash"`
}

// CreateWorkflowResponse carries the id of the new workflow
type CreateWorkflowResponse struct {
	WorkflowID string `json:"workflow_id"`
}

// TransitionRequest is the body of POST /api/workflows/:id/transitions.
// to_state accepts a state name or its numeric value.
type TransitionRequest struct {
	ToState     json.RawMessage `json:"to_state"`
	ActorRole   *uint64         `json:"actor_role"`
	CommentHash string          `json:"comment_hash"`
}

// WorkflowResponse represents a workflow in API responses
type WorkflowResponse struct {
	ID                string             `json:"id"`
	TemplateHash      entity.Hash        `json:"template_hash"`
	DataHash          entity.Hash        `json:"data_hash"`
	CurrentState      string             `json:"current_state"`
	CurrentStateValue uint8              `json:"current_state_value"`
	Creator           entity.AccountHash `json:"creator"`
	CreatedAt         uint64             `json:"created_at"`
	UpdatedAt         uint64             `json:"updated_at"`
	IsCompleted       bool               `json:"is_completed"`
	PermittedStates   []string           `json:"permitted_states"`
}

// TransitionResponse represents one audit trail entry in API responses
type TransitionResponse struct {
	FromState      string             `json:"from_state"`
	FromStateValue uint8              `json:"from_state_value"`
	ToState        string             `json:"to_state"`
	ToStateValue   uint8              `json:"to_state_value"`
	Actor          entity.AccountHash `json:"actor"`
	ActorRole      uint64             `json:"actor_role"`
	ActorRoleNames string             `json:"actor_role_names"`
	Timestamp      uint64             `json:"timestamp"`
	CommentHash    entity.Hash        `json:"comment_hash"`
}

// CountResponse carries the number of workflows ever created
type CountResponse struct {
	Count string `json:"count"`
}

// VersionResponse carries the installed contract version
type VersionResponse struct {
	ContractVersion string `json:"contract_version"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if h.health != nil {
		report := h.health.Health(c.Request.Context())
		response.Components = report.Components
		if !report.Overall {
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, Response{
		Success: status == http.StatusOK,
		Data:    response,
	})
}

// GetVersion handles GET /api/version
func (h *Handlers) GetVersion(c *gin.Context) {
	version, err := h.engine.ContractVersion(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to read contract version", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: VersionResponse{ContractVersion: version}})
}

// CreateWorkflow handles POST /api/workflows
func (h *Handlers) CreateWorkflow(c *gin.Context) {
	var req CreateWorkflowRequest
	if err := decodeBody(c, &req); err != nil {
		h.fail(c, "Invalid create request", err)
		return
	}

	templateHash, err := requireHash("template_hash", req.TemplateHash)
	if err != nil {
		h.fail(c, "Invalid create request", err)
		return
	}
	dataHash, err := requireHash("data_hash", req.DataHash)
	if err != nil {
		h.fail(c, "Invalid create request", err)
		return
	}

	id, err := h.engine.CreateWorkflow(c.Request.Context(), templateHash, dataHash)
	if err != nil {
		h.fail(c, "Failed to create workflow", err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    CreateWorkflowResponse{WorkflowID: entity.WorkflowKey(id)},
	})
}

// TransitionState handles POST /api/workflows/:id/transitions
func (h *Handlers) TransitionState(c *gin.Context) {
	id, err := entity.ParseWorkflowID(c.Param("id"))
	if err != nil {
		h.fail(c, "Invalid workflow ID", err)
		return
	}

	var req TransitionRequest
	if err := decodeBody(c, &req); err != nil {
		h.fail(c, "Invalid transition request", err)
		return
	}

	to, err := parseStateParam(req.ToState)
	if err != nil {
		h.fail(c, "Invalid transition request", err)
		return
	}
	if req.ActorRole == nil {
		h.fail(c, "Invalid transition request", fmt.Errorf("%w: actor_role", domainwf.ErrMissingArgument))
		return
	}
	commentHash, err := requireHash("comment_hash", req.CommentHash)
	if err != nil {
		h.fail(c, "Invalid transition request", err)
		return
	}

	if err := h.engine.TransitionState(c.Request.Context(), id, to, entity.Role(*req.ActorRole), commentHash); err != nil {
		h.fail(c, "Transition failed", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// GetWorkflow handles GET /api/workflows/:id
func (h *Handlers) GetWorkflow(c *gin.Context) {
	id, err := entity.ParseWorkflowID(c.Param("id"))
	if err != nil {
		h.fail(c, "Invalid workflow ID", err)
		return
	}

	w, err := h.engine.GetWorkflowState(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to get workflow", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: toWorkflowResponse(w)})
}

// GetWorkflowHistory handles GET /api/workflows/:id/history
func (h *Handlers) GetWorkflowHistory(c *gin.Context) {
	id, err := entity.ParseWorkflowID(c.Param("id"))
	if err != nil {
		h.fail(c, "Invalid workflow ID", err)
		return
	}

	records, err := h.engine.GetWorkflowHistory(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to get workflow history", err)
		return
	}

	history := make([]TransitionResponse, 0, len(records))
	for _, r := range records {
		history = append(history, toTransitionResponse(r))
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// GetWorkflowCount handles GET /api/workflows/count
func (h *Handlers) GetWorkflowCount(c *gin.Context) {
	count, err := h.engine.GetWorkflowCount(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to get workflow count", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: CountResponse{Count: count.Dec()}})
}

// fail logs the error at a level matching its kind and writes the mapped response
func (h *Handlers) fail(c *gin.Context, msg string, err error) {
	status := statusOf(err)
	fields := []zap.Field{
		zap.Error(err),
		zap.String("code", domainwf.CodeOf(err).String()),
		zap.String("path", c.Request.URL.Path),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, fields...)
	} else {
		h.logger.Debug(msg, fields...)
	}
	abortWithError(c, err)
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusOf(err), Response{
		Success: false,
		Error:   err.Error(),
		Code:    domainwf.CodeOf(err).String(),
	})
}

// statusOf maps a ledger error kind to an HTTP status
func statusOf(err error) int {
	switch domainwf.CodeOf(err) {
	case domainwf.CodeNotFound:
		return http.StatusNotFound
	case domainwf.CodeInvalidTransition, domainwf.CodeAlreadyCompleted:
		return http.StatusConflict
	case domainwf.CodeMissingArgument, domainwf.CodeInvalidArgument:
		return http.StatusBadRequest
	case domainwf.CodeStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(c *gin.Context, dst interface{}) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: request body: %v", domainwf.ErrInvalidArgument, err)
	}
	return nil
}

func requireHash(name, value string) (entity.Hash, error) {
	if value == "" {
		return entity.Hash{}, fmt.Errorf("%w: %s", domainwf.ErrMissingArgument, name)
	}
	h, err := entity.ParseHash(value)
	if err != nil {
		return entity.Hash{}, fmt.Errorf("%s: %w", name, err)
	}
	return h, nil
}

func parseStateParam(raw json.RawMessage) (domainwf.State, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("%w: to_state", domainwf.ErrMissingArgument)
	}
	if raw[0] == '"' {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return 0, fmt.Errorf("%w: to_state: %v", domainwf.ErrInvalidArgument, err)
		}
		return domainwf.ParseState(name)
	}
	n, err := strconv.ParseUint(string(raw), 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: to_state %s is not a value in 0-255", domainwf.ErrInvalidArgument, raw)
	}
	return domainwf.State(n), nil
}

func toWorkflowResponse(w *entity.WorkflowData) WorkflowResponse {
	permitted := []string{}
	if !w.IsCompleted {
		for _, s := range domainwf.PermittedTargets(w.CurrentState) {
			permitted = append(permitted, s.String())
		}
	}
	return WorkflowResponse{
		ID:                entity.WorkflowKey(&w.ID),
		TemplateHash:      w.TemplateHash,
		DataHash:          w.DataHash,
		CurrentState:      w.CurrentState.String(),
		CurrentStateValue: uint8(w.CurrentState),
		Creator:           w.Creator,
		CreatedAt:         w.CreatedAt,
		UpdatedAt:         w.UpdatedAt,
		IsCompleted:       w.IsCompleted,
		PermittedStates:   permitted,
	}
}

func toTransitionResponse(r entity.TransitionRecord) TransitionResponse {
	return TransitionResponse{
		FromState:      r.FromState.String(),
		FromStateValue: uint8(r.FromState),
		ToState:        r.ToState.String(),
		ToStateValue:   uint8(r.ToState),
		Actor:          r.Actor,
		ActorRole:      uint64(r.ActorRole),
		ActorRoleNames: r.ActorRole.String(),
		Timestamp:      r.Timestamp,
		CommentHash:    r.CommentHash,
	}
}
