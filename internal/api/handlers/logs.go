package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/cloo-solutions/talentlens/internal/api"
	"github.com/cloo-solutions/talentlens/internal/domain"
	"github.com/cloo-solutions/talentlens/internal/pagination"
	"github.com/cloo-solutions/talentlens/internal/service"
)

type AuditLister interface {
	ListLogs(ctx context.Context, input service.ListLogsInput) (*service.ListLogsOutput, error)
}

type LogsHandler struct {
	svc AuditLister
}

func NewLogsHandler(svc AuditLister) *LogsHandler {
	return &LogsHandler{svc: svc}
}

type AuditLogResponse struct {
	ID        string             `json:"id"`
	RequestID string             `json:"request_id"`
	UserID    string             `json:"user_id"`
	Timestamp string             `json:"timestamp"`
	Query     *string            `json:"query"`
	Result    domain.AuditResult `json:"result"`
}

type ListLogsResponse struct {
	Items   []AuditLogResponse `json:"items"`
	Cursor  string             `json:"cursor,omitempty"`
	HasMore bool               `json:"has_more"`
}

func auditLogToResponse(e *domain.AuditLog) AuditLogResponse {
	return AuditLogResponse{
		ID:        e.ID,
		RequestID: e.RequestID,
		UserID:    e.UserID,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		Query:     e.Query,
		Result:    e.Result,
	}
}

// List handles GET /v1/logs?limit=N&cursor=C, newest first.
func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := pagination.ParseLimit(r.URL.Query().Get("limit"), service.DefaultLogLimit, service.MaxLogLimit)
	if err != nil {
		api.HandleError(w, r, domain.ErrInvalidLimit)
		return
	}

	out, err := h.svc.ListLogs(r.Context(), service.ListLogsInput{
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, NewListLogsResponse(out))
}

// NewListLogsResponse converts a page of audit entries to its wire form.
func NewListLogsResponse(out *service.ListLogsOutput) ListLogsResponse {
	resp := ListLogsResponse{
		Items:   make([]AuditLogResponse, 0, len(out.Items)),
		Cursor:  out.Cursor,
		HasMore: out.HasMore,
	}
	for _, e := range out.Items {
		resp.Items = append(resp.Items, auditLogToResponse(e))
	}
	return resp
}
