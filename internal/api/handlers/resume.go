package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/cloo-solutions/talentlens/internal/api"
	"github.com/cloo-solutions/talentlens/internal/api/middleware"
	"github.com/cloo-solutions/talentlens/internal/domain"
	"github.com/cloo-solutions/talentlens/internal/pagination"
	"github.com/cloo-solutions/talentlens/internal/service"
)

// defaultMultipartMemory is how much of a multipart body is kept in memory
// before parts spill to temporary files.
const defaultMultipartMemory = 32 << 20

type ResumeProcessor interface {
	Execute(ctx context.Context, input service.ProcessInput) (*domain.ProcessResult, error)
}

type ChunkSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.ResumeChunk, error)
}

type ResumeHandler struct {
	svc    ResumeProcessor
	search ChunkSearcher
}

func NewResumeHandler(svc ResumeProcessor, search ChunkSearcher) *ResumeHandler {
	return &ResumeHandler{svc: svc, search: search}
}

// Process handles POST /v1/resumes/process. The multipart form carries
// user_id, optional request_id and query, and one or more "files" parts.
func (h *ResumeHandler) Process(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(defaultMultipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	userID := strings.TrimSpace(r.FormValue("user_id"))
	if userID == "" {
		api.HandleError(w, r, domain.NewDomainError(domain.ErrCodeValidation, "user_id is required"))
		return
	}

	requestID := strings.TrimSpace(r.FormValue("request_id"))
	if requestID == "" {
		requestID = middleware.GetRequestID(r.Context())
	}

	files, err := readUploads(r.MultipartForm.File["files"])
	if err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.Execute(r.Context(), service.ProcessInput{
		RequestID: requestID,
		UserID:    userID,
		Query:     strings.TrimSpace(r.FormValue("query")),
		Files:     files,
	})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}

func readUploads(headers []*multipart.FileHeader) ([]domain.UploadedFile, error) {
	files := make([]domain.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("cannot read upload %q", fh.Filename)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("cannot read upload %q", fh.Filename)
		}

		contentType := fh.Header.Get("Content-Type")
		if contentType == "" {
			contentType = domain.DefaultContentType
		}
		files = append(files, domain.UploadedFile{
			Filename:    fh.Filename,
			ContentType: contentType,
			Data:        data,
		})
	}
	return files, nil
}

type SearchResultResponse struct {
	ChunkID  string  `json:"chunk_id"`
	ResumeID string  `json:"resume_id"`
	Text     string  `json:"text"`
	Rank     int     `json:"rank"`
	Score    float64 `json:"score"`
}

type SearchResponse struct {
	Items []SearchResultResponse `json:"items"`
}

// Search handles GET /v1/resumes/search?q=...&limit=N.
func (h *ResumeHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, err := pagination.ParseLimit(r.URL.Query().Get("limit"), service.DefaultSearchLimit, service.MaxSearchLimit)
	if err != nil {
		api.HandleError(w, r, domain.ErrInvalidLimit)
		return
	}

	chunks, err := h.search.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		if errors.Is(err, domain.ErrMissingRequiredField) {
			api.HandleError(w, r, domain.NewDomainError(domain.ErrCodeValidation, "q is required"))
			return
		}
		api.HandleError(w, r, err)
		return
	}

	resp := SearchResponse{Items: make([]SearchResultResponse, 0, len(chunks))}
	for _, c := range chunks {
		rank, _ := strconv.Atoi(c.Metadata[domain.MetaRank])
		score, _ := strconv.ParseFloat(c.Metadata[domain.MetaScore], 64)
		resp.Items = append(resp.Items, SearchResultResponse{
			ChunkID:  c.ChunkID,
			ResumeID: c.ResumeID(),
			Text:     c.Text,
			Rank:     rank,
			Score:    score,
		})
	}

	api.Success(w, http.StatusOK, resp)
}
