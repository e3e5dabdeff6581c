// Package qdrant is a minimal REST client that stores resume chunks in a
// Qdrant collection.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cloo-solutions/talentlens/internal/domain"
	"github.com/cloo-solutions/talentlens/internal/service"
)

const (
	SimilarityCosine = "cosine"
	SimilarityDot    = "dot"
)

type Config struct {
	URL        string
	APIKey     string
	Collection string
	VectorSize int
	Similarity string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Index implements service.ChunkIndex against Qdrant.
type Index struct {
	baseURL    string
	apiKey     string
	collection string
	embedder   service.Embedder
	client     *http.Client
	logger     *slog.Logger
}

// statusError is returned for non-2xx responses.
type statusError struct {
	method string
	path   string
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %d %s", e.method, e.path, e.status, e.body)
}

// NewIndex connects to Qdrant and creates the collection when missing.
func NewIndex(ctx context.Context, cfg Config, embedder service.Embedder) (*Index, error) {
	if cfg.VectorSize <= 0 {
		return nil, errors.New("invalid vector size")
	}
	if cfg.Collection == "" {
		return nil, errors.New("collection name is required")
	}

	distance := "Cosine"
	switch strings.ToLower(cfg.Similarity) {
	case "", SimilarityCosine:
	case SimilarityDot:
		distance = "Dot"
	default:
		return nil, fmt.Errorf("unsupported similarity %q", cfg.Similarity)
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Index{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		embedder:   embedder,
		client:     client,
		logger:     logger,
	}

	if err := s.ensureCollection(ctx, cfg.VectorSize, distance); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Index) collectionPath() string {
	return "/collections/" + url.PathEscape(s.collection)
}

func (s *Index) ensureCollection(ctx context.Context, size int, distance string) error {
	err := s.do(ctx, http.MethodGet, s.collectionPath(), nil, nil)
	if err == nil {
		return nil
	}
	var se *statusError
	if !errors.As(err, &se) || se.status != http.StatusNotFound {
		return fmt.Errorf("check collection: %w", err)
	}

	s.logger.InfoContext(ctx, "creating qdrant collection", "collection", s.collection, "size", size, "distance", distance)
	body := map[string]any{
		"vectors": map[string]any{
			"size":     size,
			"distance": distance,
		},
	}
	if err := s.do(ctx, http.MethodPut, s.collectionPath(), body, nil); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (s *Index) Upsert(ctx context.Context, chunks []domain.ResumeChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return domain.IndexFailure(err)
	}
	if len(vectors) != len(chunks) {
		return domain.IndexFailure(fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors)))
	}

	points := make([]point, len(chunks))
	for i, c := range chunks {
		points[i] = point{
			ID:     c.ChunkID,
			Vector: vectors[i],
			Payload: map[string]any{
				domain.MetaResumeID: c.ResumeID(),
				domain.MetaPosition: c.Metadata[domain.MetaPosition],
				"text":              c.Text,
			},
		}
	}

	if err := s.do(ctx, http.MethodPut, s.collectionPath()+"/points?wait=true", map[string]any{"points": points}, nil); err != nil {
		return domain.IndexFailure(err)
	}
	return nil
}

func (s *Index) Query(ctx context.Context, text string, limit int) ([]domain.ResumeChunk, error) {
	vec, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, domain.IndexFailure(err)
	}

	req := map[string]any{
		"vector":       vec,
		"limit":        limit,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      json.RawMessage `json:"id"`
			Score   float64         `json:"score"`
			Payload map[string]any  `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionPath()+"/points/search", req, &resp); err != nil {
		return nil, domain.IndexFailure(err)
	}

	results := make([]domain.ResumeChunk, 0, len(resp.Result))
	for i, r := range resp.Result {
		c := domain.ResumeChunk{
			ChunkID:  pointID(r.ID),
			Text:     payloadString(r.Payload, "text"),
			Metadata: map[string]string{domain.MetaResumeID: payloadString(r.Payload, domain.MetaResumeID)},
		}
		if pos := payloadString(r.Payload, domain.MetaPosition); pos != "" {
			c.Metadata[domain.MetaPosition] = pos
		}
		results = append(results, c.Ranked(i, r.Score))
	}
	return results, nil
}

// pointID renders a Qdrant id, which is either a UUID string or an integer.
func pointID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func payloadString(payload map[string]any, key string) string {
	switch v := payload[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (s *Index) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{method: method, path: path, status: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
