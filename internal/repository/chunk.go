package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cloo-solutions/talentlens/internal/domain"
	"github.com/cloo-solutions/talentlens/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository is a pgvector-backed chunk index. It embeds chunk text
// on write and the query text on read.
type ChunkRepository struct {
	db       dbtx
	tx       *TxRunner
	embedder service.Embedder
}

func NewChunkRepository(pool *pgxpool.Pool, embedder service.Embedder) *ChunkRepository {
	return &ChunkRepository{db: pool, tx: NewTxRunner(pool), embedder: embedder}
}

// Upsert embeds all chunks in one batch and writes them in a single
// transaction. Re-indexing a chunk id replaces the stored row.
func (r *ChunkRepository) Upsert(ctx context.Context, chunks []domain.ResumeChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := r.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return domain.IndexFailure(err)
	}
	if len(vectors) != len(chunks) {
		return domain.IndexFailure(fmt.Errorf("got %d embeddings for %d chunks", len(vectors), len(chunks)))
	}

	err = r.tx.WithTx(ctx, func(tx pgx.Tx) error {
		for i, c := range chunks {
			position, _ := strconv.Atoi(c.Metadata[domain.MetaPosition])
			_, err := tx.Exec(ctx,
				`INSERT INTO resume_chunks (id, resume_id, position, text, embedding)
				 VALUES ($1, $2, $3, $4, $5)
				 ON CONFLICT (id) DO UPDATE SET
					resume_id = EXCLUDED.resume_id,
					position = EXCLUDED.position,
					text = EXCLUDED.text,
					embedding = EXCLUDED.embedding`,
				c.ChunkID, c.ResumeID(), position, c.Text, pgvector.NewVector(vectors[i]),
			)
			if err != nil {
				return fmt.Errorf("insert chunk %s: %w", c.ChunkID, err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.IndexFailure(err)
	}
	return nil
}

// Query returns the limit chunks closest to text by cosine distance. The
// score is 1/(1+distance).
func (r *ChunkRepository) Query(ctx context.Context, text string, limit int) ([]domain.ResumeChunk, error) {
	vec, err := r.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, domain.IndexFailure(err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, resume_id, position, text, embedding <=> $1 AS distance
		 FROM resume_chunks
		 ORDER BY distance
		 LIMIT $2`,
		pgvector.NewVector(vec), limit,
	)
	if err != nil {
		return nil, domain.IndexFailure(err)
	}
	defer rows.Close()

	results := []domain.ResumeChunk{}
	for rows.Next() {
		var id, resumeID, body string
		var position int
		var distance float64
		if err := rows.Scan(&id, &resumeID, &position, &body, &distance); err != nil {
			return nil, domain.IndexFailure(err)
		}
		chunk := domain.NewResumeChunk(id, resumeID, body, position)
		results = append(results, chunk.Ranked(len(results), 1/(1+distance)))
	}
	if err := rows.Err(); err != nil {
		return nil, domain.IndexFailure(err)
	}
	return results, nil
}
