package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"alfredoptarigan/cv-parser/internal/config"
	"alfredoptarigan/cv-parser/internal/models"
)

// CandidateIndex stores résumé chunks as vectors so parsed candidates can
// be searched by free text.
type CandidateIndex interface {
	InitCollection(ctx context.Context) error
	IndexResume(ctx context.Context, documentID uuid.UUID, record *models.Resume, chunks []Chunk) error
	Search(ctx context.Context, query, section string, limit int) ([]SearchResult, error)
	DeleteDocument(ctx context.Context, documentID uuid.UUID) error
}

type SearchResult struct {
	DocumentID string
	Section    string
	Name       string
	Text       string
	Score      float32
}

// text-embedding-004 output size
const embeddingSize = 768

type qdrantIndex struct {
	client         *qdrant.Client
	gemini         GeminiService
	collectionName string
	vectorSize     uint64
	logger         *slog.Logger
}

func NewCandidateIndex(cfg config.QdrantConfig, gemini GeminiService, logger *slog.Logger) (CandidateIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}

	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	// the Go client speaks gRPC, which listens on 6334 by default
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   parsed.Hostname(),
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: parsed.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantIndex{
		client:         client,
		gemini:         gemini,
		collectionName: cfg.Collection,
		vectorSize:     embeddingSize,
		logger:         logger,
	}, nil
}

// InitCollection implements CandidateIndex.
func (q *qdrantIndex) InitCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		q.logger.Info("✅ Collection already exists", "collection", q.collectionName)
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	q.logger.Info("✅ Qdrant collection created", "collection", q.collectionName)
	return nil
}

// IndexResume implements CandidateIndex. Re-indexing a document replaces
// its previous points.
func (q *qdrantIndex) IndexResume(ctx context.Context, documentID uuid.UUID, record *models.Resume, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := q.DeleteDocument(ctx, documentID); err != nil {
		return err
	}

	name := ""
	if record != nil {
		name = record.Name
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i, chunk := range chunks {
		embedding, err := q.gemini.GenerateEmbedding(ctx, chunk.Text)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}

		pointID := uuid.NewSHA1(documentID, []byte(strconv.Itoa(i)))
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID.String()),
			Vectors: qdrant.NewVectors(embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"doc_id":  documentID.String(),
				"section": chunk.Section,
				"name":    name,
				"text":    chunk.Text,
			}),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	q.logger.Info("📚 Résumé indexed", "document_id", documentID, "chunks", len(points))
	return nil
}

// Search implements CandidateIndex. An empty section searches all of them.
func (q *qdrantIndex) Search(ctx context.Context, query, section string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}

	embedding, err := q.gemini.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	var filter *qdrant.Filter
	if section != "" {
		filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("section", section),
			},
		}
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(embedding...),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, point := range points {
		results = append(results, SearchResult{
			DocumentID: payloadString(point.Payload, "doc_id"),
			Section:    payloadString(point.Payload, "section"),
			Name:       payloadString(point.Payload, "name"),
			Text:       payloadString(point.Payload, "text"),
			Score:      point.Score,
		})
	}

	q.logger.Debug("🔍 Candidate search", "query", query, "context", FormatSearchContext(results))
	return results, nil
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		if s, ok := v.GetKind().(*qdrant.Value_StringValue); ok {
			return s.StringValue
		}
	}
	return ""
}

// DeleteDocument implements CandidateIndex.
func (q *qdrantIndex) DeleteDocument(ctx context.Context, documentID uuid.UUID) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{
						qdrant.NewMatch("doc_id", documentID.String()),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete document points: %w", err)
	}
	return nil
}
