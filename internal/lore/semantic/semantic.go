// Package semantic implements tavernkit.SemanticMatcher against Qdrant,
// letting lorebook entries opt into vector-similarity activation alongside
// their keyword/regex keys. Grounded on the teacher's
// internal/persistence/databases.qdrantVector (collection bootstrap,
// deterministic UUID point IDs via uuid.NewSHA1 for non-UUID source keys,
// dense-vector upsert/search) and internal/rag/embedder.Embedder (the
// embedding-provider interface shape, including its deterministic test
// implementation).
package semantic

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Embedder converts text to embedding vectors. Hosts supply a real
// implementation (e.g. an HTTP call to an embedding service); Deterministic
// below is a dependency-free stand-in for tests and demos.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Matcher is a Qdrant-backed tavernkit.SemanticMatcher. One Matcher
// instance is shared across builds; entries are upserted once (or
// whenever their semantic_query text changes) and matched against the
// per-build scan buffer.
type Matcher struct {
	client     *qdrant.Client
	collection string
	embedder   Embedder
}

// New connects to Qdrant at host:port and ensures the collection exists,
// sized for embedder's dimension, using cosine distance.
func New(ctx context.Context, host string, port int, collection string, embedder Embedder) (*Matcher, error) {
	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("semantic: connect qdrant: %w", err)
	}
	m := &Matcher{client: client, collection: collection, embedder: embedder}
	if err := m.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return m, nil
}

func (m *Matcher) ensureCollection(ctx context.Context) error {
	exists, err := m.client.CollectionExists(ctx, m.collection)
	if err != nil {
		return fmt.Errorf("semantic: collection exists: %w", err)
	}
	if exists {
		return nil
	}
	return m.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: m.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(m.embedder.Dimension()),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

// pointID derives a stable Qdrant point id from an entry's semantic query
// text (Qdrant only accepts UUIDs or positive integers as point ids).
func pointID(query string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(query)).String())
}

// UpsertQuery embeds query and stores it under a deterministic point id, so
// repeated builds referencing the same entry don't re-embed its query text.
func (m *Matcher) UpsertQuery(ctx context.Context, query string) error {
	vecs, err := m.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return fmt.Errorf("semantic: embed query: %w", err)
	}
	_, err = m.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: m.collection,
		Points: []*qdrant.PointStruct{{
			Id:      pointID(query),
			Vectors: qdrant.NewVectorsDense(vecs[0]),
		}},
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert: %w", err)
	}
	return nil
}

// Matches implements tavernkit.SemanticMatcher: embeds scanText, looks up
// query's stored vector by its deterministic point id and reports whether
// cosine similarity clears threshold. Upserts query lazily if not already
// stored.
func (m *Matcher) Matches(scanText, query string, threshold float64) (bool, error) {
	ctx := context.Background()
	if threshold <= 0 {
		threshold = 0.75
	}

	scanVecs, err := m.embedder.EmbedBatch(ctx, []string{scanText})
	if err != nil {
		return false, fmt.Errorf("semantic: embed scan: %w", err)
	}

	points, err := m.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: m.collection,
		Ids:            []*qdrant.PointId{pointID(query)},
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return false, fmt.Errorf("semantic: get point: %w", err)
	}
	if len(points) == 0 {
		if err := m.UpsertQuery(ctx, query); err != nil {
			return false, err
		}
		return false, nil
	}

	queryVec := points[0].GetVectors().GetVector().GetData()
	return cosineSimilarity(scanVecs[0], queryVec) >= threshold, nil
}

// Close releases the underlying Qdrant client.
func (m *Matcher) Close() error {
	return m.client.Close()
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
