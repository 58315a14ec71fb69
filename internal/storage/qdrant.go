package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"

	"github.com/bull/techplus-rag/internal/domain"
	"github.com/bull/techplus-rag/internal/resilience"
)

// QdrantConfig holds connection settings for the qdrant gRPC API.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// QdrantIndex stores chunks in qdrant and answers similarity queries. It
// embeds chunk and query text itself, so callers deal in text only.
type QdrantIndex struct {
	client     *qdrant.Client
	embedder   Embedder
	collection string
	exec       *resilience.Executor
	logger     *slog.Logger
}

// NewQdrantIndex creates a new qdrant client with health validation.
// It performs health check with retry on startup and fails fast if qdrant is unreachable.
// exec guards query calls; nil disables circuit breaking.
func NewQdrantIndex(cfg QdrantConfig, embedder Embedder, exec *resilience.Executor, logger *slog.Logger) (*QdrantIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	idx := &QdrantIndex{
		client:     client,
		embedder:   embedder,
		collection: cfg.Collection,
		exec:       exec,
		logger:     logger,
	}

	if err := idx.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return idx, nil
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// healthCheckWithRetry performs health check with exponential backoff.
func (s *QdrantIndex) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(newBackOff(), ctx))
}

// Health performs a single health check against qdrant.
func (s *QdrantIndex) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection creates the chunk collection and its payload indexes if
// they do not exist. Safe to call multiple times.
func (s *QdrantIndex) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     uint64(s.embedder.Dimension()),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	if err := s.createPayloadIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create payload indexes: %w", err)
	}
	return nil
}

// createPayloadIndexes indexes every field a Filter or a replace can target.
func (s *QdrantIndex) createPayloadIndexes(ctx context.Context) error {
	fields := map[string]qdrant.FieldType{
		domain.MetaKind:           qdrant.FieldType_FieldTypeKeyword,
		payloadCategoryKey:        qdrant.FieldType_FieldTypeKeyword,
		domain.MetaDocumentID:     qdrant.FieldType_FieldTypeKeyword,
		domain.MetaSourceEntityID: qdrant.FieldType_FieldTypeKeyword,
		domain.MetaProductID:      qdrant.FieldType_FieldTypeKeyword,
		domain.MetaBrand:          qdrant.FieldType_FieldTypeKeyword,
		domain.MetaPath:           qdrant.FieldType_FieldTypeKeyword,
		domain.MetaPrice:          qdrant.FieldType_FieldTypeFloat,
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      name,
			FieldType:      fields[name].Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", name, err)
		}
	}
	return nil
}

// ClearCollection drops and recreates the collection.
func (s *QdrantIndex) ClearCollection(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return s.EnsureCollection(ctx)
}

// Close closes the qdrant client connection.
func (s *QdrantIndex) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Upsert embeds and stores chunks in batches of 100. Inserting an existing
// chunk ID overwrites it.
func (s *QdrantIndex) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	vectors, err := embedChunks(ctx, s.embedder, chunks)
	if err != nil {
		return err
	}

	const batchSize = 100
	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))

		points := make([]*qdrant.PointStruct, 0, end-i)
		for j := i; j < end; j++ {
			payload := toPayload(chunkPayload(chunks[j]))
			payload[payloadText] = chunks[j].Text
			if category := chunks[j].Metadata.String(domain.MetaCategory); category != "" {
				payload[payloadCategoryKey] = domain.CategoryKey(category)
			}

			points = append(points, &qdrant.PointStruct{
				Id: qdrant.NewIDUUID(chunks[j].ID),
				Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
					vectorName: qdrant.NewVector(vectors[j]...),
				}),
				Payload: qdrant.NewValueMap(payload),
			})
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

func (s *QdrantIndex) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	}, backoff.WithContext(newBackOff(), ctx))
}

// DeleteDocument removes every chunk that belongs to documentID except the
// chunks whose IDs are listed in keep.
func (s *QdrantIndex) DeleteDocument(ctx context.Context, documentID string, keep ...string) error {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch(domain.MetaDocumentID, documentID),
		},
	}
	if len(keep) > 0 {
		ids := make([]*qdrant.PointId, len(keep))
		for i, id := range keep {
			ids[i] = qdrant.NewIDUUID(id)
		}
		filter.MustNot = []*qdrant.Condition{qdrant.NewHasID(ids...)}
	}

	return backoff.Retry(func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: s.collection,
			Wait:           qdrant.PtrOf(true),
			Points:         qdrant.NewPointsSelectorFilter(filter),
		})
		return err
	}, backoff.WithContext(newBackOff(), ctx))
}

// Query returns up to topK chunks most similar to text, best first. Query
// and embedding failures are wrapped with domain.ErrIndexUnavailable.
func (s *QdrantIndex) Query(ctx context.Context, text string, topK int, filter domain.Filter) ([]domain.Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	var results []*qdrant.ScoredPoint
	err := s.exec.Execute(ctx, "qdrant.query", func(ctx context.Context) error {
		vectors, err := s.embedder.Embed(ctx, []string{text})
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		if len(vectors) != 1 {
			return fmt.Errorf("embed query: got %d vectors", len(vectors))
		}

		using := vectorName
		results, err = s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.collection,
			Query:          qdrant.NewQuery(vectors[0]...),
			Using:          &using,
			Filter:         buildFilter(filter),
			Limit:          qdrant.PtrOf(uint64(topK)),
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(false),
		})
		return err
	}, nil)
	if err != nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "qdrant query", err)
	}

	matches := make([]domain.Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, toMatch(r.GetId(), r.GetPayload(), float64(r.GetScore())))
	}
	return matches, nil
}

// ScrollEntity returns every chunk of a source entity ordered by chunk index.
func (s *QdrantIndex) ScrollEntity(ctx context.Context, entityID string) ([]domain.Match, error) {
	var (
		matches []domain.Match
		offset  *qdrant.PointId
	)
	const pageSize = uint32(100)

	for {
		points, next, err := s.client.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Filter: &qdrant.Filter{
				Must: []*qdrant.Condition{
					qdrant.NewMatch(domain.MetaSourceEntityID, entityID),
				},
			},
			Limit:       qdrant.PtrOf(pageSize),
			Offset:      offset,
			WithPayload: qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll entity %s: %w", entityID, err)
		}

		for _, p := range points {
			matches = append(matches, toMatch(p.GetId(), p.GetPayload(), 0))
		}

		// next is the first point of the following page, nil on the last one.
		if next == nil {
			break
		}
		offset = next
	}

	sortByChunkIndex(matches)
	return matches, nil
}

// CollectionInfo contains collection statistics.
type CollectionInfo struct {
	PointsCount uint64
}

// Stats retrieves collection statistics.
func (s *QdrantIndex) Stats(ctx context.Context) (*CollectionInfo, error) {
	collection, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	return &CollectionInfo{PointsCount: collection.GetPointsCount()}, nil
}

func buildFilter(f domain.Filter) *qdrant.Filter {
	var must []*qdrant.Condition

	if f.Kind != "" {
		must = append(must, qdrant.NewMatch(domain.MetaKind, string(f.Kind)))
	}
	if f.Category != "" {
		must = append(must, qdrant.NewMatch(payloadCategoryKey, domain.CategoryKey(f.Category)))
	}
	if f.MinPrice > 0 || f.MaxPrice > 0 {
		r := &qdrant.Range{}
		if f.MinPrice > 0 {
			r.Gte = qdrant.PtrOf(f.MinPrice)
		}
		if f.MaxPrice > 0 {
			r.Lte = qdrant.PtrOf(f.MaxPrice)
		}
		must = append(must, qdrant.NewRange(domain.MetaPrice, r))
	}

	keys := make([]string, 0, len(f.Fields))
	for k := range f.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		must = append(must, qdrant.NewMatch(k, f.Fields[k]))
	}

	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

func toMatch(id *qdrant.PointId, payload map[string]*qdrant.Value, score float64) domain.Match {
	md := make(domain.Metadata, len(payload))
	for k, v := range payload {
		if k == payloadText || k == payloadCategoryKey {
			continue
		}
		md[k] = fromValue(v)
	}
	return domain.Match{
		ID:       id.GetUuid(),
		Text:     payload[payloadText].GetStringValue(),
		Metadata: md,
		Score:    score,
	}
}

// toPayload converts metadata into types qdrant.NewValueMap accepts.
func toPayload(md domain.Metadata) map[string]any {
	out := make(map[string]any, len(md)+1)
	for k, v := range md {
		if pv, ok := toPayloadValue(v); ok {
			out[k] = pv
		}
	}
	return out
}

func toPayloadValue(v any) (any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case string, bool, int64, float64:
		return val, true
	case int:
		return int64(val), true
	case int32:
		return int64(val), true
	case float32:
		return float64(val), true
	case []string:
		items := make([]any, len(val))
		for i, s := range val {
			items[i] = s
		}
		return items, true
	case []any:
		items := make([]any, 0, len(val))
		for _, it := range val {
			if pv, ok := toPayloadValue(it); ok {
				items = append(items, pv)
			}
		}
		return items, true
	default:
		return fmt.Sprint(val), true
	}
}

func fromValue(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		values := kind.ListValue.GetValues()
		items := make([]any, len(values))
		for i, item := range values {
			items[i] = fromValue(item)
		}
		return items
	case *qdrant.Value_StructValue:
		fields := kind.StructValue.GetFields()
		out := make(map[string]any, len(fields))
		for k, item := range fields {
			out[k] = fromValue(item)
		}
		return out
	default:
		return nil
	}
}

func sortByChunkIndex(matches []domain.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, _ := matches[i].Metadata.Int(domain.MetaChunkIndex)
		b, _ := matches[j].Metadata.Int(domain.MetaChunkIndex)
		return a < b
	})
}
