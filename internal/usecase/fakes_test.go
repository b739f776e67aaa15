package usecase

import (
	"context"
	"fmt"
	"path"
	"sync"

	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/DRSN-tech/image-catalog/pkg/e"
)

// memoryBlobs - хранилище объектов в памяти
type memoryBlobs struct {
	mu        sync.Mutex
	buckets   map[string]map[string][]byte
	metadata  map[string]map[string]string
	processed string
	backups   map[string][]byte
	cleaned   []string
	calls     []string
	fetchErr  error
	backupErr error
}

func newMemoryBlobs(processed string) *memoryBlobs {
	return &memoryBlobs{
		buckets:   map[string]map[string][]byte{processed: {}},
		metadata:  map[string]map[string]string{},
		processed: processed,
		backups:   map[string][]byte{},
	}
}

func (m *memoryBlobs) put(bucket, key string, data []byte, meta map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.buckets[bucket] == nil {
		m.buckets[bucket] = map[string][]byte{}
	}
	m.buckets[bucket][key] = data
	m.metadata[bucket+"/"+key] = meta
}

func (m *memoryBlobs) has(bucket, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.buckets[bucket][key]
	return ok
}

func (m *memoryBlobs) Fetch(ctx context.Context, bucket, key string) (domain.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "fetch")
	if m.fetchErr != nil {
		return domain.ObjectInfo{}, m.fetchErr
	}

	data, ok := m.buckets[bucket][key]
	if !ok {
		return domain.ObjectInfo{}, e.Wrap(key, e.ErrObjectNotFound)
	}

	return domain.ObjectInfo{
		Bucket:      bucket,
		ObjectKey:   key,
		LocalPath:   path.Join("/scratch", path.Base(key)),
		Size:        int64(len(data)),
		ContentType: "image/jpeg",
		Metadata:    m.metadata[bucket+"/"+key],
	}, nil
}

func (m *memoryBlobs) ProcessedPath(key string) string {
	return m.processed + "/" + key
}

func (m *memoryBlobs) Relocate(ctx context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "relocate")

	data, ok := m.buckets[bucket][key]
	if !ok {
		if _, done := m.buckets[m.processed][key]; done {
			return nil
		}
		return e.Wrap(key, e.ErrObjectNotFound)
	}
	m.buckets[m.processed][key] = data
	delete(m.buckets[bucket], key)
	return nil
}

func (m *memoryBlobs) Backup(ctx context.Context, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "backup")
	if m.backupErr != nil {
		return m.backupErr
	}
	m.backups[id] = data
	return nil
}

func (m *memoryBlobs) Cleanup(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleaned = append(m.cleaned, p)
}

type fakeEncoder struct {
	err error
}

func (f fakeEncoder) Encode(p string) (domain.EncodedImage, error) {
	if f.err != nil {
		return domain.EncodedImage{}, f.err
	}
	return domain.NewEncodedImage([]byte("png:"+p), "image/png"), nil
}

// fakeResolver отвечает по таблице названий; запросы записываются.
type fakeResolver struct {
	byName    map[string]domain.LocationResult
	fromImage domain.LocationResult
	names     []string
	images    int
}

func (f *fakeResolver) ResolveFromImage(ctx context.Context, p string) domain.LocationResult {
	f.images++
	return f.fromImage
}

func (f *fakeResolver) ResolveFromCoordinates(ctx context.Context, lat, lon float64) domain.LocationResult {
	return domain.NotFound()
}

func (f *fakeResolver) ResolveFromName(ctx context.Context, name string) domain.LocationResult {
	f.names = append(f.names, name)
	if res, ok := f.byName[name]; ok {
		return res
	}
	return domain.NotFound()
}

type fakeAnalyzer struct {
	err          error
	gotLocation  *domain.LocationDetails
	gotImageMIME string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, image domain.EncodedImage, location *domain.LocationDetails) (*domain.ImageAnalysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.gotLocation = location
	f.gotImageMIME = image.MIMEType
	return domain.NewImageAnalysis("A temple.", []string{"red"}, []string{"temple"}, location), nil
}

type fakeEmbedder struct {
	vector  []float32
	err     error
	gotText string
	calls   int
}

func (f *fakeEmbedder) EmbedImage(ctx context.Context, image domain.EncodedImage, text string) ([]float32, error) {
	f.calls++
	f.gotText = text
	return f.vector, f.err
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	f.gotText = text
	return f.vector, f.err
}

type recordingSink struct {
	records  []domain.ImageRecord
	sourceID string
	err      error
}

func (r *recordingSink) Upsert(ctx context.Context, vector []float32, sourceID string, record domain.ImageRecord) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.records = append(r.records, record)
	r.sourceID = sourceID
	return fmt.Sprintf("id-%d", len(r.records)), nil
}

// ordered записывает порядок вызовов хранилищ
type ordered struct {
	calls *[]string
}

type fakeMetadataRepo struct {
	ordered
	records map[string]domain.ImageRecord
	saveErr error
	gets    int
}

func (f *fakeMetadataRepo) Save(ctx context.Context, id string, record domain.ImageRecord) error {
	*f.calls = append(*f.calls, "metadata")
	if f.saveErr != nil {
		return f.saveErr
	}
	f.records[id] = record
	return nil
}

func (f *fakeMetadataRepo) Get(ctx context.Context, id string) (*domain.ImageRecord, error) {
	f.gets++
	r, ok := f.records[id]
	if !ok {
		return nil, e.Wrap(id, e.ErrNotFound)
	}
	return &r, nil
}

type fakeOutboxRepo struct {
	ordered
	events []*OutboxEvent
}

func (f *fakeOutboxRepo) Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error) {
	*f.calls = append(*f.calls, "outbox")
	f.events = append(f.events, event)
	return event, nil
}

func (f *fakeOutboxRepo) GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepo) MarkAsProcessed(ctx context.Context, id int64) error {
	return nil
}

func (f *fakeOutboxRepo) MarkAsPending(ctx context.Context, id int64) error {
	return nil
}

type fakeEmbeddingRepo struct {
	ordered
	upserted []domain.Embedding
	points   []domain.ScoredPoint
	limit    uint64
	err      error
}

func (f *fakeEmbeddingRepo) Upsert(ctx context.Context, vectors []domain.Embedding) error {
	*f.calls = append(*f.calls, "index")
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, vectors...)
	return nil
}

func (f *fakeEmbeddingRepo) Search(ctx context.Context, vector []float32, limit uint64) ([]domain.ScoredPoint, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.points, nil
}

type recordingTransactor struct {
	ordered
}

func (r recordingTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	*r.calls = append(*r.calls, "begin")
	if err := fn(ctx); err != nil {
		*r.calls = append(*r.calls, "rollback")
		return err
	}
	*r.calls = append(*r.calls, "commit")
	return nil
}

type memoryCache struct {
	metadata map[string]map[string]any
	getErr   error
}

func (m *memoryCache) GetLocation(ctx context.Context, key string) (*domain.LocationDetails, bool, error) {
	return nil, false, nil
}

func (m *memoryCache) SetLocation(ctx context.Context, key string, location *domain.LocationDetails) error {
	return nil
}

func (m *memoryCache) GetMetadata(ctx context.Context, ids []string) (map[string]map[string]any, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := map[string]map[string]any{}
	for _, id := range ids {
		if v, ok := m.metadata[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (m *memoryCache) SetMetadata(ctx context.Context, metadata map[string]map[string]any) error {
	for k, v := range metadata {
		m.metadata[k] = v
	}
	return nil
}
