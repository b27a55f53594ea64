package service

import (
	"context"
	"sync"
	"time"

	"github.com/Tryboy869/gitradar/internal/domain"
	"github.com/Tryboy869/gitradar/internal/port"
	"github.com/stretchr/testify/mock"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) Search(ctx context.Context, q port.SearchQuery) ([]domain.RepositorySnapshot, error) {
	args := m.Called(ctx, q)
	snaps, _ := args.Get(0).([]domain.RepositorySnapshot)
	return snaps, args.Error(1)
}

func (m *MockSource) FetchReadme(ctx context.Context, fullName string) (string, error) {
	args := m.Called(ctx, fullName)
	return args.String(0), args.Error(1)
}

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(snapshot domain.RepositorySnapshot, readme string, now time.Time) domain.AnalysisResult {
	args := m.Called(snapshot, readme, now)
	return args.Get(0).(domain.AnalysisResult)
}

type MockRepositoryStore struct {
	mock.Mock
}

func (m *MockRepositoryStore) FindByExternalID(ctx context.Context, externalID int64) (*domain.RepositoryRecord, error) {
	args := m.Called(ctx, externalID)
	record, _ := args.Get(0).(*domain.RepositoryRecord)
	return record, args.Error(1)
}

func (m *MockRepositoryStore) Upsert(ctx context.Context, record *domain.RepositoryRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRepositoryStore) Query(ctx context.Context, q port.RepositoryQuery) ([]*domain.RepositoryRecord, error) {
	args := m.Called(ctx, q)
	records, _ := args.Get(0).([]*domain.RepositoryRecord)
	return records, args.Error(1)
}

func (m *MockRepositoryStore) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepositoryStore) CategoryCounts(ctx context.Context) (map[domain.Category]int64, error) {
	args := m.Called(ctx)
	counts, _ := args.Get(0).(map[domain.Category]int64)
	return counts, args.Error(1)
}

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) CreateUser(ctx context.Context, user *domain.UserAccount) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserStore) FindByEmail(ctx context.Context, email string) (*domain.UserAccount, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*domain.UserAccount)
	return user, args.Error(1)
}

func (m *MockUserStore) ReadPreferences(ctx context.Context, userID string) ([]byte, error) {
	args := m.Called(ctx, userID)
	prefs, _ := args.Get(0).([]byte)
	return prefs, args.Error(1)
}

func (m *MockUserStore) UpdatePreferences(ctx context.Context, userID string, prefs []byte) error {
	args := m.Called(ctx, userID, prefs)
	return args.Error(0)
}

type MockSearchCache struct {
	mock.Mock
}

func (m *MockSearchCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Bool(1), args.Error(2)
}

func (m *MockSearchCache) Set(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockSearchCache) Flush(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// memoryStore 以 ExternalID 为键的内存仓库库, 模拟 upsert 语义
type memoryStore struct {
	mu      sync.Mutex
	records map[int64]domain.RepositoryRecord
	upserts int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[int64]domain.RepositoryRecord)}
}

func (s *memoryStore) FindByExternalID(_ context.Context, externalID int64) (*domain.RepositoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[externalID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *memoryStore) Upsert(_ context.Context, record *domain.RepositoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ExternalID] = *record
	s.upserts++
	return nil
}

func (s *memoryStore) Query(context.Context, port.RepositoryQuery) ([]*domain.RepositoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.RepositoryRecord, 0, len(s.records))
	for _, r := range s.records {
		r := r
		out = append(out, &r)
	}
	return out, nil
}

func (s *memoryStore) Count(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.records)), nil
}

func (s *memoryStore) CategoryCounts(context.Context) (map[domain.Category]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[domain.Category]int64)
	for _, r := range s.records {
		counts[r.Category]++
	}
	return counts, nil
}

// blockingSource 第一次 Search 时阻塞, 直到 release 被关闭
type blockingSource struct {
	entered  chan struct{}
	release  chan struct{}
	searches int32
	once     sync.Once
	mu       sync.Mutex
}

func newBlockingSource() *blockingSource {
	return &blockingSource{entered: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingSource) Search(ctx context.Context, _ port.SearchQuery) ([]domain.RepositorySnapshot, error) {
	b.mu.Lock()
	b.searches++
	b.mu.Unlock()

	b.once.Do(func() { close(b.entered) })
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return nil, nil
}

func (b *blockingSource) FetchReadme(context.Context, string) (string, error) {
	return "", nil
}

func (b *blockingSource) count() int32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.searches
}
