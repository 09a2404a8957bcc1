package impl

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"lecturehall/config"
	"lecturehall/internal/domain/entity"
	"lecturehall/internal/domain/repository"
	"lecturehall/internal/domain/service"
	"lecturehall/internal/infra/auth"
	"lecturehall/internal/infra/blob"
	"lecturehall/internal/infra/media"
	"lecturehall/internal/infra/persistence/gormrepo"
	"lecturehall/internal/infra/session"
	"lecturehall/internal/testsupport"
	"lecturehall/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testInviteCode = "let-me-in"

func newTestConfig() *config.Config {
	return &config.Config{
		Auth: &config.AuthConfig{
			BcryptCost:          bcrypt.MinCost,
			MinCredentialLength: 6,
			MaxCredentialLength: 72,
			FirstAccountIsAdmin: true,
			AdminInviteCode:     testInviteCode,
		},
		Session: &config.SessionConfig{},
		Content: &config.ContentConfig{
			Namespaces:        []string{"SAT", "IELTS"},
			AllowedExtensions: []string{".mp3", ".mp4", ".webm"},
			MaxUploadSize:     "1MB",
			MaxDepth:          16,
		},
		Blob: &config.BlobConfig{
			Provider:     config.BlobProviderGoCloud,
			URL:          "mem://",
			SignedURLTTL: time.Minute,
		},
	}
}

// trackingBlobStore records which paths hold objects so tests can assert on leftovers.
type trackingBlobStore struct {
	service.BlobStore

	mu   sync.Mutex
	puts int
	live map[string]bool
}

func (s *trackingBlobStore) Put(ctx context.Context, path string, content io.Reader, contentType string) error {
	s.mu.Lock()
	s.puts++
	s.mu.Unlock()

	if err := s.BlobStore.Put(ctx, path, content, contentType); err != nil {
		return err
	}

	s.mu.Lock()
	s.live[path] = true
	s.mu.Unlock()

	return nil
}

func (s *trackingBlobStore) Delete(ctx context.Context, path string) error {
	err := s.BlobStore.Delete(ctx, path)

	s.mu.Lock()
	delete(s.live, path)
	s.mu.Unlock()

	return err
}

func (s *trackingBlobStore) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.puts
}

func (s *trackingBlobStore) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.live)
}

// mockBlobStore is a testify mock of service.BlobStore.
type mockBlobStore struct {
	mock.Mock
}

func (m *mockBlobStore) Put(ctx context.Context, path string, content io.Reader, contentType string) error {
	args := m.Called(ctx, path, content, contentType)

	return args.Error(0)
}

func (m *mockBlobStore) Open(ctx context.Context, path string) (*service.BlobObject, error) {
	args := m.Called(ctx, path)
	object, _ := args.Get(0).(*service.BlobObject)

	return object, args.Error(1)
}

func (m *mockBlobStore) Delete(ctx context.Context, path string) error {
	args := m.Called(ctx, path)

	return args.Error(0)
}

func (m *mockBlobStore) Exists(ctx context.Context, path string) (bool, error) {
	args := m.Called(ctx, path)

	return args.Bool(0), args.Error(1)
}

func (m *mockBlobStore) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, path, ttl)

	return args.String(0), args.Error(1)
}

// failingAssetInsert makes every asset insert inside a transaction fail.
type failingAssetInsert struct {
	repository.TransactionManager
}

func (f failingAssetInsert) Execute(ctx context.Context, fn func(repository.RepositoryFactory) error) error {
	return f.TransactionManager.Execute(ctx, func(factory repository.RepositoryFactory) error {
		return fn(failingAssetFactory{factory})
	})
}

type failingAssetFactory struct {
	repository.RepositoryFactory
}

func (f failingAssetFactory) AssetRepo() repository.AssetRepository {
	return failingAssetRepo{f.RepositoryFactory.AssetRepo()}
}

type failingAssetRepo struct {
	repository.AssetRepository
}

func (failingAssetRepo) Create(context.Context, *entity.Asset) error {
	return errors.New("disk full")
}

// vanishingFolder deletes the folder as soon as it is locked, so the insert that follows runs
// against a folder removed after the check.
type vanishingFolder struct {
	repository.TransactionManager
}

func (v vanishingFolder) Execute(ctx context.Context, fn func(repository.RepositoryFactory) error) error {
	return v.TransactionManager.Execute(ctx, func(factory repository.RepositoryFactory) error {
		return fn(vanishingFolderFactory{factory})
	})
}

type vanishingFolderFactory struct {
	repository.RepositoryFactory
}

func (f vanishingFolderFactory) FolderRepo() repository.FolderRepository {
	return vanishingFolderRepo{f.RepositoryFactory.FolderRepo()}
}

type vanishingFolderRepo struct {
	repository.FolderRepository
}

func (r vanishingFolderRepo) LockByID(ctx context.Context, id uuid.UUID) (*entity.Folder, error) {
	folder, err := r.FolderRepository.LockByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.FolderRepository.Delete(ctx, id); err != nil {
		return nil, err
	}

	return folder, nil
}

type fixture struct {
	cfg        *config.Config
	db         *gorm.DB
	txManager  repository.TransactionManager
	folderRepo repository.FolderRepository
	assetRepo  repository.AssetRepository
	blobs      *trackingBlobStore
	store      *session.MemoryStore

	identity usecase.IdentityUsecase
	sessions usecase.SessionUsecase
	auth     usecase.AuthUsecase
	folders  usecase.FolderUsecase
	assets   usecase.AssetUsecase
	uploads  usecase.UploadUsecase

	admin *entity.Session
	user  *entity.Session
}

type fixtureOption func(*fixture)

// withTxManager swaps the transaction manager used by the content services.
func withTxManager(wrap func(repository.TransactionManager) repository.TransactionManager) fixtureOption {
	return func(f *fixture) {
		f.txManager = wrap(f.txManager)
	}
}

// withBlobStore replaces the in-memory bucket.
func withBlobStore(store service.BlobStore) fixtureOption {
	return func(f *fixture) {
		f.blobs.BlobStore = store
	}
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	ctx := context.Background()
	cfg := newTestConfig()
	db := testsupport.NewDB(t)
	logger := testsupport.DiscardLogger()

	bucket, err := blob.OpenBucketStore(ctx, "mem://")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bucket.Close() })

	f := &fixture{
		cfg:        cfg,
		db:         db,
		txManager:  gormrepo.NewTransactionManager(db),
		folderRepo: gormrepo.NewFolderRepository(db),
		assetRepo:  gormrepo.NewAssetRepository(db),
		blobs:      &trackingBlobStore{BlobStore: bucket, live: map[string]bool{}},
		store:      session.NewMemoryStore(),
		admin:      &entity.Session{ID: "admin-token", AccountID: uuid.New(), Identifier: "admin", Role: entity.RoleAdmin},
		user:       &entity.Session{ID: "user-token", AccountID: uuid.New(), Identifier: "reader", Role: entity.RoleUser},
	}
	for _, opt := range opts {
		opt(f)
	}

	f.identity = NewIdentityService(IdentityServiceParams{
		TxManager:   f.txManager,
		AccountRepo: gormrepo.NewAccountRepository(db),
		Hasher:      auth.NewBcryptHasher(cfg),
		RolePolicy:  auth.NewRolePolicy(cfg),
		Config:      cfg,
		Logger:      logger,
	})
	f.sessions = NewSessionService(SessionServiceParams{
		TokenService: auth.NewTokenServiceWithSecret([]byte("test-secret")),
		SessionStore: f.store,
		Config:       cfg,
		Logger:       logger,
	})
	f.auth = NewAuthService(AuthServiceParams{
		Identity: f.identity,
		Sessions: f.sessions,
		Logger:   logger,
	})
	f.folders = NewFolderService(FolderServiceParams{
		TxManager:  f.txManager,
		FolderRepo: f.folderRepo,
		BlobStore:  f.blobs,
		Config:     cfg,
		Logger:     logger,
	})
	f.assets = NewAssetService(AssetServiceParams{
		TxManager:  f.txManager,
		AssetRepo:  f.assetRepo,
		FolderRepo: f.folderRepo,
		BlobStore:  f.blobs,
		Config:     cfg,
		Logger:     logger,
	})
	f.uploads, err = NewUploadPipeline(UploadPipelineParams{
		TxManager:  f.txManager,
		FolderRepo: f.folderRepo,
		BlobStore:  f.blobs,
		Probe:      media.NewProbe(),
		Config:     cfg,
		Logger:     logger,
	})
	require.NoError(t, err)

	return f
}

func (f *fixture) mkdir(t *testing.T, namespace, name string, parentID *uuid.UUID) *entity.Folder {
	t.Helper()

	folder, err := f.folders.CreateFolder(context.Background(), f.admin, &usecase.CreateFolderInput{
		ParentID:  parentID,
		Namespace: namespace,
		Name:      name,
	})
	require.NoError(t, err)

	return folder
}

func (f *fixture) upload(t *testing.T, folderID uuid.UUID, title string) *usecase.AssetView {
	t.Helper()

	view, err := f.uploads.Upload(context.Background(), f.admin, audioUpload(folderID, title))
	require.NoError(t, err)

	return view
}

func audioUpload(folderID uuid.UUID, title string) *usecase.UploadInput {
	content := []byte("ID3\x03\x00\x00\x00\x00\x00\x00lecture audio")

	return &usecase.UploadInput{
		FolderID: folderID,
		Title:    title,
		Metadata: entity.AssetMetadata{Tutor: "Ms. Kim", Duration: "12:00"},
		File: &usecase.UploadFile{
			Name:         "intro.mp3",
			Size:         int64(len(content)),
			DeclaredMIME: "audio/mpeg",
			Content:      bytes.NewReader(content),
		},
	}
}
