package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"lecturehall/config"
	"lecturehall/internal/delivery/api/middleware"
	"lecturehall/internal/delivery/api/response"
	"lecturehall/internal/delivery/api/router"
	"lecturehall/internal/delivery/api/router/handler"
	"lecturehall/internal/infra/auth"
	"lecturehall/internal/infra/blob"
	"lecturehall/internal/infra/media"
	"lecturehall/internal/infra/persistence/gormrepo"
	"lecturehall/internal/infra/session"
	"lecturehall/internal/testsupport"
	"lecturehall/internal/usecase/impl"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Data  json.RawMessage     `json:"data"`
	Error *response.ErrorInfo `json:"error"`
	Meta  response.MetaInfo   `json:"meta"`
}

type apiFixture struct {
	t *testing.T
	e *echo.Echo
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	cfg := &config.Config{
		Auth: &config.AuthConfig{
			BcryptCost:          bcrypt.MinCost,
			MinCredentialLength: 6,
			MaxCredentialLength: 72,
			FirstAccountIsAdmin: true,
		},
		Session: &config.SessionConfig{CookieName: "session"},
		Content: &config.ContentConfig{
			Namespaces:        []string{"SAT", "IELTS"},
			AllowedExtensions: []string{".mp3", ".mp4"},
			MaxUploadSize:     "1MB",
			MaxDepth:          16,
		},
		Blob: &config.BlobConfig{Provider: config.BlobProviderGoCloud, URL: "mem://", SignedURLTTL: time.Minute},
	}
	cfg.HTTP.MaxRequestBodySize = "100KB"

	db := testsupport.NewDB(t)
	logger := testsupport.DiscardLogger()

	bucket, err := blob.OpenBucketStore(context.Background(), "mem://")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bucket.Close() })

	txManager := gormrepo.NewTransactionManager(db)
	folderRepo := gormrepo.NewFolderRepository(db)
	assetRepo := gormrepo.NewAssetRepository(db)

	identity := impl.NewIdentityService(impl.IdentityServiceParams{
		TxManager:   txManager,
		AccountRepo: gormrepo.NewAccountRepository(db),
		Hasher:      auth.NewBcryptHasher(cfg),
		RolePolicy:  auth.NewRolePolicy(cfg),
		Config:      cfg,
		Logger:      logger,
	})
	sessions := impl.NewSessionService(impl.SessionServiceParams{
		TokenService: auth.NewTokenServiceWithSecret([]byte("api-test-secret")),
		SessionStore: session.NewMemoryStore(),
		Config:       cfg,
		Logger:       logger,
	})
	uploads, err := impl.NewUploadPipeline(impl.UploadPipelineParams{
		TxManager:  txManager,
		FolderRepo: folderRepo,
		BlobStore:  bucket,
		Probe:      media.NewProbe(),
		Config:     cfg,
		Logger:     logger,
	})
	require.NoError(t, err)

	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthMiddlewareParams{
		Sessions: sessions,
		Config:   cfg,
		Logger:   logger,
	})

	e, err := NewEcho(cfg, logger, router.RouterParams{
		AuthHandler: handler.NewAuthHandler(handler.AuthHandlerParams{
			AuthUC: impl.NewAuthService(impl.AuthServiceParams{
				Identity: identity,
				Sessions: sessions,
				Logger:   logger,
			}),
			AuthMiddleware: authMiddleware,
			Config:         cfg,
			Logger:         logger,
		}),
		FolderHandler: handler.NewFolderHandler(handler.FolderHandlerParams{
			FolderUC: impl.NewFolderService(impl.FolderServiceParams{
				TxManager:  txManager,
				FolderRepo: folderRepo,
				BlobStore:  bucket,
				Config:     cfg,
				Logger:     logger,
			}),
			Logger: logger,
		}),
		AssetHandler: handler.NewAssetHandler(handler.AssetHandlerParams{
			AssetUC: impl.NewAssetService(impl.AssetServiceParams{
				TxManager:  txManager,
				AssetRepo:  assetRepo,
				FolderRepo: folderRepo,
				BlobStore:  bucket,
				Config:     cfg,
				Logger:     logger,
			}),
			UploadUC: uploads,
			Logger:   logger,
		}),
		AuthMiddleware: authMiddleware,
		Config:         cfg,
	})
	require.NoError(t, err)

	return &apiFixture{t: t, e: e}
}

func (f *apiFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	return rec
}

func (f *apiFixture) json(method, path, token string, body any) *httptest.ResponseRecorder {
	f.t.Helper()

	var payload bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&payload).Encode(body))
	}

	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	return f.serve(req)
}

func (f *apiFixture) upload(token string, fields map[string]string, fileName, fileType string, content []byte) *httptest.ResponseRecorder {
	f.t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(f.t, writer.WriteField(key, value))
	}
	if fileName != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
		header.Set("Content-Type", fileType)
		part, err := writer.CreatePart(header)
		require.NoError(f.t, err)
		_, err = part.Write(content)
		require.NoError(f.t, err)
	}
	require.NoError(f.t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/videos", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)

	return f.serve(req)
}

// login signs up and logs in, returning the bearer token.
func (f *apiFixture) login(identifier string) string {
	f.t.Helper()

	rec := f.json(http.MethodPost, "/api/signup", "", map[string]string{"usernameOrEmail": identifier, "credential": "secret-pass"})
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.json(http.MethodPost, "/api/login", "", map[string]string{"usernameOrEmail": identifier, "credential": "secret-pass"})
	require.Equal(f.t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Token string `json:"token"`
	}
	decodeData(f.t, rec, &out)
	require.NotEmpty(f.t, out.Token)

	return out.Token
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.Nil(t, env.Error, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.NotNil(t, env.Error, rec.Body.String())

	return env.Error.Code
}

func TestAPI_LectureLibraryScenario(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.login("admin@example.com")
	reader := f.login("reader@example.com")

	// Access control on folder creation.
	rec := f.json(http.MethodPost, "/api/folders", "", map[string]string{"namespace": "SAT", "name": "Math"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", errorCode(t, rec))

	rec = f.json(http.MethodPost, "/api/folders", reader, map[string]string{"namespace": "SAT", "name": "Math"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))

	rec = f.json(http.MethodPost, "/api/folders", admin, map[string]string{"namespace": "SAT", "name": "Math"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var math handler.FolderNode
	decodeData(t, rec, &math)
	assert.Nil(t, math.ParentID)

	rec = f.json(http.MethodPost, "/api/folders", admin, map[string]string{"namespace": "SAT", "name": "math"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_NAME", errorCode(t, rec))

	// Upload into Math.
	content := []byte("ID3\x03\x00\x00\x00\x00\x00\x00intro lecture")
	rec = f.upload(admin, map[string]string{"folderId": math.ID.String(), "title": "Intro", "tutor": "Ms. Kim"}, "intro.mp3", "audio/mpeg", content)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var intro handler.MediaAsset
	decodeData(t, rec, &intro)
	assert.Equal(t, "Intro", intro.Title)
	assert.Equal(t, "audio", intro.Kind)
	assert.Equal(t, "Math", intro.Folder.Name)

	rec = f.json(http.MethodGet, "/api/videos?folderId="+math.ID.String(), reader, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []handler.MediaAsset
	decodeData(t, rec, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, "Intro", listed[0].Title)

	rec = f.json(http.MethodGet, "/api/videos/"+intro.ID.String()+"/content", reader, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, content, rec.Body.Bytes())
	assert.Equal(t, "audio/mpeg", rec.Header().Get(echo.HeaderContentType))

	// Child folder, then delete the parent.
	rec = f.json(http.MethodPost, "/api/folders", admin, map[string]string{"parentId": math.ID.String(), "name": "Algebra"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var algebra handler.FolderNode
	decodeData(t, rec, &algebra)
	assert.Equal(t, "SAT", algebra.Namespace)

	rec = f.json(http.MethodDelete, "/api/folders/"+math.ID.String(), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var deleted struct {
		DeletedAssetCount int `json:"deletedAssetCount"`
	}
	decodeData(t, rec, &deleted)
	assert.Equal(t, 1, deleted.DeletedAssetCount)

	rec = f.json(http.MethodGet, "/api/folders/"+algebra.ID.String(), reader, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &algebra)
	assert.Nil(t, algebra.ParentID)

	rec = f.json(http.MethodGet, "/api/videos", reader, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &listed)
	assert.Empty(t, listed)

	rec = f.json(http.MethodGet, "/api/videos/"+intro.ID.String(), reader, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ASSET_NOT_FOUND", errorCode(t, rec))
}

func TestAPI_SessionLifecycle(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.json(http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := f.login("Ada@Example.com")

	rec = f.json(http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		UsernameOrEmail string `json:"usernameOrEmail"`
		Role            string `json:"role"`
	}
	decodeData(t, rec, &me)
	assert.Equal(t, "Ada@Example.com", me.UsernameOrEmail)
	assert.Equal(t, "admin", me.Role)

	// The login cookie works in place of the header.
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: token})
	assert.Equal(t, http.StatusOK, f.serve(req).Code)

	rec = f.json(http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ok struct {
		OK bool `json:"ok"`
	}
	decodeData(t, rec, &ok)
	assert.True(t, ok.OK)

	rec = f.json(http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Logout never fails.
	assert.Equal(t, http.StatusOK, f.json(http.MethodPost, "/api/logout", "", nil).Code)
	assert.Equal(t, http.StatusOK, f.json(http.MethodPost, "/api/logout", "garbage", nil).Code)
}

func TestAPI_SignupAndLoginErrors(t *testing.T) {
	f := newAPIFixture(t)
	f.login("ada")

	rec := f.json(http.MethodPost, "/api/signup", "", map[string]string{"usernameOrEmail": "ADA", "credential": "another-pass"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_IDENTITY", errorCode(t, rec))

	rec = f.json(http.MethodPost, "/api/signup", "", map[string]string{"usernameOrEmail": "bob"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, rec))

	rec = f.json(http.MethodPost, "/api/signup", "", map[string]string{"usernameOrEmail": "bob", "credential": "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIAL", errorCode(t, rec))

	rec = f.json(http.MethodPost, "/api/login", "", map[string]string{"usernameOrEmail": "ada", "credential": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, rec))

	req := httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(`{"usernameOrEmail":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = f.serve(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, rec))

	huge := strings.Repeat("x", 200<<10)
	rec = f.json(http.MethodPost, "/api/signup", "", map[string]string{"usernameOrEmail": huge, "credential": "secret-pass"})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAPI_UploadErrors(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.login("admin")

	rec := f.json(http.MethodPost, "/api/folders", admin, map[string]string{"namespace": "IELTS", "name": "Listening"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var folder handler.FolderNode
	decodeData(t, rec, &folder)
	fields := func(title string) map[string]string {
		return map[string]string{"folderId": folder.ID.String(), "title": title}
	}

	rec = f.upload(admin, fields(""), "a.mp3", "audio/mpeg", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, rec))

	rec = f.upload(admin, map[string]string{"folderId": uuid.NewString(), "title": "x"}, "a.mp3", "audio/mpeg", []byte("x"))
	assert.Equal(t, "INVALID_FOLDER", errorCode(t, rec))

	rec = f.upload(admin, map[string]string{"folderId": "not-an-id", "title": "x"}, "a.mp3", "audio/mpeg", []byte("x"))
	assert.Equal(t, "INVALID_FOLDER", errorCode(t, rec))

	rec = f.upload(admin, fields("No file"), "", "", nil)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, rec))

	rec = f.upload(admin, fields("Notes"), "notes.pdf", "application/pdf", []byte("%PDF-1.4"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNSUPPORTED_MEDIA", errorCode(t, rec))

	rec = f.upload(admin, fields("Big"), "big.mp3", "audio/mpeg", bytes.Repeat([]byte{1}, 3<<19))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE_TOO_LARGE", errorCode(t, rec))

	rec = f.upload(admin, fields("Huge"), "huge.mp3", "audio/mpeg", bytes.Repeat([]byte{1}, 3<<20))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE_TOO_LARGE", errorCode(t, rec))

	rec = f.json(http.MethodGet, "/api/videos", admin, nil)
	var listed []handler.MediaAsset
	decodeData(t, rec, &listed)
	assert.Empty(t, listed)
}

func TestAPI_FolderRoutes(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.login("admin")

	create := func(body map[string]string) handler.FolderNode {
		rec := f.json(http.MethodPost, "/api/folders", admin, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var node handler.FolderNode
		decodeData(t, rec, &node)

		return node
	}

	sat := create(map[string]string{"namespace": "SAT", "name": "SAT Prep"})
	reading := create(map[string]string{"parentId": sat.ID.String(), "name": "Reading"})
	create(map[string]string{"namespace": "IELTS", "name": "Listening"})

	rec := f.json(http.MethodPut, "/api/folders/"+reading.ID.String(), admin, map[string]string{"name": "Reading & Writing", "badge": "NEW"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &reading)
	assert.Equal(t, "Reading & Writing", reading.Name)
	assert.Equal(t, "NEW", reading.Badge)

	rec = f.json(http.MethodGet, "/api/folders/"+reading.ID.String()+"/path", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var path []handler.FolderNode
	decodeData(t, rec, &path)
	require.Len(t, path, 2)
	assert.Equal(t, sat.ID, path[0].ID)

	rec = f.json(http.MethodPut, "/api/folders/"+sat.ID.String()+"/parent", admin, map[string]string{"parentId": reading.ID.String()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARENT", errorCode(t, rec))

	rec = f.json(http.MethodPut, "/api/folders/"+reading.ID.String()+"/parent", admin, map[string]any{"parentId": nil})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &reading)
	assert.Nil(t, reading.ParentID)

	rec = f.json(http.MethodGet, "/api/folders?namespace=sat&roots=true", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var roots []handler.FolderNode
	decodeData(t, rec, &roots)
	assert.Len(t, roots, 2)

	rec = f.json(http.MethodGet, "/api/folders?parentId=nope", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.json(http.MethodDelete, "/api/folders/"+uuid.NewString(), admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "FOLDER_NOT_FOUND", errorCode(t, rec))

	rec = f.json(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_AccessIsCheckedBeforeTheBody(t *testing.T) {
	f := newAPIFixture(t)
	f.login("admin")
	reader := f.login("reader")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
		code   string
	}{
		{"anonymous create folder", http.MethodPost, "/api/folders", "", http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"reader create folder", http.MethodPost, "/api/folders", reader, http.StatusForbidden, "FORBIDDEN"},
		{"anonymous move folder", http.MethodPut, "/api/folders/not-a-uuid/parent", "", http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"reader rename folder", http.MethodPut, "/api/folders/not-a-uuid", reader, http.StatusForbidden, "FORBIDDEN"},
		{"anonymous delete asset", http.MethodDelete, "/api/videos/not-a-uuid", "", http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"reader delete asset", http.MethodDelete, "/api/videos/not-a-uuid", reader, http.StatusForbidden, "FORBIDDEN"},
		{"reader update asset", http.MethodPut, "/api/videos/not-a-uuid", reader, http.StatusForbidden, "FORBIDDEN"},
		{"anonymous read folder", http.MethodGet, "/api/folders/not-a-uuid", "", http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"anonymous list assets", http.MethodGet, "/api/videos?folderId=nope", "", http.StatusUnauthorized, "UNAUTHENTICATED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.json(tt.method, tt.path, tt.token, map[string]any{})
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}

	// Uploads are refused before the multipart body is parsed or size checked.
	req := httptest.NewRequest(http.MethodPost, "/api/videos", strings.NewReader("not a form"))
	req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
	rec := f.serve(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", errorCode(t, rec))

	rec = f.upload(reader, map[string]string{"title": "x"}, "huge.mp3", "audio/mpeg", bytes.Repeat([]byte{1}, 3<<20))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))
}
