package helpers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"dropnest_backend/database"
	"dropnest_backend/internal/app"
	"dropnest_backend/internal/config"
	"dropnest_backend/internal/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// TestServer runs the full application wired against the test database from
// DATABASE_URL, an embedded redis, and throwaway local blob storage.
type TestServer struct {
	Server *httptest.Server
	DB     *gorm.DB
	Redis  *redis.Client

	redisSrv   *miniredis.Miniredis
	storageDir string
}

// RequireDatabase skips the test when no test database is configured.
func RequireDatabase(t *testing.T) {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
}

func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	config.LoadConfig()
	cfg := config.GetConfig()
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = "integration-test-secret"
	}

	storageDir, err := os.MkdirTemp("", "dropnest-test-blobs-*")
	if err != nil {
		t.Fatalf("failed to create storage directory: %v", err)
	}
	cfg.Storage.Type = "local"
	cfg.Storage.BasePath = storageDir

	logger.Init("test")

	db, err := database.ConnectGorm()
	if err != nil {
		t.Fatalf("failed to connect to test database (%s): %v", cfg.Database.DSN, err)
	}
	if err := database.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	redisSrv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start embedded redis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: redisSrv.Addr()})

	router, _ := app.SetupRouter(cfg, db, client)
	server := httptest.NewServer(router)

	return &TestServer{
		Server:     server,
		DB:         db,
		Redis:      client,
		redisSrv:   redisSrv,
		storageDir: storageDir,
	}
}

func (ts *TestServer) Close() {
	ts.Server.Close()
	ts.Redis.Close()
	ts.redisSrv.Close()
	os.RemoveAll(ts.storageDir)
}

// SendRequest performs a JSON request against the test server and returns
// the response together with its body.
func (ts *TestServer) SendRequest(t *testing.T, method, path, token string, body interface{}) (*http.Response, string) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := ts.Server.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return res, string(resBody)
}

// SendFile performs a multipart upload with the content under the "file"
// form field.
func (ts *TestServer) SendFile(t *testing.T, path, token, fileName string, content []byte) (*http.Response, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+path, &buf)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := ts.Server.Client().Do(req)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return res, string(resBody)
}

// Decode unmarshals a JSON response body, failing the test on bad JSON.
func Decode(t *testing.T, body string, out interface{}) {
	t.Helper()
	if err := json.Unmarshal([]byte(body), out); err != nil {
		t.Fatalf("failed to decode response %q: %v", body, err)
	}
}
