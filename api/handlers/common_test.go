// Common test helpers
package handlers

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/deepfind/config"
	"github.com/meghashyamc/deepfind/db/kvdb"
	"github.com/meghashyamc/deepfind/logger"
	"github.com/meghashyamc/deepfind/services/listing"
	"github.com/meghashyamc/deepfind/services/search"
	"github.com/meghashyamc/deepfind/validation"
	"github.com/stretchr/testify/require"
)

var defaultTestRequestHeaders = map[string]string{"Content-Type": "application/json"}

var testFiles = map[string]string{
	"file1.txt":              "This is test content for file1",
	"file2.go":               "package main\n\nfunc main() {\n\tprint(\"Hello\")\n}",
	"subdir/file3.md":        "# Test Markdown\n\nThis is a test markdown file",
	"subdir/file4.json":      `{"key": "value", "number": 42}`,
	"subdir/nested/file5.py": "def hello():\n    print('Hello World')",
}

type testCase struct {
	name             string
	requestHeaders   map[string]string
	requestBody      map[string]any
	queryParams      map[string]string
	expectedStatus   int
	expectedResponse map[string]any
}

type testServer struct {
	router  *gin.Engine
	service *search.Service
	views   *Views
}

func newTestLogger() logger.Logger {
	return logger.NewWithLevel(os.Stderr, slog.LevelDebug)
}

func setupTestServer(t *testing.T, assert *require.Assertions, tempDir string) (*testServer, func()) {

	t.Setenv("ENV", "test")

	cfg, err := config.Load("")
	assert.NoError(err, "could not load config")
	cfg.Set("KVDB_PATH", filepath.Join(t.TempDir(), "deepfind.db"))

	for relPath, content := range testFiles {
		fullPath := filepath.Join(tempDir, relPath)
		err := os.MkdirAll(filepath.Dir(fullPath), 0755)
		assert.NoError(err, "could not create test sub-directory")
		err = os.WriteFile(fullPath, []byte(content), 0644)
		assert.NoError(err, "could not write test file")
	}

	testLogger := newTestLogger()

	kvDB, err := kvdb.New(testLogger, cfg)
	assert.NoError(err, "could not create kv database")
	validator, err := validation.New(testLogger)
	assert.NoError(err, "could not create validator")

	lister := listing.New(testLogger)
	service := search.New(testLogger, lister, kvDB, search.Options{
		ResultCap:            cfg.GetResultCap(),
		Skip:                 search.SkipNamed(cfg.GetSystemDirectory()),
		CaseInsensitivePaths: cfg.GetCaseInsensitivePaths(),
		ProgressFolders:      cfg.GetProgressFolders(),
		ProgressFiles:        cfg.GetProgressFiles(),
	})
	views := NewViews(service, lister, cfg.GetDebounce())

	gin.SetMode(gin.TestMode)
	router := gin.New()

	SetupListing(router, testLogger, lister, validator)
	SetupViews(router, testLogger, views, validator)
	SetupSessions(router, testLogger, service, validator)

	cleanup := func() {
		views.CloseAll()
		err := kvDB.Close()
		assert.NoError(err, "could not close kv database")
		err = os.RemoveAll(tempDir)
		assert.NoError(err, "could not remove temporary directory")
	}

	return &testServer{router: router, service: service, views: views}, cleanup
}

func makeTestHTTPRequest(router *gin.Engine, assert *require.Assertions, method string, endpoint string, headers map[string]string, requestBodyMap map[string]interface{}, queryParams map[string]string) *httptest.ResponseRecorder {

	var err error
	w := httptest.NewRecorder()

	if len(queryParams) > 0 {
		endpoint = endpoint + "?"
		for key, value := range queryParams {
			if endpoint[len(endpoint)-1] != '?' {
				endpoint = endpoint + "&"
			}
			endpoint = endpoint + key + "=" + value
		}
	}
	var jsonBody []byte
	var req *http.Request
	if requestBodyMap != nil {
		jsonBody, err = json.Marshal(requestBodyMap)
		assert.NoError(err)
	}

	slog.Info("Making test request", "method", method, "endpoint", endpoint, "headers", headers, "body", string(jsonBody))

	if len(jsonBody) > 0 {
		req, err = http.NewRequest(method, endpoint, bytes.NewBuffer(jsonBody))
	} else {
		req, err = http.NewRequest(method, endpoint, nil)
	}
	assert.NoError(err)

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	router.ServeHTTP(w, req)

	return w
}

func decodeResponseData(assert *require.Assertions, w *httptest.ResponseRecorder) map[string]any {
	var responseMap map[string]any
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &responseMap), "response gotten was %s", w.Body.String())
	data, ok := responseMap["data"].(map[string]any)
	assert.True(ok, "expected data object in response %s", w.Body.String())
	return data
}

// assertSubset checks that every expected key is present in actual with an equal value.
func assertSubset(assert *require.Assertions, expected map[string]any, actual map[string]any) {
	for key, expectedValue := range expected {
		actualValue, exists := actual[key]
		assert.True(exists, "expected field %s not found", key)
		if nested, ok := expectedValue.(map[string]any); ok {
			actualNested, ok := actualValue.(map[string]any)
			assert.True(ok, "field %s is not an object", key)
			assertSubset(assert, nested, actualNested)
			continue
		}
		assert.Equal(expectedValue, actualValue, "field %s mismatch", key)
	}
}

// sseReader decodes a gin server-sent event stream.
type sseReader struct {
	scanner *bufio.Scanner
}

func newSSEReader(resp *http.Response) *sseReader {
	return &sseReader{scanner: bufio.NewScanner(resp.Body)}
}

// next returns the next event, or false once the stream has ended.
func (r *sseReader) next(assert *require.Assertions) (search.Event, bool) {
	var kind string
	var data string
	for r.scanner.Scan() {
		line := r.scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			kind = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimPrefix(line, "data:")
		case line == "" && data != "":
			var event search.Event
			assert.NoError(json.Unmarshal([]byte(data), &event))
			assert.Equal(kind, string(event.Kind))
			return event, true
		}
	}
	return search.Event{}, false
}

func mustGetAbsolutePath(relativePath string) string {
	absPath, err := filepath.Abs(relativePath)
	if err != nil {
		panic(err)
	}
	return absPath
}
