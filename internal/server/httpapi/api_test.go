package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crateport/crateport/internal/common"
	"github.com/crateport/crateport/internal/logging"
	"github.com/crateport/crateport/internal/server/models"
	"github.com/crateport/crateport/internal/server/services"
)

// -------- test fakes --------

type fakeCrates struct {
	CrateAPI

	searchTotal   uint64
	searchResults []services.SearchResult

	info    *services.CrateInfo
	infoErr error

	publishWarnings *services.PublishWarnings
	publishErr      error
	published       [][]byte

	yanks []bool

	downloadData []byte
	downloadErr  error
}

func (f *fakeCrates) Search(ctx context.Context, query string, page, perPage int) (uint64, []services.SearchResult, error) {
	return f.searchTotal, f.searchResults, nil
}

func (f *fakeCrates) Info(ctx context.Context, name string) (*services.CrateInfo, error) {
	return f.info, f.infoErr
}

func (f *fakeCrates) Publish(ctx context.Context, author *models.Author, body []byte) (*services.PublishWarnings, error) {
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	f.published = append(f.published, body)
	return f.publishWarnings, nil
}

func (f *fakeCrates) SetYanked(ctx context.Context, author *models.Author, name, version string, yanked bool) error {
	f.yanks = append(f.yanks, yanked)
	return nil
}

func (f *fakeCrates) Download(ctx context.Context, name, version string) ([]byte, error) {
	return f.downloadData, f.downloadErr
}

func (f *fakeCrates) Categories(ctx context.Context) ([]*models.Category, error) {
	return []*models.Category{{Tag: "parsing", Name: "Parsing", Description: "Parsers."}}, nil
}

type fakeAccounts struct {
	AccountAPI

	author  *models.Author
	authErr error

	registerToken string
	loginToken    string
}

func (f *fakeAccounts) Authenticate(ctx context.Context, token string) (*models.Author, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	return f.author, nil
}

func (f *fakeAccounts) Register(ctx context.Context, email, name, passwd string) (string, error) {
	return f.registerToken, nil
}

func (f *fakeAccounts) Login(ctx context.Context, email, passwd string) (string, error) {
	return f.loginToken, nil
}

// -------- harness --------

func newTestServer(t *testing.T, crates *fakeCrates, accounts *fakeAccounts, indexTree string) *httptest.Server {
	t.Helper()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	handler := NewRouter(Options{
		Crates:        crates,
		Accounts:      accounts,
		Logger:        logger,
		IndexTreePath: indexTree,
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, method, url string, headers map[string]string, body []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	return res, data
}

// -------- tests --------

func TestSearchEndpoint(t *testing.T) {
	desc := "Alpha utilities"
	crates := &fakeCrates{
		searchTotal: 2,
		searchResults: []services.SearchResult{
			{Name: "alpha", MaxVersion: "1.0.0", Description: &desc},
			{Name: "alpha-extra", MaxVersion: "0.2.0"},
		},
	}
	srv := newTestServer(t, crates, &fakeAccounts{}, "")

	res, body := doRequest(t, http.MethodGet, srv.URL+"/api/v1/crates?q=alpha&per_page=10", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var decoded struct {
		Crates []services.SearchResult `json:"crates"`
		Meta   struct {
			Total uint64 `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Equal(t, uint64(2), decoded.Meta.Total)
	require.Len(t, decoded.Crates, 2)
	require.Equal(t, "alpha", decoded.Crates[0].Name)
}

func TestSearchEndpoint_RequiresQuery(t *testing.T) {
	srv := newTestServer(t, &fakeCrates{}, &fakeAccounts{}, "")
	res, _ := doRequest(t, http.MethodGet, srv.URL+"/api/v1/crates", nil, nil)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestInfoEndpoint_ErrorEnvelope(t *testing.T) {
	crates := &fakeCrates{infoErr: fmt.Errorf("crate %q: %w", "nope", common.ErrNotFound)}
	srv := newTestServer(t, crates, &fakeAccounts{}, "")

	res, body := doRequest(t, http.MethodGet, srv.URL+"/api/v1/crates/nope", nil, nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)

	var envelope struct {
		Errors []struct {
			Detail string `json:"detail"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	require.Len(t, envelope.Errors, 1)
	require.Contains(t, envelope.Errors[0].Detail, "nope")
}

func TestPublishEndpoint_RequiresToken(t *testing.T) {
	accounts := &fakeAccounts{authErr: common.ErrUnauthorized}
	crates := &fakeCrates{}
	srv := newTestServer(t, crates, accounts, "")

	res, _ := doRequest(t, http.MethodPut, srv.URL+"/api/v1/crates/new", nil, []byte("body"))
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	require.Empty(t, crates.published)
}

func TestPublishEndpoint_Success(t *testing.T) {
	accounts := &fakeAccounts{author: &models.Author{ID: 1, Email: "a@example.com", Name: "A"}}
	crates := &fakeCrates{publishWarnings: &services.PublishWarnings{
		InvalidCategories: []string{},
		InvalidBadges:     []string{},
		Other:             []string{},
	}}
	srv := newTestServer(t, crates, accounts, "")

	res, body := doRequest(t, http.MethodPut, srv.URL+"/api/v1/crates/new",
		map[string]string{"Authorization": "sometoken"}, []byte("frame"))
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Len(t, crates.published, 1)

	var decoded struct {
		Warnings struct {
			InvalidCategories []string `json:"invalid_categories"`
		} `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.NotNil(t, decoded.Warnings.InvalidCategories)
}

func TestYankEndpoints(t *testing.T) {
	accounts := &fakeAccounts{author: &models.Author{ID: 1}}
	crates := &fakeCrates{}
	srv := newTestServer(t, crates, accounts, "")

	res, _ := doRequest(t, http.MethodDelete, srv.URL+"/api/v1/crates/foo-bar/0.1.0/yank",
		map[string]string{"Authorization": "tok"}, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, _ = doRequest(t, http.MethodPut, srv.URL+"/api/v1/crates/foo-bar/0.1.0/unyank",
		map[string]string{"Authorization": "tok"}, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	require.Equal(t, []bool{true, false}, crates.yanks)
}

func TestDownloadEndpoint(t *testing.T) {
	crates := &fakeCrates{downloadData: []byte{0x1f, 0x8b, 0x01, 0x02}}
	srv := newTestServer(t, crates, &fakeAccounts{}, "")

	res, body := doRequest(t, http.MethodGet, srv.URL+"/api/v1/crates/foo-bar/0.1.0/download", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "application/octet-stream", res.Header.Get("Content-Type"))
	require.Equal(t, crates.downloadData, body)
}

func TestCategoriesEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeCrates{}, &fakeAccounts{}, "")

	res, body := doRequest(t, http.MethodGet, srv.URL+"/api/v1/categories", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "parsing")
}

func TestAccountEndpoints(t *testing.T) {
	accounts := &fakeAccounts{registerToken: "reg-token", loginToken: "login-token"}
	srv := newTestServer(t, &fakeCrates{}, accounts, "")

	res, body := doRequest(t, http.MethodPost, srv.URL+"/api/v1/account/register", nil,
		[]byte(`{"email":"a@example.com","name":"A","passwd":"digest"}`))
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "reg-token")

	res, body = doRequest(t, http.MethodPost, srv.URL+"/api/v1/account/login", nil,
		[]byte(`{"email":"a@example.com","passwd":"digest"}`))
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "login-token")

	// Register with missing fields is rejected before the service runs.
	res, _ = doRequest(t, http.MethodPost, srv.URL+"/api/v1/account/register", nil,
		[]byte(`{"email":"a@example.com"}`))
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestSparseIndex(t *testing.T) {
	tree := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tree, "config.json"),
		[]byte(`{"dl":"http://localhost/api/v1/crates","api":"http://localhost"}`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(tree, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tree, ".git", "HEAD"), []byte("ref: refs/heads/master"), 0o644))

	srv := newTestServer(t, &fakeCrates{}, &fakeAccounts{}, tree)

	res, body := doRequest(t, http.MethodGet, srv.URL+"/index/config.json", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "api/v1/crates")

	// Git metadata stays unreachable.
	res, _ = doRequest(t, http.MethodGet, srv.URL+"/index/.git/HEAD", nil, nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)

	res, _ = doRequest(t, http.MethodGet, srv.URL+"/index/no/such/crate", nil, nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}
