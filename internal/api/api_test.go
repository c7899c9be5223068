package api

import (
	"context"
	"edsync/internal/backends/memory"
	"edsync/internal/flow"
	"edsync/internal/metrics"
	"edsync/internal/notifier"
	"edsync/internal/types"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/suite"
)

type authRecorder struct {
	mu   sync.Mutex
	urls []string
}

func (a *authRecorder) OnRequestedWithInvalidAuthentication(siteURL string) {
	a.mu.Lock()
	a.urls = append(a.urls, siteURL)
	a.mu.Unlock()
}

type APITestSuite struct {
	suite.Suite

	srv      *httptest.Server
	store    *memory.SettingsStore
	disp     *flow.Dispatcher
	registry *notifier.Registry
	auth     *authRecorder
	metrics  *metrics.Metrics

	mu   sync.Mutex
	cmds []flow.Command
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func (s *APITestSuite) SetupTest() {
	s.store = memory.NewSettingsStore()
	s.disp = flow.NewDispatcher(2)
	s.cmds = nil
	s.disp.Register(types.FetchEditorSettings, func(_ context.Context, cmd flow.Command) error {
		s.mu.Lock()
		s.cmds = append(s.cmds, cmd)
		s.mu.Unlock()
		return nil
	})
	s.registry = notifier.NewRegistry()
	s.auth = &authRecorder{}
	notifier.Add(s.registry, s.auth)

	reg := prometheus.NewRegistry()
	s.metrics = metrics.New(reg)
	notifier.Add(s.registry, s.metrics)

	cfg := types.Config{Sites: []types.Site{{ID: 1, URL: "https://one.example", APIRoot: "https://one.example/wp-json"}}}
	h := NewHandler(s.store, s.disp, cfg, s.registry, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	s.srv = httptest.NewServer(h.Router())
}

func (s *APITestSuite) TearDownTest() {
	s.srv.Close()
}

func (s *APITestSuite) do(method, path string) (*http.Response, string) {
	req, err := http.NewRequest(method, s.srv.URL+path, nil)
	s.Require().NoError(err)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp, string(b)
}

func (s *APITestSuite) TestHealthCheck() {
	resp, _ := s.do(http.MethodGet, "/health")
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *APITestSuite) TestGetSettings() {
	resp, _ := s.do(http.MethodGet, "/sites/1/settings")
	s.Equal(http.StatusNotFound, resp.StatusCode)

	s.Require().NoError(s.store.Replace(context.Background(), 1,
		&types.SettingsDocument{SiteID: 1, Raw: []byte(`{"colors":[{"slug":"primary","color":"#123"}]}`)}))

	resp, body := s.do(http.MethodGet, "/sites/1/settings")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.JSONEq(`{"site_id":1,"settings":{"colors":[{"slug":"primary","color":"#123"}]}}`, body)

	resp, body = s.do(http.MethodGet, "/sites/1/settings?query=colors[0].color")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.JSONEq(`{"site_id":1,"result":"#123"}`, body)

	resp, _ = s.do(http.MethodGet, "/sites/1/settings?query=colors[")
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *APITestSuite) TestUnknownAndInvalidSite() {
	resp, _ := s.do(http.MethodGet, "/sites/2/settings")
	s.Equal(http.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(http.MethodPost, "/sites/abc/settings/fetch")
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *APITestSuite) TestFetchDispatchesCommand() {
	resp, body := s.do(http.MethodPost, "/sites/1/settings/fetch?skip_if_cached=true")
	s.Equal(http.StatusAccepted, resp.StatusCode)

	var out map[string]any
	s.NoError(json.Unmarshal([]byte(body), &out))
	s.Equal("accepted", out["status"])

	s.disp.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Require().Len(s.cmds, 1)
	s.Equal(int64(1), s.cmds[0].SiteID)
	s.True(s.cmds[0].SkipNetworkIfCachePresent)
}

func (s *APITestSuite) TestAuthInvalidNotifiesListeners() {
	resp, _ := s.do(http.MethodPost, "/sites/1/auth-invalid")
	s.Equal(http.StatusNoContent, resp.StatusCode)
	s.Equal([]string{"https://one.example"}, s.auth.urls)

	resp, body := s.do(http.MethodGet, "/metrics")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.True(strings.Contains(body, "edsync_invalid_auth_total 1"), body)
}
