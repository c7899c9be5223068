package fetch

import (
	"context"
	"edsync/internal/types"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
)

type authSpy struct {
	mu    sync.Mutex
	sites []types.Site
}

func (a *authSpy) Notify(site types.Site) {
	a.mu.Lock()
	a.sites = append(a.sites, site)
	a.mu.Unlock()
}

type FetchTestSuite struct {
	suite.Suite

	srv     *httptest.Server
	handler http.HandlerFunc
	spy     *authSpy
	fetcher *Fetcher
	site    types.Site
}

func TestFetchTestSuite(t *testing.T) {
	suite.Run(t, new(FetchTestSuite))
}

func (s *FetchTestSuite) SetupTest() {
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.handler(w, r)
	}))
	s.spy = &authSpy{}
	s.fetcher = NewFetcher(NewRESTClient(0, s.spy))
	s.site = types.Site{ID: 11, URL: "https://blog.example", APIRoot: s.srv.URL + "/wp-json/", Token: "secret"}
}

func (s *FetchTestSuite) TearDownTest() {
	s.srv.Close()
}

func (s *FetchTestSuite) TestFetchSuccess() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		s.Equal("/wp-json/wp-block-editor/v1/settings", r.URL.Path)
		s.Equal("Bearer secret", r.Header.Get("Authorization"))
		s.Equal("no-cache", r.Header.Get("Cache-Control"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"__experimentalFeatures":{"color":{"custom":true}}}`))
	}
	doc, err := s.fetcher.Fetch(context.Background(), s.site)
	s.NoError(err)
	s.Require().NotNil(doc)
	s.Equal(int64(11), doc.SiteID)
	s.JSONEq(`{"__experimentalFeatures":{"color":{"custom":true}}}`, string(doc.Raw))
}

func (s *FetchTestSuite) TestFetchEmptyBodyIsMalformed() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
	_, err := s.fetcher.Fetch(context.Background(), s.site)
	s.ErrorIs(err, types.ErrMalformedResponse)
	s.Equal("response does not contain editor settings", err.Error())
}

func (s *FetchTestSuite) TestFetchArrayBodyIsMalformed() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[1,2,3]`))
	}
	_, err := s.fetcher.Fetch(context.Background(), s.site)
	s.ErrorIs(err, types.ErrMalformedResponse)
	s.False(errors.Is(err, types.ErrTransport))
}

func (s *FetchTestSuite) TestFetchServerErrorUsesAPIMessage() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":"internal","message":"database went away"}`))
	}
	_, err := s.fetcher.Fetch(context.Background(), s.site)
	s.ErrorIs(err, types.ErrTransport)
	s.NotErrorIs(err, types.ErrInvalidAuth)
	s.Equal("database went away", err.Error())
	s.Empty(s.spy.sites)
}

func (s *FetchTestSuite) TestFetchNotFoundFallsBackToStatusText() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}
	_, err := s.fetcher.Fetch(context.Background(), s.site)
	s.ErrorIs(err, types.ErrTransport)
	s.Equal("HTTP 404 Not Found", err.Error())
}

func (s *FetchTestSuite) TestFetchUnauthorizedSignalsSite() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"rest_not_logged_in","message":"You are not currently logged in."}`))
	}
	_, err := s.fetcher.Fetch(context.Background(), s.site)
	s.ErrorIs(err, types.ErrInvalidAuth)
	s.ErrorIs(err, types.ErrTransport)
	s.Require().Len(s.spy.sites, 1)
	s.Equal(s.site.ID, s.spy.sites[0].ID)
}

func (s *FetchTestSuite) TestFetchOversizedBodyIsTransportError() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"colors":["red","green","blue"]}`))
	}
	client := NewRESTClient(0, s.spy)
	client.maxBody = 16

	_, err := NewFetcher(client).Fetch(context.Background(), s.site)
	s.Require().Error(err)
	s.ErrorIs(err, types.ErrTransport)
	s.NotErrorIs(err, types.ErrMalformedResponse)
	s.Contains(err.Error(), "response too large")

	client.maxBody = 64
	doc, err := NewFetcher(client).Fetch(context.Background(), s.site)
	s.Require().NoError(err)
	s.JSONEq(`{"colors":["red","green","blue"]}`, string(doc.Raw))
}

func (s *FetchTestSuite) TestFetchConnectionRefused() {
	s.srv.Close()
	_, err := s.fetcher.Fetch(context.Background(), s.site)
	s.ErrorIs(err, types.ErrTransport)
}
