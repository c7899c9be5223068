package flow

import (
	"context"
	"edsync/internal/types"
	"sync/atomic"
)

type siteList []types.Site

func (l siteList) Site(id int64) (types.Site, error) {
	for _, s := range l {
		if s.ID == id {
			return s, nil
		}
	}
	return types.Site{}, types.Err(types.ErrUnknownSite, nil, "site %d", id)
}

func (s *UnitTestSuite) TestDispatchRoutesFetch() {
	d := NewDispatcher(2)
	RegisterHandlers(d, s.engine, siteList{s.site})
	s.fetcher.doc = s.doc(`{"v":1}`)

	err := d.Dispatch(context.Background(), Command{Kind: types.FetchEditorSettings, SiteID: s.site.ID})
	s.NoError(err)
	s.Len(s.pub.events(), 1)
}

func (s *UnitTestSuite) TestDispatchUnknownKind() {
	d := NewDispatcher(1)
	err := d.Dispatch(context.Background(), Command{Kind: types.ActionKind(99), SiteID: 1})
	s.ErrorIs(err, types.ErrUnknownAction)
	s.ErrorIs(d.Go(context.Background(), Command{Kind: types.ActionKind(99)}), types.ErrUnknownAction)
}

func (s *UnitTestSuite) TestDispatchUnknownSite() {
	d := NewDispatcher(1)
	RegisterHandlers(d, s.engine, siteList{s.site})
	err := d.Dispatch(context.Background(), Command{Kind: types.FetchEditorSettings, SiteID: 999})
	s.ErrorIs(err, types.ErrUnknownSite)
	s.Empty(s.pub.events())
}

func (s *UnitTestSuite) TestGoRunsInBackgroundAndSurvivesCancel() {
	d := NewDispatcher(4)
	var n atomic.Int32
	d.Register(types.FetchEditorSettings, func(ctx context.Context, cmd Command) error {
		s.NoError(ctx.Err())
		n.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 10; i++ {
		s.NoError(d.Go(ctx, Command{Kind: types.FetchEditorSettings, SiteID: int64(i)}))
	}
	d.Wait()
	s.Equal(int32(10), n.Load())
}

func (s *UnitTestSuite) TestConcurrentReconcilesSameSite() {
	d := NewDispatcher(8)
	RegisterHandlers(d, s.engine, siteList{s.site})
	s.fetcher.doc = s.doc(`{"v":9}`)

	for i := 0; i < 8; i++ {
		s.NoError(d.Go(context.Background(), Command{Kind: types.FetchEditorSettings, SiteID: s.site.ID}))
	}
	d.Wait()
	s.True(s.doc(`{"v":9}`).Equal(s.cached()))
	s.GreaterOrEqual(len(s.pub.events()), 8)
}
