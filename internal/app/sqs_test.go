package app

import (
	"context"
	"edsync/internal/backends/memory"
	"edsync/internal/types"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
)

type slowRawPublisher struct {
	mu       sync.Mutex
	arns     []string
	payloads [][]byte
}

func (p *slowRawPublisher) PublishRaw(_ context.Context, arn string, payload []byte) error {
	time.Sleep(30 * time.Millisecond)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.arns = append(p.arns, arn)
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *slowRawPublisher) received() ([]string, [][]byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.arns...), append([][]byte(nil), p.payloads...)
}

func (s *AppTestSuite) newForwardingApp(fwd *slowRawPublisher) *App {
	cfg := types.Config{
		Workers:     1,
		SNSTopicArn: "arn:aws:sns:us-east-1:000000000000:editor-settings",
		Sites:       []types.Site{{ID: 1, URL: "https://one.example", APIRoot: s.srv.URL}},
	}
	reg := prometheus.NewRegistry()
	a, err := New(context.Background(), cfg, Options{
		Store:      memory.NewSettingsStore(),
		Registerer: reg,
		Gatherer:   reg,
		Forward:    fwd,
	})
	s.Require().NoError(err)
	s.T().Cleanup(a.Close)
	return a
}

func (s *AppTestSuite) TestHandleSQSEventForwardsBeforeReturning() {
	fwd := &slowRawPublisher{}
	a := s.newForwardingApp(fwd)

	resp, err := a.HandleSQSEvent(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m1", Body: `{"site_id":1}`},
	}})
	s.Require().NoError(err)
	s.Empty(resp.BatchItemFailures)

	arns, payloads := fwd.received()
	s.Require().Len(payloads, 1)
	s.Equal("arn:aws:sns:us-east-1:000000000000:editor-settings", arns[0])
	var evt types.ChangeEvent
	s.Require().NoError(json.Unmarshal(payloads[0], &evt))
	s.Equal(int64(1), evt.SiteID)
	s.False(evt.FromCache)
	s.Require().NotNil(evt.Document)
	s.JSONEq(`{"colors":[]}`, string(evt.Document.Raw))
}

func (s *AppTestSuite) TestHandleSQSEventReportsBadMessages() {
	fwd := &slowRawPublisher{}
	a := s.newForwardingApp(fwd)

	resp, err := a.HandleSQSEvent(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "bad-json", Body: `not json`},
		{MessageId: "unknown-site", Body: `{"site_id":99}`},
		{MessageId: "ok", Body: `{"kind":"fetch_editor_settings","site_id":1}`},
	}})
	s.Require().NoError(err)
	s.Require().Len(resp.BatchItemFailures, 2)
	s.Equal("bad-json", resp.BatchItemFailures[0].ItemIdentifier)
	s.Equal("unknown-site", resp.BatchItemFailures[1].ItemIdentifier)

	_, payloads := fwd.received()
	s.Len(payloads, 1)
}
