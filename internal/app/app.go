// Package app wires stores, transport, engine, bus and registry into one process.
package app

import (
	"context"
	"edsync/internal/backends"
	"edsync/internal/bus"
	"edsync/internal/fetch"
	"edsync/internal/flow"
	"edsync/internal/metrics"
	"edsync/internal/notifier"
	"edsync/internal/ports"
	"edsync/internal/pub"
	"edsync/internal/types"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const SNSEndpointKey = "SNS_ENDPOINT"

// App holds the long-lived components. Listeners registered on Registry are
// referenced here so the weak registry does not lose them.
type App struct {
	Config     types.Config
	Store      ports.SettingsStore
	Registry   *notifier.Registry
	Bus        *bus.Bus
	Engine     *flow.Engine
	Dispatcher *flow.Dispatcher
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer

	authLog *authLogListener
	subs    []bus.Subscription
}

// Options overrides parts of the wiring; zero values pick the defaults.
type Options struct {
	Store      ports.SettingsStore
	Transport  ports.Transport
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	// Forward receives events for Config.SNSTopicArn. Defaults to an SNS client from the environment.
	Forward ports.RawPublisher
}

// New builds an App for cfg. The settings store comes from the environment unless given.
func New(ctx context.Context, cfg types.Config, opts Options) (*App, error) {
	store := opts.Store
	if store == nil {
		var err error
		store, err = backends.SettingsBackendFromEnv()
		if err != nil {
			return nil, fmt.Errorf("settings backend: %w", err)
		}
	}
	reg, gatherer := opts.Registerer, opts.Gatherer
	if reg == nil {
		reg, gatherer = prometheus.DefaultRegisterer, prometheus.DefaultGatherer
	}

	a := &App{
		Config:   cfg,
		Store:    store,
		Registry: notifier.NewRegistry(),
		Bus:      bus.New(),
		Metrics:  metrics.New(reg),
		Gatherer: gatherer,
		authLog:  &authLogListener{},
	}
	notifier.Add(a.Registry, a.authLog)
	notifier.Add(a.Registry, a.Metrics)

	transport := opts.Transport
	if transport == nil {
		transport = fetch.NewRESTClient(fetch.DefaultTimeout, a.Registry)
	}
	a.Engine = flow.NewEngine(store, fetch.NewFetcher(transport), a.Bus, a.Metrics)
	a.Dispatcher = flow.NewDispatcher(cfg.Workers)
	flow.RegisterHandlers(a.Dispatcher, a.Engine, cfg)

	if cfg.SNSTopicArn != "" {
		forward := opts.Forward
		if forward == nil {
			snsClient, err := snsClientFromEnv(ctx)
			if err != nil {
				return nil, err
			}
			forward = pub.NewSNS(snsClient)
		}
		fwd := pub.NewForwarder(forward, cfg.SNSTopicArn)
		if err := a.Subscribe(ctx, "sns", fwd.Handle); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Subscribe adds an observer for change events until Close.
func (a *App) Subscribe(ctx context.Context, name string, fn bus.Handler) error {
	sub, err := a.Bus.Subscribe(ctx, name, fn)
	if err != nil {
		return err
	}
	a.subs = append(a.subs, sub)
	return nil
}

// Flush waits until every published event has reached its subscribers.
func (a *App) Flush(ctx context.Context) error {
	return a.Bus.Flush(ctx)
}

// Close waits for background commands, drains the bus and releases the store.
func (a *App) Close() {
	a.Dispatcher.Wait()
	a.Bus.Close()
	notifier.Remove(a.Registry, a.authLog)
	notifier.Remove(a.Registry, a.Metrics)
	if c, ok := a.Store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.WithError(err).Warn("close settings store")
		}
	}
}

// authLogListener logs every invalid-authentication signal.
type authLogListener struct {
	count atomic.Int64
}

func (l *authLogListener) OnRequestedWithInvalidAuthentication(siteURL string) {
	l.count.Add(1)
	log.WithField("siteURL", siteURL).Warn("site credentials rejected; re-authentication required")
}

func snsClientFromEnv(ctx context.Context) (*sns.Client, error) {
	var snsEndpoint *string
	if se := os.Getenv(SNSEndpointKey); se != "" {
		snsEndpoint = aws.String(se)
	}
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if snsEndpoint != nil {
			o.BaseEndpoint = snsEndpoint
			if o.Region == "" {
				o.Region = "us-east-1"
			}
			o.Credentials = credentials.NewStaticCredentialsProvider("test", "test", "")
		}
	}), nil
}
