package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/five82/vitrine/internal/catalog"
	"github.com/five82/vitrine/internal/config"
	"github.com/five82/vitrine/internal/devserver"
	"github.com/five82/vitrine/internal/listing"
	"github.com/five82/vitrine/internal/logger"
	"github.com/five82/vitrine/internal/mutation"
	"github.com/five82/vitrine/internal/prefs"
	"github.com/five82/vitrine/internal/query"
	"github.com/five82/vitrine/internal/ui"
)

const (
	defaultDemoProducts = 120
	notificationBuffer  = 16
)

// Options configure the vitrine application. Non-zero fields override the
// config file.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/vitrine/prefs.toml
	APIURL     string
	PageSize   int
	LogLevel   string
	Version    string // reported in the User-Agent header; empty means "dev"

	// Demo serves an in-memory backend on a random local port and points the
	// client at it.
	Demo         bool
	DemoProducts int
}

// components holds everything Run wires together.
type components struct {
	cfg       config.Config
	log       logger.Logger
	prefs     prefs.Prefs
	prefsPath string
	query     query.State

	client *catalog.Client
	sync   *listing.Synchronizer
	coord  *mutation.Coordinator
	notes  *mutation.ChanNotifier
	demo   *devserver.Server
}

// Run boots the vitrine TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	c, err := setup(opts)
	if err != nil {
		return err
	}
	defer c.close()

	c.log.Infof("vitrine %s starting", versionOrDev(opts.Version))
	c.log.Info("config",
		logger.String("api_url", c.cfg.APIURL),
		logger.Int("page_size", c.cfg.PageSize),
		logger.Bool("demo", c.demo != nil))

	return ui.Run(ui.Options{
		Context:         ctx,
		Sync:            c.sync,
		Coordinator:     c.coord,
		Notifications:   c.notes.C(),
		Query:           c.query,
		APIURL:          c.cfg.APIURL,
		LogFile:         c.cfg.LogFile,
		ThemeName:       c.prefs.Theme,
		PrefsPath:       c.prefsPath,
		Prefs:           c.prefs,
		RefreshInterval: c.cfg.RefreshInterval,
		Logger:          c.log,
	})
}

func setup(opts Options) (*components, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if v := strings.TrimSpace(opts.APIURL); v != "" {
		cfg.APIURL = v
	}
	if opts.PageSize > 0 {
		cfg.PageSize = opts.PageSize
	}
	if v := strings.TrimSpace(opts.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs, _ := prefs.Load(prefsPath)

	c := &components{
		cfg:       cfg,
		log:       log,
		prefs:     userPrefs,
		prefsPath: prefsPath,
		query:     userPrefs.Query(cfg.PageSize),
	}

	if opts.Demo {
		if err := c.startDemo(opts.DemoProducts); err != nil {
			_ = log.Sync()
			return nil, err
		}
	}

	client, err := catalog.NewClient(catalog.Options{
		BaseURL:   c.cfg.APIURL,
		Timeout:   cfg.RequestTimeout,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		UserAgent: userAgent(opts.Version),
		Logger:    log.With(logger.String("component", "catalog")),
	})
	if err != nil {
		c.close()
		return nil, fmt.Errorf("init catalog client: %w", err)
	}
	c.client = client

	c.sync = listing.New(client,
		listing.WithLogger(log.With(logger.String("component", "listing"))),
		listing.WithTimeout(cfg.RequestTimeout))
	c.notes = mutation.NewChanNotifier(notificationBuffer)
	c.coord = mutation.NewCoordinator(c.sync, client, mutation.Options{
		Notifier: c.notes,
		Logger:   log.With(logger.String("component", "mutation")),
		Timeout:  cfg.RequestTimeout,
	})
	return c, nil
}

func (c *components) startDemo(products int) error {
	if products <= 0 {
		products = defaultDemoProducts
	}
	store := devserver.NewStore(time.Now)
	store.Seed(products)
	srv := devserver.New(store, devserver.Options{
		Logger: c.log.With(logger.String("component", "devserver")),
	})
	base, err := srv.Start("127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("start demo backend: %w", err)
	}
	c.demo = srv
	c.cfg.APIURL = base
	return nil
}

// close lets in-flight mutations settle, then stops the demo backend.
func (c *components) close() {
	if c.coord != nil {
		done := make(chan struct{})
		go func() {
			c.coord.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(c.cfg.RequestTimeout):
			c.log.Warnf("exiting with %d mutations in flight", c.coord.InFlight())
		}
	}
	if c.demo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.demo.Stop(ctx); err != nil {
			c.log.Warn("stop demo backend", logger.Error(err))
		}
	}
	_ = c.log.Sync()
}

func versionOrDev(version string) string {
	if v := strings.TrimSpace(version); v != "" {
		return v
	}
	return "dev"
}

func userAgent(version string) string {
	return "vitrine/" + versionOrDev(version)
}
