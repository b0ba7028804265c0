package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	publichtml "forest-machine-map/public_html"

	"forest-machine-map/pkg/api"
	"forest-machine-map/pkg/events"
	"forest-machine-map/pkg/markerstream"
	"forest-machine-map/pkg/metrics"
	"forest-machine-map/pkg/session"
)

func newServeCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				a.cfg.HTTP.Listen = listen
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address, overrides http.listen")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	reg, err := a.loadRegistry(ctx)
	if err != nil {
		return err
	}

	m := metrics.New()
	m.ObserveFleet(reg)
	hooks := []session.Hook{m}

	if a.cfg.NATS.URL != "" {
		pub, err := events.Connect(a.cfg.NATS.URL, a.cfg.NATS.Subject, a.log)
		if err != nil {
			// Events are optional; the dashboard works without them.
			a.log.Warn("nats unavailable, view events disabled", zap.Error(err))
		} else {
			defer pub.Close()
			hooks = append(hooks, pub)
			a.log.Info("publishing view events", zap.String("url", a.cfg.NATS.URL), zap.String("subject", a.cfg.NATS.Subject))
		}
	}

	bus := markerstream.NewBus(64)
	store := session.NewStore(reg,
		session.WithTTL(a.cfg.Session.TTL),
		session.WithFocusZoom(a.cfg.Map.FocusZoom),
		session.WithHooks(hooks...),
		session.WithBus(bus),
		session.WithLogger(a.log.Named("session")),
	)
	go store.Run(ctx, a.cfg.Session.SweepInterval)

	h, err := api.NewHandler(api.Options{
		Registry: reg,
		Sessions: store,
		Bus:      bus,
		Assets:   publichtml.FS,
		Metrics:  m.Handler(),
		Map: api.MapDefaults{
			Lat:     a.cfg.Map.DefaultLat,
			Lng:     a.cfg.Map.DefaultLng,
			Zoom:    a.cfg.Map.DefaultZoom,
			TileURL: a.cfg.Map.TileURL,
		},
		PublicURL: a.cfg.HTTP.PublicURL,
		Version:   CompileVersion,
		Log:       a.log.Named("http"),
	})
	if err != nil {
		return err
	}
	defer h.Close()
	handler := h.Routes()

	if a.cfg.HTTP.Domain != "" {
		if runtime.GOOS != "windows" && os.Geteuid() != 0 {
			a.log.Warn("binding to :80 and :443 requires super-user rights")
		}
		return serveWithDomain(ctx, a.cfg.HTTP.Domain, handler, a.log)
	}

	srv := &http.Server{
		Addr:              a.cfg.HTTP.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	a.log.Info("http server listening", zap.String("addr", srv.Addr), zap.Int("machines", reg.Len()))
	return runServers(ctx, a.log, serverRun{srv: srv, start: srv.ListenAndServe})
}

type serverRun struct {
	srv   *http.Server
	start func() error
}

// runServers starts every server and shuts them all down when ctx ends or
// one of them fails.
func runServers(ctx context.Context, log *zap.Logger, runs ...serverRun) error {
	errCh := make(chan error, len(runs))
	for _, r := range runs {
		go func(r serverRun) {
			if err := r.start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("%s: %w", r.srv.Addr, err)
			}
		}(r)
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-errCh:
		log.Error("server failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, r := range runs {
		if err := r.srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown", zap.String("addr", r.srv.Addr), zap.Error(err))
		}
	}
	return runErr
}

// serveWithDomain runs HTTPS on :443 with Let's Encrypt certificates and a
// :80 listener that answers ACME challenges and redirects everything else.
// Once one certificate has been issued it is also handed to clients whose
// SNI does not match (bare IP access).
func serveWithDomain(ctx context.Context, domain string, handler http.Handler, log *zap.Logger) error {
	certMgr := &autocert.Manager{
		Prompt: autocert.AcceptTOS,
		Cache:  autocert.DirCache("certs"),
		HostPolicy: func(ctx context.Context, host string) error {
			if host == domain || host == "www."+domain {
				return nil
			}
			if net.ParseIP(host) != nil {
				return nil
			}
			return errors.New("acme/autocert: host not configured")
		},
	}

	mux80 := http.NewServeMux()
	mux80.Handle("/.well-known/acme-challenge/", certMgr.HTTPHandler(nil))
	mux80.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://"+domain+r.URL.RequestURI(), http.StatusMovedPermanently)
	})
	srv80 := &http.Server{Addr: ":80", Handler: mux80, ReadHeaderTimeout: 10 * time.Second}

	// Served to clients whose SNI autocert rejects, once a certificate exists.
	var fallback atomic.Pointer[tls.Certificate]
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			c, err := certMgr.GetCertificate(&tls.ClientHelloInfo{ServerName: domain})
			if err == nil {
				fallback.Store(c)
				return
			}
			log.Debug("waiting for certificate", zap.String("domain", domain), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}()

	tlsCfg := certMgr.TLSConfig()
	tlsCfg.MinVersion = tls.VersionTLS12
	tlsCfg.GetCertificate = func(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
		c, err := certMgr.GetCertificate(hello)
		if err == nil {
			return c, nil
		}
		if c := fallback.Load(); c != nil {
			return c, nil
		}
		return nil, err
	}
	srv443 := &http.Server{
		Addr:              ":443",
		Handler:           handler,
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	log.Info("https server listening", zap.String("domain", domain), zap.String("addr", ":443"))
	return runServers(ctx, log,
		serverRun{srv: srv80, start: srv80.ListenAndServe},
		serverRun{srv: srv443, start: func() error { return srv443.ListenAndServeTLS("", "") }},
	)
}
