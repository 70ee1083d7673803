package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alwedo/jobscraper/config"
	"github.com/alwedo/jobscraper/jobber"
	"github.com/alwedo/jobscraper/metrics"
	"github.com/alwedo/jobscraper/proxy"
	"github.com/alwedo/jobscraper/scrape"
	"github.com/alwedo/jobscraper/server"
	_ "golang.org/x/crypto/x509roots/fallback" // CA bundle for FROM Scratch
)

func main() {
	var (
		ctx    = context.Background()
		svrErr = make(chan error, 1)
		c      = make(chan os.Signal, 1)
	)

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("unable to load config: %v", err)
	}

	logger, logCloser := initLogger(cfg)
	defer logCloser()

	metrics.Init()

	sel, err := proxy.New(logger, cfg.ProxyOptions())
	if err != nil {
		log.Println("unable to create proxy selector: " + err.Error())
		return
	}

	j := jobber.New(logger, initScraper(logger, cfg), sel)
	svr := server.New(logger, j, cfg.Addr())
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := svr.Shutdown(shutdownCtx); err != nil {
			log.Println("unable to shutdown server: " + err.Error())
		}
	}()

	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Println("starting server in port " + svr.Addr)
		logger.Info("starting server", slog.String("addr", svr.Addr), slog.String("proxy", cfg.Proxy.Strategy))
		if err := svr.ListenAndServe(); err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				log.Println(err)
			} else {
				log.Println(err)
				svrErr <- err
			}
		}
	}()

	select {
	case <-svrErr:
		log.Println("\nserver error, shutting down...")
	case <-c:
		log.Println("\nshutting down...")
	}
}

// initScraper routes linkedin to the native engine and every other site to
// the JobSpy sidecar when one is configured.
func initScraper(logger *slog.Logger, cfg *config.Config) scrape.Scraper {
	var fallback scrape.Scraper
	if cfg.JobSpyURL != "" {
		fallback = scrape.Remote(logger, cfg.JobSpyURL, cfg.ScrapeTimeout)
	}
	return scrape.NewRouter(fallback).Handle(scrape.SiteLinkedIn, scrape.LinkedIn(logger))
}

func initLogger(cfg *config.Config) (*slog.Logger, func()) {
	lvl, err := cfg.Level()
	if err != nil {
		log.Fatalf("invalid log level: %v", err)
	}

	var out io.Writer = os.Stdout
	closer := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("unable to open log file: %v", err)
		}
		out = f
		closer = func() {
			if err := f.Close(); err != nil {
				log.Printf("unable to close log file: %v", err)
			}
		}
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler), closer
}
