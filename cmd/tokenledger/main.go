// Command tokenledger deploys, serves and inspects a token ledger.
//
// Usage:
//
//	tokenledger deploy   [flags]   deploy a token and print its ID
//	tokenledger serve    [flags]   serve the HTTP API and /metrics
//	tokenledger accounts [flags]   print holders of a persisted token
//	tokenledger events   [flags]   dump a persisted token's journal
//
// Settings come from TOKENLEDGER_* variables and an optional .env file;
// flags override them.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/xraph/tokenledger"
	audithook "github.com/xraph/tokenledger/audit_hook"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/internal/api"
	"github.com/xraph/tokenledger/internal/config"
	"github.com/xraph/tokenledger/observability"
	"github.com/xraph/tokenledger/publisher/kafka"
	"github.com/xraph/tokenledger/store"
	"github.com/xraph/tokenledger/store/bolt"
	"github.com/xraph/tokenledger/store/memory"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "tokenledger:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: tokenledger <deploy|serve|accounts|events> [flags]")
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "deploy":
		return deploy(args, out)
	case "serve":
		return serve(args)
	case "accounts":
		return accounts(args, out)
	case "events":
		return events(args, out)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// ──────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────

func deploy(args []string, out io.Writer) error {
	env, err := parseFlags("deploy", args)
	if err != nil {
		return err
	}
	ctx := context.Background()

	s, err := openStore(env.cfg)
	if err != nil {
		return err
	}
	l, err := newLedger(env, s)
	if err != nil {
		_ = s.Close()
		return err
	}
	if err := l.Start(ctx); err != nil {
		_ = l.Stop()
		return err
	}
	if err := l.Stop(); err != nil {
		return err
	}

	fmt.Fprintln(out, "Token deployed to:", l.ID())
	return nil
}

func serve(args []string) error {
	env, err := parseFlags("serve", args)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []tokenledger.Option{
		tokenledger.WithPlugin(observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))),
		tokenledger.WithPlugin(audithook.New(auditLogger(env.logger), audithook.WithLogger(env.logger))),
	}
	if len(env.cfg.KafkaBrokers) > 0 {
		opts = append(opts, tokenledger.WithPlugin(
			kafka.NewPublisher(env.cfg.KafkaBrokers, env.cfg.KafkaTopic, kafka.WithLogger(env.logger)),
		))
	}

	s, err := openStore(env.cfg)
	if err != nil {
		return err
	}
	l, err := openOrDeploy(ctx, env, s, opts...)
	if err != nil {
		_ = s.Close()
		return err
	}
	if err := l.Start(ctx); err != nil {
		_ = l.Stop()
		return err
	}
	defer func() { _ = l.Stop() }()

	srv := &http.Server{
		Addr: env.cfg.Addr,
		Handler: api.New(l,
			api.WithLogger(env.logger),
			api.WithRateLimit(env.cfg.RateLimit, env.cfg.RateBurst),
			api.WithHandler(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		env.logger.Info("http server listening", "addr", srv.Addr, "token_id", l.ID().String())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func accounts(args []string, out io.Writer) error {
	env, err := parseFlags("accounts", args)
	if err != nil {
		return err
	}
	l, err := openPersisted(context.Background(), env)
	if err != nil {
		return err
	}
	defer func() { _ = l.Stop() }()

	for _, h := range l.Holders() {
		fmt.Fprintf(out, "%s %s %s\n", h.Account, h.Balance.FormatUnits(l.Decimals()), l.Symbol())
	}
	return nil
}

func events(args []string, out io.Writer) error {
	env, err := parseFlags("events", args)
	if err != nil {
		return err
	}
	ctx := context.Background()
	l, err := openPersisted(ctx, env)
	if err != nil {
		return err
	}
	defer func() { _ = l.Stop() }()

	records, err := l.Events(ctx, event.ListOpts{AfterSeq: env.after, Limit: env.limit})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Wiring
// ──────────────────────────────────────────────────

type cmdEnv struct {
	cfg    *config.Config
	logger *slog.Logger
	after  uint64
	limit  int
}

func parseFlags(name string, args []string) (*cmdEnv, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	envFile := fs.String("env-file", ".env", "dotenv file to load before reading the environment")
	storeDriver := fs.String("store", "", "store driver: memory or bolt")
	boltPath := fs.String("bolt-path", "", "bolt database file")
	tokenID := fs.String("token-id", "", "persisted token to open")
	addr := fs.String("addr", "", "HTTP listen address")
	after := fs.Uint64("after", 0, "list events after this sequence number")
	limit := fs.Int("limit", 0, "maximum number of events to list")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return nil, err
	}
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.StoreDriver, *storeDriver)
	override(&cfg.BoltPath, *boltPath)
	override(&cfg.TokenID, *tokenID)
	override(&cfg.Addr, *addr)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cmdEnv{
		cfg:    cfg,
		logger: newLogger(cfg),
		after:  *after,
		limit:  *limit,
	}, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.StoreDriver == "bolt" {
		return bolt.Open(cfg.BoltPath)
	}
	return memory.New(), nil
}

func ledgerOpts(env *cmdEnv, extra ...tokenledger.Option) []tokenledger.Option {
	return append([]tokenledger.Option{
		tokenledger.WithLogger(env.logger),
		tokenledger.WithJournalConfig(env.cfg.JournalBatchSize, env.cfg.JournalFlushInterval),
	}, extra...)
}

func newLedger(env *cmdEnv, s store.Store, extra ...tokenledger.Option) (*tokenledger.Ledger, error) {
	owner, err := env.cfg.DeployerAddress()
	if err != nil {
		return nil, err
	}
	supply, err := env.cfg.Supply()
	if err != nil {
		return nil, err
	}
	return tokenledger.New(tokenledger.Config{
		Name:        env.cfg.Name,
		Symbol:      env.cfg.Symbol,
		Decimals:    env.cfg.Decimals,
		TotalSupply: supply,
	}, owner, ledgerOpts(env, append(extra, tokenledger.WithStore(s))...)...)
}

func openOrDeploy(ctx context.Context, env *cmdEnv, s store.Store, extra ...tokenledger.Option) (*tokenledger.Ledger, error) {
	if env.cfg.TokenID == "" {
		return newLedger(env, s, extra...)
	}
	tokenID, err := id.ParseTokenID(env.cfg.TokenID)
	if err != nil {
		return nil, err
	}
	return tokenledger.Open(ctx, s, tokenID, ledgerOpts(env, extra...)...)
}

func openPersisted(ctx context.Context, env *cmdEnv) (*tokenledger.Ledger, error) {
	if env.cfg.TokenID == "" {
		return nil, errors.New("--token-id or TOKENLEDGER_TOKEN_ID is required")
	}
	s, err := openStore(env.cfg)
	if err != nil {
		return nil, err
	}
	l, err := openOrDeploy(ctx, env, s)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return l, nil
}

// auditLogger records audit events to the structured log.
func auditLogger(logger *slog.Logger) audithook.Recorder {
	return audithook.RecorderFunc(func(ctx context.Context, evt *audithook.AuditEvent) error {
		logger.InfoContext(ctx, "audit",
			"action", evt.Action,
			"resource", evt.Resource,
			"resource_id", evt.ResourceID,
			"outcome", evt.Outcome,
			"severity", evt.Severity,
			"reason", evt.Reason,
		)
		return nil
	})
}
