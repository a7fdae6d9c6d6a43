package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/selivandex/campaign-advisor/internal/adapters/analyzer"
	"github.com/selivandex/campaign-advisor/internal/adapters/cache"
	"github.com/selivandex/campaign-advisor/internal/adapters/config"
	"github.com/selivandex/campaign-advisor/internal/adapters/database"
	"github.com/selivandex/campaign-advisor/internal/adapters/ledger"
	"github.com/selivandex/campaign-advisor/internal/adapters/notify"
	"github.com/selivandex/campaign-advisor/internal/adapters/registry"
	"github.com/selivandex/campaign-advisor/internal/advisor"
	"github.com/selivandex/campaign-advisor/internal/behavior"
	"github.com/selivandex/campaign-advisor/internal/gasforecast"
	"github.com/selivandex/campaign-advisor/internal/risk"
	"github.com/selivandex/campaign-advisor/pkg/logger"
	"github.com/selivandex/campaign-advisor/pkg/models"
)

type flags struct {
	contract   string
	wallets    string
	start      string
	horizon    int
	useCache   bool
	saveCache  bool
	noTelegram bool
}

func main() {
	var f flags
	flag.StringVar(&f.contract, "contract", "", "target contract address (overrides CAMPAIGN_TARGET_CONTRACT)")
	flag.StringVar(&f.wallets, "wallets", "", "path to wallet list CSV (overrides CAMPAIGN_WALLET_LIST)")
	flag.StringVar(&f.start, "start", "", "campaign start date YYYY-MM-DD (overrides CAMPAIGN_START_DATE)")
	flag.IntVar(&f.horizon, "horizon", 0, "forecast horizon in days (overrides CAMPAIGN_FORECAST_DAYS)")
	flag.BoolVar(&f.useCache, "use-cache", false, "read cached pillar results when available")
	flag.BoolVar(&f.saveCache, "save-cache", false, "persist fresh pillar results to the cache")
	flag.BoolVar(&f.noTelegram, "no-telegram", false, "skip telegram report delivery")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if err := run(ctx, f); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags) error {
	// .env is optional; real deployments use the environment directly
	_ = godotenv.Load()
	applyFlagOverrides(f)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("campaign advisor starting",
		zap.String("contract", cfg.Campaign.NormalizedTarget()),
		zap.String("start_date", cfg.Campaign.StartDate),
		zap.Int("horizon_days", cfg.Campaign.ForecastDays),
	)

	store, closeStore := initCache(cfg)
	defer closeStore()

	ledgerClient := initLedger(ctx, cfg)
	if ledgerClient == nil && (store == nil || !f.useCache) {
		return fmt.Errorf("ledger is unreachable and no usable cache is configured")
	}
	if ledgerClient != nil {
		defer ledgerClient.Close()
	}

	var (
		riskSource     risk.LedgerSource         = ledgerClient
		historySource  gasforecast.HistorySource = ledgerClient
		behaviorSource behavior.WalletSource     = ledgerClient
	)
	if ledgerClient == nil {
		logger.Warn("running in cache-only mode, fresh pillar computes will degrade")
		down := &downLedger{}
		riskSource, historySource, behaviorSource = down, down, down
	}

	registryClient := registry.NewEtherscanClient(&cfg.Registry)
	analyzerClient := analyzer.NewSlither(&cfg.Analyzer)

	riskEngine := risk.NewEngine(riskSource, registryClient, analyzerClient,
		cfg.Campaign.AuditedSet(), risk.Config{
			CallWindowDays: cfg.Ledger.CallWindowDays,
			MaxDependents:  cfg.Ledger.MaxDependents,
		})

	var histCache gasforecast.HistoryCache
	if store != nil {
		histCache = store
	}
	gasEngine := gasforecast.NewEngine(historySource, histCache, gasforecast.Config{
		HistoryDays:      cfg.Ledger.GasHistoryDays,
		UseCachedHistory: f.useCache,
		SaveHistory:      f.saveCache,
	})

	behaviorEngine := behavior.NewEngine(behaviorSource, behavior.Config{
		WalletWindowDays:   cfg.Ledger.WalletWindowDays,
		ActivityWindowDays: cfg.Ledger.ActivityWindowDay,
	})

	var resultCache advisor.ResultCache
	if store != nil {
		resultCache = store
	}
	service, err := advisor.NewService(riskEngine, gasEngine, behaviorEngine, resultCache)
	if err != nil {
		return fmt.Errorf("failed to construct advisor: %w", err)
	}

	wallets := loadWallets(cfg.Campaign.WalletListPath)

	results := service.RunFullAnalysis(ctx, advisor.RunParams{
		Contract:    cfg.Campaign.NormalizedTarget(),
		Wallets:     wallets,
		StartDate:   cfg.Campaign.CampaignStart(),
		HorizonDays: cfg.Campaign.ForecastDays,
		UseCache:    f.useCache,
		SaveCache:   f.saveCache,
	})
	recommendations := service.Reconcile(results)

	advisor.PrintReport(results, recommendations)

	if cfg.Telegram.IsEnabled() && !f.noTelegram {
		sendTelegramReport(cfg, results, recommendations)
	}

	// Degraded pillars are a reported condition, not a failure.
	return nil
}

// applyFlagOverrides pushes explicit CLI values into the environment so the
// config layer stays the single source of truth.
func applyFlagOverrides(f flags) {
	if f.contract != "" {
		os.Setenv("CAMPAIGN_TARGET_CONTRACT", f.contract)
	}
	if f.wallets != "" {
		os.Setenv("CAMPAIGN_WALLET_LIST", f.wallets)
	}
	if f.start != "" {
		os.Setenv("CAMPAIGN_START_DATE", f.start)
	}
	if f.horizon > 0 {
		os.Setenv("CAMPAIGN_FORECAST_DAYS", strconv.Itoa(f.horizon))
	}
}

// initCache connects Postgres and runs migrations. Cache failures disable
// caching instead of failing the run.
func initCache(cfg *config.Config) (*cache.Store, func()) {
	if !cfg.Cache.Enabled {
		logger.Info("result cache disabled by configuration")
		return nil, func() {}
	}

	db, err := database.New(&cfg.Cache)
	if err != nil {
		logger.Warn("cache database unavailable, continuing without cache", zap.Error(err))
		return nil, func() {}
	}

	if err := database.RunMigrations(db.Conn(), cfg.Cache.MigrationsPath); err != nil {
		logger.Warn("cache migrations failed, continuing without cache", zap.Error(err))
		db.Close()
		return nil, func() {}
	}

	return cache.NewStore(db.DB()), func() { db.Close() }
}

// initLedger connects ClickHouse and verifies it responds. Returns nil when
// the ledger is down; the caller decides whether cache-only mode is viable.
func initLedger(ctx context.Context, cfg *config.Config) *ledger.Client {
	client, err := ledger.New(&cfg.Ledger)
	if err != nil {
		logger.Warn("ledger connection failed", zap.Error(err))
		return nil
	}
	if err := client.Ping(ctx); err != nil {
		logger.Warn("ledger ping failed", zap.Error(err))
		client.Close()
		return nil
	}
	return client
}

// loadWallets reads the wallet list CSV (wallet_address column). A missing or
// malformed file yields an empty list; clustering degrades accordingly.
func loadWallets(path string) []string {
	file, err := os.Open(path)
	if err != nil {
		logger.Warn("wallet list not readable, proceeding without wallets",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil || len(rows) == 0 {
		logger.Warn("wallet list not parseable, proceeding without wallets",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil
	}

	col := -1
	for i, name := range rows[0] {
		if name == "wallet_address" {
			col = i
			break
		}
	}
	if col < 0 {
		logger.Warn("wallet list has no wallet_address column",
			zap.String("path", path),
		)
		return nil
	}

	var wallets []string
	for _, row := range rows[1:] {
		if col < len(row) && row[col] != "" {
			wallets = append(wallets, row[col])
		}
	}

	logger.Info("wallet list loaded",
		zap.String("path", path),
		zap.Int("wallets", len(wallets)),
	)
	return wallets
}

func sendTelegramReport(cfg *config.Config, results *models.AnalysisResults, recs []models.Recommendation) {
	tg, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if err != nil {
		logger.Warn("telegram notifier unavailable", zap.Error(err))
		return
	}
	if err := tg.SendReport(advisor.RenderText(results, recs)); err != nil {
		logger.Warn("telegram delivery failed", zap.Error(err))
	}
}

// downLedger stands in for an unreachable ledger so fresh computes degrade
// instead of panicking in cache-only mode.
type downLedger struct{}

func (d *downLedger) OutboundCalls(context.Context, string, int, int) ([]string, error) {
	return nil, fmt.Errorf("ledger offline: %w", models.ErrDataUnavailable)
}

func (d *downLedger) HourlyGas(context.Context, int) ([]models.GasHourRow, error) {
	return nil, fmt.Errorf("ledger offline: %w", models.ErrDataUnavailable)
}

func (d *downLedger) WalletFirstTouch(context.Context, []string, int) ([]models.WalletRecord, error) {
	return nil, fmt.Errorf("ledger offline: %w", models.ErrDataUnavailable)
}

func (d *downLedger) CohortRows(context.Context, string, time.Time) ([]models.CohortRow, error) {
	return nil, fmt.Errorf("ledger offline: %w", models.ErrDataUnavailable)
}

func (d *downLedger) HourlyVolume(context.Context, string, int) ([]models.HourlyVolumeRow, error) {
	return nil, fmt.Errorf("ledger offline: %w", models.ErrDataUnavailable)
}
