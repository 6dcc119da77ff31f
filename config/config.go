package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/polyalpha/internal/backtest"
	"github.com/alejandrodnm/polyalpha/internal/domain"
	"github.com/alejandrodnm/polyalpha/internal/kelly"
	"github.com/alejandrodnm/polyalpha/internal/risk"
	"github.com/alejandrodnm/polyalpha/internal/strategy"
)

const (
	ModePaper = "paper"
	ModeLive  = "live"
)

// Config es la configuración completa del pipeline.
type Config struct {
	Scanner                ScannerConfig             `yaml:"scanner"`
	Risk                   RiskConfig                `yaml:"risk"`
	Kelly                  KellyConfig               `yaml:"kelly"`
	Bankroll               float64                   `yaml:"bankroll"` // caja inicial en paper
	StrategyTimeoutSeconds int                       `yaml:"strategy_timeout_seconds"`
	Strategies             map[string]StrategyConfig `yaml:"strategies"`
	ModelEstimates         map[string]float64        `yaml:"model_estimates"` // conditionID → P(YES)
	API                    APIConfig                 `yaml:"api"`
	Execution              ExecutionConfig           `yaml:"execution"`
	Backtest               BacktestConfig            `yaml:"backtest"`
	Notify                 NotifyConfig              `yaml:"notify"`
	Storage                StorageConfig             `yaml:"storage"`
	Log                    LogConfig                 `yaml:"log"`
}

// ScannerConfig controla el polling y los filtros de mercado.
type ScannerConfig struct {
	IntervalSeconds int      `yaml:"scan_interval_seconds"`
	MinVolume       float64  `yaml:"min_volume"`
	MinLiquidity    float64  `yaml:"min_liquidity"`
	ActiveOnly      *bool    `yaml:"active_only"` // nil = true
	Categories      []string `yaml:"categories"`
	MaxMarkets      int      `yaml:"max_markets"`
}

// RiskConfig son los límites del Risk Gate.
type RiskConfig struct {
	MinEdge          float64 `yaml:"min_edge"`
	MaxOpenPositions int     `yaml:"max_open_positions"`
	MaxDailyLossPct  float64 `yaml:"max_daily_loss_pct"`
	MaxPositionPct   float64 `yaml:"max_position_pct"`
}

// KellyConfig es el sizing por defecto de las estrategias.
type KellyConfig struct {
	Fraction    float64 `yaml:"kelly_fraction"`
	MaxFraction float64 `yaml:"max_fraction"`
}

// StrategyConfig es la configuración de una estrategia.
type StrategyConfig struct {
	Enabled       *bool              `yaml:"enabled"`
	KellyFraction float64            `yaml:"kelly_fraction"`
	MaxFraction   float64            `yaml:"max_fraction"`
	Params        map[string]float64 `yaml:"params"`
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	CLOBBase  string `yaml:"clob_base"`
	GammaBase string `yaml:"gamma_base"`
}

// ExecutionConfig elige el executor. Las credenciales solo vienen del entorno.
type ExecutionConfig struct {
	Mode          string  `yaml:"mode"` // paper | live
	OrderEndpoint string  `yaml:"order_endpoint"`
	FeeRate       float64 `yaml:"fee_rate"`

	PrivateKey string `yaml:"-"` // hex, firma EIP-712 de las órdenes; la dirección sale de aquí
	APIKey     string `yaml:"-"`
	Secret     string `yaml:"-"`
	Passphrase string `yaml:"-"`
}

// BacktestConfig son los parámetros del replay.
type BacktestConfig struct {
	InitialBalance float64 `yaml:"initial_balance"`
	SlippagePct    float64 `yaml:"slippage_pct"`
	FeePct         float64 `yaml:"fee_pct"`
	DataPath       string  `yaml:"data_path"`
	HistoryMarkets int     `yaml:"history_markets"` // mercados resueltos a descargar con -fetch-history
}

// NotifyConfig configura los sinks de notificación. Vacío = solo consola.
type NotifyConfig struct {
	WebhookURL            string `yaml:"webhook_url"`
	WebhookTimeoutSeconds int    `yaml:"webhook_timeout_seconds"`
	TelegramToken         string `yaml:"-"`
	TelegramChatID        string `yaml:"telegram_chat_id"`
	Buffer                int    `yaml:"buffer"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse interpreta un YAML ya leído, aplica el entorno y los defaults y valida.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// ScanInterval devuelve el intervalo de escaneo como time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalSeconds) * time.Second
}

// StrategyTimeout devuelve el timeout de Scan + Analyze por estrategia.
func (c *Config) StrategyTimeout() time.Duration {
	return time.Duration(c.StrategyTimeoutSeconds) * time.Second
}

// Limits devuelve los límites del Risk Gate.
func (c *Config) Limits() risk.Limits {
	return risk.Limits{
		MinEdge:          c.Risk.MinEdge,
		MaxOpenPositions: c.Risk.MaxOpenPositions,
		MaxDailyLossPct:  c.Risk.MaxDailyLossPct,
		MaxPositionPct:   c.Risk.MaxPositionPct,
	}
}

// Sizer devuelve el sizer por defecto.
func (c *Config) Sizer() kelly.Sizer {
	return kelly.Sizer{Fraction: c.Kelly.Fraction, MaxFraction: c.Kelly.MaxFraction}
}

// Filter devuelve el filtro del scanner tal como está configurado.
// strategy.ScanFilter lo ajusta a las estrategias habilitadas.
func (c *Config) Filter() domain.MarketFilter {
	return domain.MarketFilter{
		MinVolume:    c.Scanner.MinVolume,
		MinLiquidity: c.Scanner.MinLiquidity,
		ActiveOnly:   c.Scanner.ActiveOnly == nil || *c.Scanner.ActiveOnly,
		Categories:   c.Scanner.Categories,
		Limit:        c.Scanner.MaxMarkets,
	}
}

// StrategySettings traduce la sección strategies al formato del catálogo.
func (c *Config) StrategySettings() map[string]strategy.Settings {
	out := make(map[string]strategy.Settings, len(c.Strategies))
	for id, s := range c.Strategies {
		out[id] = strategy.Settings{
			Enabled:       s.Enabled,
			KellyFraction: s.KellyFraction,
			MaxFraction:   s.MaxFraction,
			Params:        strategy.Params(s.Params),
		}
	}
	return out
}

// BacktestConfig devuelve la configuración del replay.
func (c *Config) BacktestConfig() backtest.Config {
	return backtest.Config{
		InitialBalance: c.Backtest.InitialBalance,
		SlippagePct:    c.Backtest.SlippagePct,
		FeePct:         c.Backtest.FeePct,
		Limits:         c.Limits(),
	}
}

// WebhookTimeout devuelve el timeout del webhook.
func (c *Config) WebhookTimeout() time.Duration {
	return time.Duration(c.Notify.WebhookTimeoutSeconds) * time.Second
}

// Validate comprueba los rangos de los valores ya con defaults.
func (c *Config) Validate() error {
	if err := c.Limits().Validate(); err != nil {
		return err
	}
	if err := c.Sizer().Validate(); err != nil {
		return err
	}
	if c.Bankroll <= 0 {
		return fmt.Errorf("bankroll must be positive, got %v", c.Bankroll)
	}
	switch c.Execution.Mode {
	case ModePaper:
	case ModeLive:
		if c.Execution.APIKey == "" || c.Execution.Secret == "" || c.Execution.Passphrase == "" {
			return fmt.Errorf("live mode requires POLYALPHA_API_KEY, POLYALPHA_API_SECRET and POLYALPHA_API_PASSPHRASE")
		}
		if c.Execution.PrivateKey == "" {
			return fmt.Errorf("live mode requires POLYALPHA_PRIVATE_KEY to sign orders")
		}
	default:
		return fmt.Errorf("unknown execution mode %q", c.Execution.Mode)
	}
	for id, p := range c.ModelEstimates {
		if err := domain.CheckProbability("model_estimates."+id, p); err != nil {
			return err
		}
	}
	return c.BacktestConfig().Validate()
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("POLYALPHA_MODE"); v != "" {
		cfg.Execution.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("POLYALPHA_ORDER_ENDPOINT"); v != "" {
		cfg.Execution.OrderEndpoint = v
	}
	if v := os.Getenv("POLYALPHA_BANKROLL"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("POLYALPHA_BANKROLL: %w", err)
		}
		cfg.Bankroll = f
	}
	cfg.Execution.PrivateKey = strings.TrimPrefix(os.Getenv("POLYALPHA_PRIVATE_KEY"), "0x")
	cfg.Execution.APIKey = os.Getenv("POLYALPHA_API_KEY")
	cfg.Execution.Secret = os.Getenv("POLYALPHA_API_SECRET")
	cfg.Execution.Passphrase = os.Getenv("POLYALPHA_API_PASSPHRASE")

	if v := os.Getenv("POLYALPHA_WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}
	cfg.Notify.TelegramToken = os.Getenv("POLYALPHA_TELEGRAM_TOKEN")
	if v := os.Getenv("POLYALPHA_TELEGRAM_CHAT_ID"); v != "" {
		cfg.Notify.TelegramChatID = v
	}
	if v := os.Getenv("POLYALPHA_DB"); v != "" {
		cfg.Storage.DSN = v
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Scanner.IntervalSeconds <= 0 {
		cfg.Scanner.IntervalSeconds = 60
	}

	def := risk.DefaultLimits()
	if cfg.Risk.MinEdge <= 0 {
		cfg.Risk.MinEdge = def.MinEdge
	}
	if cfg.Risk.MaxOpenPositions <= 0 {
		cfg.Risk.MaxOpenPositions = def.MaxOpenPositions
	}
	if cfg.Risk.MaxDailyLossPct <= 0 {
		cfg.Risk.MaxDailyLossPct = def.MaxDailyLossPct
	}
	if cfg.Risk.MaxPositionPct <= 0 {
		cfg.Risk.MaxPositionPct = def.MaxPositionPct
	}

	if cfg.Kelly.Fraction <= 0 {
		cfg.Kelly.Fraction = kelly.DefaultFraction
	}
	if cfg.Kelly.MaxFraction <= 0 {
		cfg.Kelly.MaxFraction = kelly.DefaultMaxFraction
	}
	if cfg.Bankroll == 0 {
		cfg.Bankroll = 10000
	}
	if cfg.StrategyTimeoutSeconds <= 0 {
		cfg.StrategyTimeoutSeconds = 10
	}

	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Execution.Mode == "" {
		cfg.Execution.Mode = ModePaper
	}

	if cfg.Backtest.InitialBalance <= 0 {
		cfg.Backtest.InitialBalance = cfg.Bankroll
	}
	if cfg.Backtest.SlippagePct <= 0 {
		cfg.Backtest.SlippagePct = backtest.DefaultSlippagePct
	}
	if cfg.Backtest.FeePct <= 0 {
		cfg.Backtest.FeePct = backtest.DefaultFeePct
	}
	if cfg.Backtest.DataPath == "" {
		cfg.Backtest.DataPath = "data/backtest.csv"
	}
	if cfg.Backtest.HistoryMarkets <= 0 {
		cfg.Backtest.HistoryMarkets = 200
	}

	if cfg.Notify.WebhookTimeoutSeconds <= 0 {
		cfg.Notify.WebhookTimeoutSeconds = 5
	}
	if cfg.Notify.Buffer <= 0 {
		cfg.Notify.Buffer = 64
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "polyalpha.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
