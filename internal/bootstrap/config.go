package bootstrap

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ServerPort       string        `mapstructure:"SERVER_PORT"`
	RedisUrl         string        `mapstructure:"REDIS_URL"`
	MongoUri         string        `mapstructure:"MONGO_URI"`
	MongoDatabase    string        `mapstructure:"MONGO_DATABASE"`
	IsLocalCors      bool          `mapstructure:"LOCAL_CORS"`
	HistoryLimit     int           `mapstructure:"HISTORY_LIMIT"`
	AnalysisCacheTTL time.Duration `mapstructure:"ANALYSIS_CACHE_TTL"`
	MaxUploadBytes   int64         `mapstructure:"MAX_UPLOAD_BYTES"`

	Pipeline  PipelineConfig  `mapstructure:",squash"`
	Evaluator EvaluatorConfig `mapstructure:",squash"`
	Heuristic HeuristicConfig `mapstructure:",squash"`
}

type PipelineConfig struct {
	MaxImageSide       int     `mapstructure:"PIPELINE_MAX_IMAGE_SIDE"`
	MaxPixels          int     `mapstructure:"PIPELINE_MAX_PIXELS"`
	MinBoardConfidence float64 `mapstructure:"PIPELINE_MIN_BOARD_CONFIDENCE"`
	MinBoardAreaRatio  float64 `mapstructure:"PIPELINE_MIN_BOARD_AREA_RATIO"`
	MinPieceFraction   float64 `mapstructure:"PIPELINE_MIN_PIECE_FRACTION"`
}

// EvaluatorConfig selects the native evaluator. Kind is one of "", "process",
// "http" or "grpc"; an empty kind leaves only the heuristic.
type EvaluatorConfig struct {
	Kind             string        `mapstructure:"EVALUATOR_KIND"`
	ModelPath        string        `mapstructure:"EVALUATOR_MODEL"`
	Command          string        `mapstructure:"EVALUATOR_COMMAND"`
	Url              string        `mapstructure:"EVALUATOR_URL"`
	GrpcAddr         string        `mapstructure:"EVALUATOR_GRPC_ADDR"`
	GrpcPort         string        `mapstructure:"EVALUATOR_GRPC_PORT"`
	Timeout          time.Duration `mapstructure:"EVALUATOR_TIMEOUT"`
	InitTimeout      time.Duration `mapstructure:"EVALUATOR_INIT_TIMEOUT"`
	EvalLimit        float64       `mapstructure:"EVALUATOR_EVAL_LIMIT"`
	StrictValidation bool          `mapstructure:"EVALUATOR_STRICT_VALIDATION"`
}

type HeuristicConfig struct {
	PipDivisor      float64 `mapstructure:"HEURISTIC_PIP_DIVISOR"`
	BlotWeight      float64 `mapstructure:"HEURISTIC_BLOT_WEIGHT"`
	MaterialWeight  float64 `mapstructure:"HEURISTIC_MATERIAL_WEIGHT"`
	EvalLimit       float64 `mapstructure:"HEURISTIC_EVAL_LIMIT"`
	WinBase         float64 `mapstructure:"HEURISTIC_WIN_BASE"`
	WinSlope        float64 `mapstructure:"HEURISTIC_WIN_SLOPE"`
	GammonBase      float64 `mapstructure:"HEURISTIC_GAMMON_BASE"`
	GammonSlope     float64 `mapstructure:"HEURISTIC_GAMMON_SLOPE"`
	BackgammonBase  float64 `mapstructure:"HEURISTIC_BACKGAMMON_BASE"`
	BackgammonSlope float64 `mapstructure:"HEURISTIC_BACKGAMMON_SLOPE"`
}

var defaults = map[string]any{
	"SERVER_PORT":        "8080",
	"REDIS_URL":          "localhost:6379",
	"MONGO_URI":          "mongodb://localhost:27017",
	"MONGO_DATABASE":     "bgscan",
	"LOCAL_CORS":         false,
	"HISTORY_LIMIT":      100,
	"ANALYSIS_CACHE_TTL": 24 * time.Hour,
	"MAX_UPLOAD_BYTES":   16 << 20,

	"PIPELINE_MAX_IMAGE_SIDE":       1024,
	"PIPELINE_MAX_PIXELS":           50_000_000,
	"PIPELINE_MIN_BOARD_CONFIDENCE": 0.5,
	"PIPELINE_MIN_BOARD_AREA_RATIO": 0.1,
	"PIPELINE_MIN_PIECE_FRACTION":   0.5,

	"EVALUATOR_KIND":              "",
	"EVALUATOR_MODEL":             "",
	"EVALUATOR_COMMAND":           "wildbg-eval",
	"EVALUATOR_URL":               "",
	"EVALUATOR_GRPC_ADDR":         "localhost:8082",
	"EVALUATOR_GRPC_PORT":         "8082",
	"EVALUATOR_TIMEOUT":           5 * time.Second,
	"EVALUATOR_INIT_TIMEOUT":      30 * time.Second,
	"EVALUATOR_EVAL_LIMIT":        0.0,
	"EVALUATOR_STRICT_VALIDATION": false,

	"HEURISTIC_PIP_DIVISOR":      50.0,
	"HEURISTIC_BLOT_WEIGHT":      0.2,
	"HEURISTIC_MATERIAL_WEIGHT":  0.3,
	"HEURISTIC_EVAL_LIMIT":       3.0,
	"HEURISTIC_WIN_BASE":         50.0,
	"HEURISTIC_WIN_SLOPE":        15.0,
	"HEURISTIC_GAMMON_BASE":      12.0,
	"HEURISTIC_GAMMON_SLOPE":     4.0,
	"HEURISTIC_BACKGAMMON_BASE":  2.0,
	"HEURISTIC_BACKGAMMON_SLOPE": 1.0,
}

// Setup reads cfgPath (a .env file) on top of the defaults. The file is
// optional; values from the process environment win over both.
func Setup(cfgPath string) (*Config, error) {
	v := viper.New()
	if err := load(v, cfgPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func load(v *viper.Viper, cfgPath string) error {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if cfgPath != "" {
		if err := godotenv.Load(cfgPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		v.SetConfigFile(cfgPath)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	v.AutomaticEnv()
	return nil
}

// Defaults returns the configuration without reading any file.
func Defaults() Config {
	v := viper.New()
	_ = load(v, "")
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}
