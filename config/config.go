package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// Server configuration
	Server struct {
		// Port the HTTP API listens on
		Port int `env:"SERVER_PORT" envDefault:"8080"`

		// Path to the sqlite database file
		DatabasePath string `env:"DATABASE_PATH" envDefault:"data/pourprice.db"`

		// Allowed CORS origins, comma separated
		CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	}

	// Pricing engine configuration
	Engine struct {
		// Maximum relative move from the current price per recommendation
		GuardrailPct float64 `env:"ENGINE_GUARDRAIL_PCT" envDefault:"0.15"`

		// Recommended prices snap to multiples of this
		RoundingUnit float64 `env:"ENGINE_ROUNDING_UNIT" envDefault:"25"`

		// Absolute minimum recommended price
		PriceFloor float64 `env:"ENGINE_PRICE_FLOOR" envDefault:"25"`

		// Concurrent demand evaluations per optimization run
		OptimizerWorkers int `env:"OPTIMIZER_WORKERS" envDefault:"4"`

		// Optional cost configuration document (JSON)
		CostConfigPath string `env:"COST_CONFIG_PATH" envDefault:""`

		// Optional trained demand model artifact (JSON)
		DemandModelPath string `env:"DEMAND_MODEL_PATH" envDefault:""`

		// Optional market area polygons (GeoJSON)
		MarketAreasPath string `env:"MARKET_AREAS_PATH" envDefault:""`

		// Restrict benchmarks to venues inside this market area
		MarketArea string `env:"MARKET_AREA" envDefault:""`
	}

	// BatchProcessing configuration
	BatchProcessing struct {
		// Maximum number of records to accumulate before processing
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"100"`

		// Maximum time to wait before processing a non-full batch (in seconds)
		MaxBatchWaitTime int `env:"BATCH_WAIT_TIME" envDefault:"30"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}

	// Scheduler configuration
	Scheduler struct {
		// Minutes between benchmark recomputes
		RecomputeIntervalMinutes int `env:"RECOMPUTE_INTERVAL_MINUTES" envDefault:"60"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
