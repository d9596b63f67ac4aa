// Package config provides utilities to load environment variables & set config structs, it includes app, logger, db, redis cache, queue, telemetry and simulation variables.
package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// AppConfig contains environment variables for the application, database, cache, queue, telemetry and the simulation itself
type (
	AppConfig struct {
		App        *App        `mapstructure:"app"`
		Redis      *Redis      `mapstructure:"redis"`
		Logger     *Logger     `mapstructure:"logger"`
		DB         *DB         `mapstructure:"db"`
		Queue      *Queue      `mapstructure:"queue"`
		Telemetry  *Telemetry  `mapstructure:"telemetry"`
		Simulation *Simulation `mapstructure:"simulation"`
	}

	// App contains all the environment variables for the application
	App struct {
		Name  string `mapstructure:"name"`
		Env   string `mapstructure:"env"`
		Owner string `mapstructure:"owner"`
	}

	// Redis contains all the environment variables for the run registry
	Redis struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
	}

	// DB contains all the environment variables for the results database
	DB struct {
		Connection string `mapstructure:"connection"`
		Database   string `mapstructure:"database"`
		Host       string `mapstructure:"host"`
		Port       string `mapstructure:"port"`
		User       string `mapstructure:"user"`
		Password   string `mapstructure:"password"`
		Name       string `mapstructure:"name"`
	}

	// Logger contains all the environment variables for the logger
	Logger struct {
		Level             string                `mapstructure:"level"`
		Development       bool                  `mapstructure:"development"`
		DisableStacktrace bool                  `mapstructure:"disableStacktrace"`
		Encoding          string                `mapstructure:"encoding"`
		EncoderConfig     zapcore.EncoderConfig `mapstructure:"encoderConfig"`
	}

	// Queue contains all the environment variables for the message broker
	Queue struct {
		URL      string `mapstructure:"url"`
		Dispatch bool   `mapstructure:"dispatch"`
	}

	// Telemetry contains the Prometheus query endpoint, the exporter listen
	// address and the fallback values substituted when queries fail
	Telemetry struct {
		PrometheusURL string  `mapstructure:"prometheusUrl"`
		MetricsAddr   string  `mapstructure:"metricsAddr"`
		FallbackCPU   float64 `mapstructure:"fallbackCpu"`
		FallbackMem   float64 `mapstructure:"fallbackMem"`
	}

	// Simulation contains the task batch shape, the power model constants
	// and the scheduling policy list
	Simulation struct {
		Cores            int      `mapstructure:"cores"`
		BasePowerWatts   float64  `mapstructure:"basePowerWatts"`
		MaxPowerWatts    float64  `mapstructure:"maxPowerWatts"`
		TaskCount        int      `mapstructure:"taskCount"`
		TaskDurationMin  float64  `mapstructure:"taskDurationMin"`
		TaskDurationMax  float64  `mapstructure:"taskDurationMax"`
		PriorityLevels   int      `mapstructure:"priorityLevels"`
		TaskMemoryMB     float64  `mapstructure:"taskMemoryMb"`
		EmissionFactor   float64  `mapstructure:"emissionFactor"`
		CostPerKWh       float64  `mapstructure:"costPerKwh"`
		TimeQuantumMS    int      `mapstructure:"timeQuantumMs"`
		Algorithms       []string `mapstructure:"algorithms"`
		SimulationTime   float64  `mapstructure:"simulationTime"`
		SamplingInterval float64  `mapstructure:"samplingInterval"`
		Seed             int64    `mapstructure:"seed"`
		ResultsFile      string   `mapstructure:"resultsFile"`
	}
)

// addZapEncoderConfig fills encoder config with zapcore types
func addZapEncoderConfig(cfg *zapcore.EncoderConfig) {
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.SecondsDurationEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	cfg.EncodeName = func(s string, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString("[" + s + "]")
	}
}

// setDefaults registers a usable baseline so the simulator binaries run with
// no config file present. Values mirror the documented defaults: an 8-core
// host drawing 5W idle to 15W peak, 20 tasks of 0.5-5s, Indian grid factor
// 0.73 kgCO2e/kWh at 8.0 per kWh, 100ms quantum, 60s budget.
func setDefaults() {
	viper.SetDefault("app.name", "green-scheduler")
	viper.SetDefault("app.env", "development")

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "console")
	viper.SetDefault("logger.development", false)
	viper.SetDefault("logger.disableStacktrace", true)
	viper.SetDefault("logger.encoderConfig.messageKey", "msg")
	viper.SetDefault("logger.encoderConfig.levelKey", "level")
	viper.SetDefault("logger.encoderConfig.timeKey", "ts")
	viper.SetDefault("logger.encoderConfig.nameKey", "logger")
	viper.SetDefault("logger.encoderConfig.callerKey", "caller")
	viper.SetDefault("logger.encoderConfig.stacktraceKey", "stacktrace")

	viper.SetDefault("db.connection", "postgres")
	viper.SetDefault("db.port", "5432")

	viper.SetDefault("telemetry.prometheusUrl", "http://localhost:9090")
	viper.SetDefault("telemetry.metricsAddr", ":2112")
	viper.SetDefault("telemetry.fallbackCpu", 50.0)
	viper.SetDefault("telemetry.fallbackMem", 2048.0)

	viper.SetDefault("simulation.cores", 8)
	viper.SetDefault("simulation.basePowerWatts", 5.0)
	viper.SetDefault("simulation.maxPowerWatts", 15.0)
	viper.SetDefault("simulation.taskCount", 20)
	viper.SetDefault("simulation.taskDurationMin", 0.5)
	viper.SetDefault("simulation.taskDurationMax", 5.0)
	viper.SetDefault("simulation.priorityLevels", 3)
	viper.SetDefault("simulation.taskMemoryMb", 256.0)
	viper.SetDefault("simulation.emissionFactor", 0.73)
	viper.SetDefault("simulation.costPerKwh", 8.0)
	viper.SetDefault("simulation.timeQuantumMs", 100)
	viper.SetDefault("simulation.algorithms", []string{
		"FCFS", "SJF", "RoundRobin", "PriorityBased", "EnergyOptimized",
	})
	viper.SetDefault("simulation.simulationTime", 60.0)
	viper.SetDefault("simulation.samplingInterval", 1.0)
	viper.SetDefault("simulation.seed", 0)
	viper.SetDefault("simulation.resultsFile", "results/simulation_results.json")
}

// New creates a new AppConfig instance
func New() *AppConfig {
	// Set up viper to read the config.yaml file
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/secrets/")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("env")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	// Read the config file; a missing file falls back to defaults + env
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("config file not found, using defaults: %v", err)
		} else {
			log.Fatalf("error reading config file: %v", err)
		}
	}

	// Bind the app.name key to the APP_NAME environment variable
	if err := viper.BindEnv("app.name", "APP_NAME"); err != nil {
		log.Fatalf("error finding APP_NAME env variable")
	}

	// Bind DB variables
	viper.BindEnv("db.host", "PG_HOST")
	viper.BindEnv("db.port", "PG_PORT")
	viper.BindEnv("db.user", "PG_USER")
	viper.BindEnv("db.password", "PG_PASS")
	viper.BindEnv("db.name", "PG_DB")

	// Bind Redis variables
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Bind queue and telemetry variables
	viper.BindEnv("queue.url", "AMQP_URL")
	viper.BindEnv("telemetry.prometheusUrl", "PROMETHEUS_URL")
	viper.BindEnv("simulation.seed", "SIM_SEED")

	// Create an instance of AppConfig
	var config *AppConfig
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("unable to decode into struct: %v", err)
	}
	addZapEncoderConfig(&config.Logger.EncoderConfig)

	return config
}
