package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"profrank-backend/internal/components/chrono"
	"profrank-backend/internal/components/telemetry"
	"profrank-backend/internal/extract"
	"profrank-backend/internal/scrapers/ratings"
	"profrank-backend/lib/configutil"
	"profrank-backend/lib/util/serviceutil"

	"github.com/spf13/cobra"
)

const defaultConfigName = "profrank.json5"

type Config struct {
	Extract   extract.Config   `json:"extract"`
	Telemetry telemetry.Config `json:"telemetry"`
	// Database is where runs are exported to when --db is not given, it is
	// either a sqlite file path or a libsql url.
	Database string `json:"database"`
}

var (
	configPath *string
	verbose    *bool

	config Config
	otel   telemetry.Otel
)

var rootCmd = &cobra.Command{
	Use:           "profrank",
	Short:         "profrank extracts the instructors of a course out of the ratings service and ranks them.",
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(*verbose)

		var err error
		config, err = loadConfig(*configPath)
		if err != nil {
			return err
		}

		otel, err = telemetry.SetupOtel(cmd.Context(), "profrank", config.Telemetry)
		if err != nil {
			slog.Warn("failed to setup otel, continuing without it", "err", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := otel.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to shutdown otel", "err", err)
		}
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "", fmt.Sprintf("The config file to read, %s is searched upwards from the cwd by default.", defaultConfigName))
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug reports.")
}

// loadConfig reads the config file, a missing default config file is not
// an error: every setting has a default.
func loadConfig(path string) (Config, error) {
	var cfg Config
	var err error
	if path != "" {
		cfg, err = configutil.ReadConfig[Config](path)
	} else {
		cfg, err = configutil.ReadRecursively[Config](defaultConfigName)
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("no config file found, using defaults", "name", defaultConfigName)
			err = nil
		}
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg.Extract = cfg.Extract.WithDefaults()
	return cfg, nil
}

func newClient(cfg extract.Config) *ratings.Client {
	return ratings.NewClient(cfg.Remote.ClientOptions(), telemetry.SlogAPI{}, chrono.StandardImpl{})
}

func ExecuteContext(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		serviceutil.Fatal("profrank failed", err)
	}
}
