package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"coursemetrics/lib/configutil"
	"coursemetrics/lib/pagestore"
	"coursemetrics/lib/platforms/udemy"
	"coursemetrics/lib/telemetry"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type CredentialsConfig struct {
	// AccountName + AccountID derive the API base url; BaseUrl, when set,
	// wins (useful for pointing at a fake server).
	AccountName  string `json:"account_name"`
	AccountID    int64  `json:"account_id"`
	BaseUrl      string `json:"base_url"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type Config struct {
	Credentials    CredentialsConfig `json:"credentials"`
	Anonymize      *bool             `json:"anonymize"`
	PageSize       int               `json:"page_size"`
	TimeoutSeconds int               `json:"timeout_seconds"`
	ThrottleMs     int               `json:"throttle_ms"`
	DataDir        string            `json:"data_dir"`
	MartPath       string            `json:"mart_path"`
	Telemetry      telemetry.Config  `json:"telemetry"`
}

func (c Config) baseUrl() string {
	if c.Credentials.BaseUrl != "" {
		return c.Credentials.BaseUrl
	}
	return fmt.Sprintf(
		"https://%s.udemy.com/api-2.0/organizations/%d/",
		c.Credentials.AccountName,
		c.Credentials.AccountID,
	)
}

func (c Config) anonymize() bool {
	return c.Anonymize == nil || *c.Anonymize
}

func (c Config) dataDir() string {
	if c.DataDir == "" {
		return "data"
	}
	return c.DataDir
}

func (c Config) bronzeDir() string { return filepath.Join(c.dataDir(), "01_bronze") }
func (c Config) silverDir() string { return filepath.Join(c.dataDir(), "02_silver") }
func (c Config) goldDir() string   { return filepath.Join(c.dataDir(), "03_gold") }

func (c Config) martPath() string {
	if c.MartPath == "" {
		return filepath.Join(c.goldDir(), "mart.db")
	}
	return c.MartPath
}

var (
	configPath string
	config     Config
	tel        telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "coursemetrics",
	Short: "coursemetrics extracts, stages and publishes learning analytics reports.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		config, err = configutil.ReadConfig[Config](configPath)
		if err != nil {
			return fmt.Errorf("read config %s: %w", configPath, err)
		}

		tel, err = telemetry.Setup(cmd.Context(), "coursemetrics", config.Telemetry)
		if err != nil {
			return err
		}

		slog.Info("starting", "run_id", uuid.NewString(), "command", cmd.Name())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := tel.Shutdown(cmd.Context()); err != nil {
			slog.Warn("failed to shut down telemetry", "err", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&configPath, "config", "c", "coursemetrics.json5",
		"path to the pipeline configuration file",
	)
}

func newClient() *udemy.Client {
	return udemy.NewClient(udemy.ClientOptions{
		BaseUrl:      config.baseUrl(),
		ClientID:     config.Credentials.ClientID,
		ClientSecret: config.Credentials.ClientSecret,
		Store:        pagestore.NewStore(config.bronzeDir()),
		Timeout:      time.Duration(config.TimeoutSeconds) * time.Second,
		PageSize:     config.PageSize,
		Throttle:     time.Duration(config.ThrottleMs) * time.Millisecond,
	})
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
