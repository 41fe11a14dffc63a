package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/grovetools/treenote/internal/tui/prompt"
	"github.com/grovetools/treenote/pkg/archive"
	"github.com/grovetools/treenote/pkg/recent"
	"github.com/grovetools/treenote/pkg/service"
)

var (
	cfgFile  string
	Password string
)

func InitConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(filepath.Join(home, ".config", "treenote"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("TN")
	viper.AutomaticEnv()

	SetDefaults(viper.GetViper())

	// A missing config file is fine; the defaults apply.
	_ = viper.ReadInConfig()
}

// SetDefaults registers the default of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backup.enabled", true)
	v.SetDefault("backup.count", 3)
	v.SetDefault("backup.dir", "")
	v.SetDefault("archive.tool", archive.ToolBuiltin)
	v.SetDefault("archive.seven_zip", "7za")
	v.SetDefault("integrity.allow_corrupt_writes", false)
	v.SetDefault("log.level", "warn")
	v.SetDefault("temp_dir", "")
	v.SetDefault("recent.enabled", true)
	v.SetDefault("recent.limit", recent.DefaultLimit)
	if home, err := os.UserHomeDir(); err == nil {
		v.SetDefault("data_dir", filepath.Join(home, ".local", "share", "treenote"))
	}
}

// OpenRecent opens the recent documents registry. It returns nil when the
// list is disabled or no data directory is configured.
func OpenRecent() (*recent.Registry, error) {
	dataDir := expandHome(viper.GetString("data_dir"))
	if dataDir == "" || !viper.GetBool("recent.enabled") {
		return nil, nil
	}
	return recent.NewRegistry(dataDir, viper.GetInt("recent.limit"))
}

// NewLogger builds the process logger at the configured level. Logs go to
// stderr so command output stays clean.
func NewLogger(v *viper.Viper) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(v.GetString("log.level"))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)
	return logger, nil
}

// Options maps the settings in v onto storage options.
func Options(v *viper.Viper, logger *logrus.Logger) (service.Options, error) {
	entry := logrus.NewEntry(logger)
	archiver, err := archive.New(v.GetString("archive.tool"), v.GetString("archive.seven_zip"), entry)
	if err != nil {
		return service.Options{}, err
	}

	opts := service.DefaultOptions()
	opts.BackupEnabled = v.GetBool("backup.enabled")
	opts.BackupCount = v.GetInt("backup.count")
	opts.BackupDir = expandHome(v.GetString("backup.dir"))
	opts.AllowCorruptWrites = v.GetBool("integrity.allow_corrupt_writes")
	opts.TempDir = expandHome(v.GetString("temp_dir"))
	opts.Archiver = archiver
	opts.Prompter = &prompt.Terminal{}
	opts.Logger = entry
	if opts.BackupCount < 0 {
		return service.Options{}, fmt.Errorf("backup.count must not be negative, got %d", opts.BackupCount)
	}
	return opts, nil
}

// DocumentPassword is the password given on the command line or in the
// TN_PASSWORD environment variable.
func DocumentPassword() string {
	if Password != "" {
		return Password
	}
	return viper.GetString("password")
}

func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/treenote/config.yaml)")
	cmd.PersistentFlags().StringVarP(&Password, "password", "p", "", "Password of an encrypted document")
}
