package commands

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/teranos/ontix/config"
	"github.com/teranos/ontix/errors"
)

// ConfigCmd manages the ontix configuration.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Print the merged configuration as TOML, after defaults, config
files, and ONTIX_* environment variables have been applied.

Subcommands:
  init  - Write a starter config file

Examples:
  ontix config
  ontix config init
  ontix config init --path ./ontix.toml`,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a starter configuration with one local SQLite backend.

Defaults to ~/.ontix/config.toml; an existing file is rotated to a
.back1 backup before writing.`,
	RunE: runConfigInit,
}

var configInitPathFlag string

func init() {
	ConfigCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().StringVar(&configInitPathFlag, "path", "", "Destination file (default ~/.ontix/config.toml)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to render configuration")
	}
	fmt.Print(string(data))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configInitPathFlag
	if path == "" {
		path = config.UserConfigPath()
	}
	if path == "" {
		return errors.New("could not determine home directory; pass --path")
	}

	existed := false
	if _, err := os.Stat(path); err == nil {
		existed = true
	}

	if err := config.Save(config.Default(), path); err != nil {
		return err
	}

	if existed {
		fmt.Printf("Config written: %s (previous file kept as %s.back1)\n", path, path)
	} else {
		fmt.Printf("Config written: %s\n", path)
	}
	return nil
}
