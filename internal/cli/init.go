package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tavern/internal/config"
	"tavern/internal/identity"
	"tavern/internal/storage"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize tavern configuration and local storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := config.DefaultConfigDir()
			if err != nil {
				return fmt.Errorf("resolve config directory: %w", err)
			}

			configPath := globalFlags.ConfigPath
			if configPath == "" {
				configPath = filepath.Join(configDir, "config.yaml")
			}

			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", configPath)
			}

			if err := os.MkdirAll(configDir, 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}

			cfg := config.Defaults()
			if err := config.SaveTo(cfg, configPath); err != nil {
				return fmt.Errorf("write config: %w", err)
			}

			dataPath, err := config.DefaultDataPath()
			if err != nil {
				return fmt.Errorf("resolve data path: %w", err)
			}

			db, err := storage.Open(dataPath)
			if err != nil {
				return fmt.Errorf("initialize storage: %w", err)
			}
			defer db.Close()

			userID, err := identity.UserID(db)
			if err != nil {
				return fmt.Errorf("assign user id: %w", err)
			}

			fmt.Printf("Initialized tavern\n")
			fmt.Printf("  Config:  %s\n", configPath)
			fmt.Printf("  Storage: %s\n", dataPath)
			fmt.Printf("  User ID: %s\n", userID)
			fmt.Println("\nEdit the config to point engine.url at your session gateway, then run 'tavern play'.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration")

	return cmd
}
