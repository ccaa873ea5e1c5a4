package cli

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"tavern/internal/config"
	"tavern/internal/storage/migrations"
)

type checkResult struct {
	name    string
	status  string // "ok", "warn", "fail"
	message string
}

// NewDoctorCmd creates the doctor command.
func NewDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration and connectivity problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			if cliCtx == nil {
				return fmt.Errorf("CLI context not initialized")
			}

			results := []checkResult{
				checkConfigFile(cliCtx),
				checkEngineConstraint(cliCtx.Config),
				checkStorage(cliCtx),
				checkEngineReachable(cliCtx.Config),
			}

			failed := false
			for _, r := range results {
				icon := "✓"
				switch r.status {
				case "warn":
					icon = "⚠"
				case "fail":
					icon = "✗"
					failed = true
				}
				fmt.Printf("  %s %-16s %s\n", icon, r.name, r.message)
			}

			if failed {
				return fmt.Errorf("doctor found problems")
			}
			fmt.Println("\nAll checks passed.")
			return nil
		},
	}
}

func checkConfigFile(cliCtx *CLIContext) checkResult {
	if _, err := os.Stat(cliCtx.ConfigPath); err != nil {
		return checkResult{"config", "warn",
			fmt.Sprintf("%s not found, using defaults (run 'tavern init')", cliCtx.ConfigPath)}
	}
	return checkResult{"config", "ok", cliCtx.ConfigPath}
}

func checkEngineConstraint(cfg *config.Config) checkResult {
	if cfg.Engine.MinVersion == "" {
		return checkResult{"engine version", "ok", "no constraint configured"}
	}
	if _, err := semver.NewConstraint(cfg.Engine.MinVersion); err != nil {
		return checkResult{"engine version", "fail",
			fmt.Sprintf("invalid constraint %q: %v", cfg.Engine.MinVersion, err)}
	}
	return checkResult{"engine version", "ok", cfg.Engine.MinVersion}
}

func checkStorage(cliCtx *CLIContext) checkResult {
	db, err := cliCtx.GetStorage()
	if err != nil {
		return checkResult{"storage", "fail", err.Error()}
	}
	version, err := migrations.Version(db.DB)
	if err != nil {
		return checkResult{"storage", "fail", fmt.Sprintf("schema version: %v", err)}
	}
	return checkResult{"storage", "ok",
		fmt.Sprintf("%s (schema v%d)", cliCtx.StoragePath, version)}
}

func checkEngineReachable(cfg *config.Config) checkResult {
	u, err := url.Parse(cfg.Engine.URL)
	if err != nil {
		return checkResult{"engine", "fail", fmt.Sprintf("invalid URL %q: %v", cfg.Engine.URL, err)}
	}

	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "wss":
			host = net.JoinHostPort(u.Hostname(), "443")
		default:
			host = net.JoinHostPort(u.Hostname(), "80")
		}
	}

	conn, err := net.DialTimeout("tcp", host, 3*time.Second)
	if err != nil {
		return checkResult{"engine", "warn",
			fmt.Sprintf("%s unreachable: %v", cfg.Engine.URL, err)}
	}
	conn.Close()
	return checkResult{"engine", "ok", cfg.Engine.URL}
}
