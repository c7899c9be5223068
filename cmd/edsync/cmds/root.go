package cmds

import (
	"edsync/internal/types"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const SitesFileEnvKey = "SITES_FILE"

var (
	cfgFile  string
	logLevel string
	logJSON  bool
)

// Root builds the edsync command tree.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "edsync",
		Short: "edsync keeps block-editor settings of remote sites in a local cache",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(lvl)
			if logJSON {
				log.SetFormatter(&log.JSONFormatter{})
			}
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv(SitesFileEnvKey), "sites config file (YAML)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level")
	root.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON")

	root.AddCommand(ServeCmd())
	root.AddCommand(FetchCmd())
	root.AddCommand(ShowCmd())
	return root
}

func loadConfig() (types.Config, error) {
	if cfgFile == "" {
		return types.Config{}, types.Err(types.ErrInvalidConfig, nil, "no sites file; pass --config or set %s", SitesFileEnvKey)
	}
	return types.LoadConfigFile(cfgFile)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
