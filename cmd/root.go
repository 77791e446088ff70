package cmd

import (
	"os"

	"go.uber.org/zap"

	"github.com/spf13/cobra"

	"github.com/aspectumapp/osm2geojson/internal/config"
	"github.com/aspectumapp/osm2geojson/internal/logger"
)

var (
	cfg        = config.DefaultConfig()
	verbose    bool
	logFile    string
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "osm2geojson",
	Short: "Convert OSM and Overpass data to GeoJSON",
	Long: `osm2geojson converts OpenStreetMap data (OSM XML or Overpass API JSON)
into GeoJSON with semantically correct geometries:

  - multipolygon relations assembled from outer/inner member ways,
    including holes and non-contiguous member ordering
  - disconnected way segments merged into closed rings
  - self-intersecting rings repaired
  - polygon-vs-line decisions driven by the osm-polygon-features rules`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			if err := cfg.LoadFile(configFile); err != nil {
				return err
			}
		}
		if verbose {
			cfg.Verbose = true
		}
		if logFile != "" {
			cfg.LogFile = logFile
		}

		if cfg.LogFile != "" {
			logger.InitWithFile(cfg.Verbose, cfg.LogFile)
		} else {
			logger.Init(cfg.Verbose)
		}
		return nil
	},
}

func Execute() error {
	defer logger.Sync()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file for persistent logging (JSON format)")
	rootCmd.PersistentFlags().StringVar(&cfg.PolygonFeaturesFile, "polygon-features", "", "Path to polygon features JSON file (default: built-in table)")
	rootCmd.PersistentFlags().StringVar(&cfg.AreaKeysFile, "area-keys", "", "Path to area keys JSON file (default: built-in table)")
	rootCmd.PersistentFlags().BoolVar(&cfg.KeepUsed, "keep-used", false, "Keep elements consumed as members of other elements in the output")
	rootCmd.PersistentFlags().BoolVar(&cfg.Strict, "strict", false, "Abort on the first element that fails to convert")
	rootCmd.PersistentFlags().IntVarP(&cfg.Indent, "indent", "i", 0, "Indent GeoJSON output with the given number of spaces")
}

func exitWithError(msg string, err error) {
	log := logger.Get()
	if err != nil {
		log.Error(msg, zap.Error(err))
	} else {
		log.Error(msg)
	}
	logger.Sync()
	os.Exit(1)
}
