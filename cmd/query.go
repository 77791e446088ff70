package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"

	"github.com/aspectumapp/osm2geojson/internal/convert"
	"github.com/aspectumapp/osm2geojson/internal/logger"
	"github.com/aspectumapp/osm2geojson/internal/overpass"
)

var overpassURL string

var queryCmd = &cobra.Command{
	Use:   "query <query.ql>",
	Short: "Run an Overpass QL query and convert the result to GeoJSON",
	Long: `Run an Overpass QL query against the Overpass API and convert the
response to GeoJSON. The query is read from the given file, or from
stdin when the argument is "-".

Queries should request JSON output ([out:json]); XML responses are
handled as well.`,
	Args: cobra.ExactArgs(1),
	Run:  runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringVar(&overpassURL, "url", overpass.DefaultURL, "Overpass API interpreter endpoint")
	queryCmd.Flags().StringVarP(&cfg.OutputFile, "output", "o", "", "Output file (default: stdout)")
}

func runQuery(cmd *cobra.Command, args []string) {
	log := logger.Get()

	var query []byte
	var err error
	if args[0] == "-" {
		query, err = io.ReadAll(os.Stdin)
	} else {
		query, err = os.ReadFile(args[0])
	}
	if err != nil {
		exitWithError("failed to read query", err)
	}

	client := overpass.NewClient(overpassURL).
		WithRetry(cfg.OverpassRetries, time.Duration(cfg.OverpassDelay))

	log.Info("Querying Overpass API", zap.String("url", overpassURL))
	data, err := client.Query(cmd.Context(), string(query))
	if err != nil {
		exitWithError("overpass query failed", err)
	}

	tables, err := loadTables(cfg)
	if err != nil {
		exitWithError("failed to load classification tables", err)
	}

	doc, err := parseDocument(data, cfg.Format)
	if err != nil {
		exitWithError("failed to parse overpass response", err)
	}
	result, err := convert.Run(doc, convert.Options{
		Tables:   tables,
		Strict:   cfg.Strict,
		KeepUsed: cfg.KeepUsed,
	})
	if err != nil {
		exitWithError("conversion failed", err)
	}

	out, err := marshalFeatures(result, cfg.Indent)
	if err != nil {
		exitWithError("failed to encode GeoJSON", err)
	}

	if cfg.OutputFile == "" {
		fmt.Println(string(out))
		return
	}
	if err := os.WriteFile(cfg.OutputFile, out, 0644); err != nil {
		exitWithError("failed to write output", err)
	}
	log.Info("Wrote GeoJSON", zap.String("output", cfg.OutputFile))
}
