package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spf13/cobra"

	"github.com/aspectumapp/osm2geojson/internal/config"
	"github.com/aspectumapp/osm2geojson/internal/convert"
	"github.com/aspectumapp/osm2geojson/internal/element"
	"github.com/aspectumapp/osm2geojson/internal/logger"
	"github.com/aspectumapp/osm2geojson/internal/metrics"
	"github.com/aspectumapp/osm2geojson/internal/osmxml"
	"github.com/aspectumapp/osm2geojson/internal/polyrules"
)

var (
	formatStr       string
	metricsInterval time.Duration
)

var convertCmd = &cobra.Command{
	Use:   "convert <input.osm|input.json> [more inputs...]",
	Short: "Convert OSM XML or Overpass JSON files to GeoJSON",
	Long: `Convert one or more OSM XML or Overpass JSON files to GeoJSON.

A single input writes to --output (or stdout). Multiple inputs convert
concurrently, each writing a .geojson file next to the input. Use "-" to
read a single document from stdin.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&formatStr, "format", "f", "auto", "Input format: auto, json or xml")
	convertCmd.Flags().StringVarP(&cfg.OutputFile, "output", "o", "", "Output file (default: stdout for a single input)")
	convertCmd.Flags().DurationVar(&metricsInterval, "metrics-interval", 0, "Log resource usage at this interval (0 = disabled)")
}

func runConvert(cmd *cobra.Command, args []string) {
	cfg.InputFiles = args
	cfg.Format = config.Format(formatStr)
	log := logger.Get()

	if err := cfg.Validate(); err != nil {
		exitWithError("invalid configuration", err)
	}
	if len(args) > 1 && cfg.OutputFile != "" {
		exitWithError("--output cannot be combined with multiple inputs", nil)
	}

	tables, err := loadTables(cfg)
	if err != nil {
		exitWithError("failed to load classification tables", err)
	}
	opts := convert.Options{
		Tables:   tables,
		Strict:   cfg.Strict,
		KeepUsed: cfg.KeepUsed,
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	interval := metricsInterval
	if interval == 0 {
		interval = time.Duration(cfg.MetricsInterval)
	}
	if interval > 0 {
		go metrics.NewCollector(interval, log).Start(ctx)
	}

	start := time.Now()

	var g errgroup.Group
	for _, input := range args {
		input := input
		g.Go(func() error {
			return convertFile(input, cfg, opts)
		})
	}
	if err := g.Wait(); err != nil {
		exitWithError("conversion failed", err)
	}

	log.Info("Conversion complete",
		zap.Int("inputs", len(args)),
		zap.Duration("elapsed", time.Since(start)))
}

// convertFile converts one input document end to end. Each call owns its
// own conversion run, so files convert independently.
func convertFile(input string, cfg *config.Config, opts convert.Options) error {
	log := logger.Get()

	var data []byte
	var err error
	if input == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(input)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", input, err)
	}

	doc, err := parseDocument(data, cfg.Format)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", input, err)
	}

	result, err := convert.Run(doc, opts)
	if err != nil {
		return fmt.Errorf("failed to convert %s: %w", input, err)
	}
	log.Debug("Converted document",
		zap.String("input", input),
		zap.Int("elements", len(doc.Elements)),
		zap.Int("features", len(result.Shapes)),
		zap.Int("diagnostics", len(result.Diagnostics)))

	out, err := marshalFeatures(result, cfg.Indent)
	if err != nil {
		return fmt.Errorf("failed to encode GeoJSON for %s: %w", input, err)
	}

	dest := cfg.OutputFile
	if dest == "" && input != "-" && len(cfg.InputFiles) > 1 {
		dest = geojsonName(input)
	}
	if dest == "" {
		_, err = os.Stdout.Write(append(out, '\n'))
		return err
	}
	if err := os.WriteFile(dest, out, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	log.Info("Wrote GeoJSON", zap.String("output", dest))
	return nil
}

// parseDocument decodes the input, sniffing the format when set to auto.
func parseDocument(data []byte, format config.Format) (*element.Document, error) {
	f := osmxml.Format(format)
	if format == config.FormatAuto {
		f = osmxml.DetectFormat(data)
	}
	if f == osmxml.FormatXML {
		return osmxml.ParseBytes(data)
	}
	return element.ParseJSON(data)
}

// loadTables resolves the classification tables from config, falling
// back to the built-in defaults per table.
func loadTables(cfg *config.Config) (polyrules.Tables, error) {
	tables := polyrules.DefaultTables()
	if cfg.PolygonFeaturesFile != "" {
		rules, err := polyrules.LoadRuleTable(cfg.PolygonFeaturesFile)
		if err != nil {
			return tables, err
		}
		tables.Rules = rules
	}
	if cfg.AreaKeysFile != "" {
		keys, err := polyrules.LoadAreaKeys(cfg.AreaKeysFile)
		if err != nil {
			return tables, err
		}
		tables.AreaKeys = keys
	}
	return tables, nil
}

func marshalFeatures(result *convert.Result, indent int) ([]byte, error) {
	fc := result.FeatureCollection()
	if indent > 0 {
		return json.MarshalIndent(fc, "", strings.Repeat(" ", indent))
	}
	return json.Marshal(fc)
}

func geojsonName(input string) string {
	for _, suffix := range []string{".osm", ".xml", ".json"} {
		if strings.HasSuffix(input, suffix) {
			return strings.TrimSuffix(input, suffix) + ".geojson"
		}
	}
	return input + ".geojson"
}

