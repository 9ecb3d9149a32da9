// Package gtfsgraph converts a static GTFS feed into an undirected
// graph of stations, written as GEXF.
package gtfsgraph

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tidbyt.dev/gtfsgraph/config"
	"tidbyt.dev/gtfsgraph/downloader"
	"tidbyt.dev/gtfsgraph/gexf"
	"tidbyt.dev/gtfsgraph/graph"
	"tidbyt.dev/gtfsgraph/logging"
	"tidbyt.dev/gtfsgraph/model"
	"tidbyt.dev/gtfsgraph/parse"
	"tidbyt.dev/gtfsgraph/station"
	"tidbyt.dev/gtfsgraph/storage"
)

// Counters from a conversion run, for operator visibility.
type Counts struct {
	Routes   int
	Trips    int
	Stops    int
	RawEdges int
	Nodes    int
	Edges    int
	Skipped  graph.Stats
}

type Result struct {
	Graph  *model.Graph
	Counts Counts

	// Set if the graph was exported to storage.
	ExportID string
}

// Translates the station settings of cfg into a Policy.
func StationPolicy(cfg config.Config) station.Policy {
	key := station.KeyStopID
	if cfg.Identity == config.IdentityByName {
		key = station.KeyStopName
	}

	return station.Policy{
		Key:         key,
		Separator:   cfg.Normalize.Separator,
		StripSuffix: cfg.StripSuffix(),
		Merge:       cfg.StationMap,
		Discard:     cfg.DiscardSet(),
	}
}

// Builds the station graph of the feed at cfg.DataRoot, without
// writing anything.
func BuildGraph(ctx context.Context, cfg config.Config, d downloader.Downloader) (*model.Graph, Counts, error) {
	logger := logging.FromContext(ctx)
	counts := Counts{}
	start := time.Now()

	feed, err := parse.OpenFeed(ctx, cfg.DataRoot, parse.SourceOptions{
		Downloader: d,
		Headers:    cfg.Download.Headers,
		Get: downloader.GetOptions{
			MaxSize:  cfg.Download.MaxSize,
			Timeout:  cfg.Download.Timeout,
			Cache:    cfg.Download.CacheTTL > 0,
			CacheTTL: cfg.Download.CacheTTL,
		},
	})
	if err != nil {
		return nil, counts, fmt.Errorf("opening feed: %w", err)
	}
	defer feed.Close()

	routes, err := parse.ParseRoutes(feed.File("routes.txt"), cfg.RouteTypeSet(), logger)
	if err != nil {
		return nil, counts, fmt.Errorf("parsing routes.txt: %w", err)
	}
	counts.Routes = len(routes)
	logging.LogOperation(logger, "routes selected", slog.Int("routes", counts.Routes))

	trips, err := parse.ParseTrips(feed.File("trips.txt"), routes)
	if err != nil {
		return nil, counts, fmt.Errorf("parsing trips.txt: %w", err)
	}
	counts.Trips = len(trips)
	logging.LogOperation(logger, "trips selected", slog.Int("trips", counts.Trips))

	rawEdges, seen, err := parse.ParseStopTimes(feed.File("stop_times.txt"), trips)
	if err != nil {
		return nil, counts, fmt.Errorf("parsing stop_times.txt: %w", err)
	}
	counts.Stops = len(seen)
	counts.RawEdges = len(rawEdges)
	logging.LogOperation(
		logger,
		"stop times grouped",
		slog.Int("stops", counts.Stops),
		slog.Int("edges", counts.RawEdges),
	)

	stops, err := parse.ParseStops(feed.File("stops.txt"), seen)
	if err != nil {
		return nil, counts, fmt.Errorf("parsing stops.txt: %w", err)
	}

	stations := station.NewResolver(StationPolicy(cfg)).Resolve(stops)

	g, stats := graph.Build(rawEdges, stations)
	counts.Nodes = len(g.Nodes)
	counts.Edges = len(g.Edges)
	counts.Skipped = stats
	logging.LogOperation(
		logger,
		"graph assembled",
		slog.Int("nodes", counts.Nodes),
		slog.Int("edges", counts.Edges),
		slog.Int("unresolved", stats.Unresolved),
		slog.Int("discarded", stats.Discarded),
		slog.Int("loops", stats.Loops),
		slog.Int("duplicates", stats.Duplicates),
		slog.Duration("duration", time.Since(start)),
	)

	return g, counts, nil
}

func newDownloader(cfg config.Config, logger *slog.Logger) (downloader.Downloader, error) {
	if cfg.Download.CachePath == "" {
		return downloader.NewMemoryDownloader(), nil
	}
	fs, err := downloader.NewFilesystem(cfg.Download.CachePath, logger)
	if err != nil {
		return nil, fmt.Errorf("creating feed cache: %w", err)
	}
	return fs, nil
}

func formatRouteTypes(types []model.RouteType) string {
	s := make([]string, 0, len(types))
	for _, t := range types {
		s = append(s, strconv.Itoa(int(t)))
	}
	return strings.Join(s, ",")
}

// Opens the storage backends enabled in cfg. The returned function
// closes them.
func openStorage(cfg config.Config, logger *slog.Logger) ([]storage.Storage, func(), error) {
	backends := []storage.Storage{}
	closers := []func() error{}
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logging.LogError(logger, "closing storage", err)
			}
		}
	}

	if cfg.Export.SQLiteDir != "" {
		s, err := storage.NewSQLiteStorage(storage.SQLiteConfig{
			OnDisk:    true,
			Directory: cfg.Export.SQLiteDir,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite: %w", err)
		}
		backends = append(backends, s)
		closers = append(closers, s.Close)
	}

	if cfg.Export.Postgres != "" {
		s, err := storage.NewPSQLStorage(cfg.Export.Postgres, false)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("opening postgres: %w", err)
		}
		backends = append(backends, s)
		closers = append(closers, s.Close)
	}

	return backends, closeAll, nil
}

// Writes g to cfg.Output and exports it to every backend. Either the
// output file and all exports are in place, or none of them are.
//
// The GEXF document goes to a temporary file next to cfg.Output and
// is only renamed into place once every export succeeded.
func publish(cfg config.Config, g *model.Graph, backends []storage.Storage, logger *slog.Logger) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(cfg.Output), "."+filepath.Base(cfg.Output)+".*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	err = tmp.Chmod(0644)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("preparing temp file: %w", err)
	}

	if err := gexf.WriteFile(tmpPath, g, logger); err != nil {
		return "", fmt.Errorf("writing gexf: %w", err)
	}

	exportID := ""
	if len(backends) > 0 {
		exportID = storage.NewExportID()
	}

	exported := []storage.Storage{}
	rollback := func() {
		for _, s := range exported {
			if err := s.DeleteExport(exportID); err != nil {
				logging.LogError(logger, "removing export", err, slog.String("export_id", exportID))
			}
		}
	}

	for _, s := range backends {
		metadata := &storage.ExportMetadata{
			ID:         exportID,
			Source:     cfg.DataRoot,
			Output:     cfg.Output,
			RouteTypes: formatRouteTypes(cfg.RouteTypes),
			CreatedAt:  time.Now().UTC(),
		}
		if err := storage.Export(s, metadata, g); err != nil {
			rollback()
			return "", fmt.Errorf("exporting graph: %w", err)
		}
		exported = append(exported, s)
		logging.LogOperation(logger, "graph exported", slog.String("export_id", exportID))
	}

	if err := os.Rename(tmpPath, cfg.Output); err != nil {
		rollback()
		return "", fmt.Errorf("writing gexf: %w", err)
	}
	logging.LogOperation(logger, "gexf written", slog.String("output", cfg.Output))

	return exportID, nil
}

// Runs the whole conversion: reads the feed, builds the graph,
// writes it to cfg.Output and exports it to any configured storage.
//
// The run either succeeds completely or leaves no output behind.
func Convert(ctx context.Context, cfg config.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx)

	d, err := newDownloader(cfg, logger)
	if err != nil {
		return nil, err
	}

	g, counts, err := BuildGraph(ctx, cfg, d)
	if err != nil {
		return nil, err
	}

	backends, closeStorage, err := openStorage(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer closeStorage()

	exportID, err := publish(cfg, g, backends, logger)
	if err != nil {
		return nil, err
	}

	return &Result{Graph: g, Counts: counts, ExportID: exportID}, nil
}
