package tiger

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LoadOptions configures a tract geometry load.
type LoadOptions struct {
	Year        int      // TIGER/Line vintage (default 2024)
	StateFIPS   []string // Two-digit state FIPS codes; at least one required
	TempDir     string   // Download directory (default /tmp/tiger)
	Concurrency int      // Parallel state downloads (default 3)
}

// LoadTracts downloads and parses tract shapefiles for the given states,
// returning all tract polygons keyed by GEOID.
func LoadTracts(ctx context.Context, opts LoadOptions) (map[string]*geom.MultiPolygon, error) {
	if opts.Year == 0 {
		opts.Year = 2024
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}
	if opts.TempDir == "" {
		opts.TempDir = "/tmp/tiger"
	}
	if len(opts.StateFIPS) == 0 {
		return nil, eris.New("tiger: at least one state FIPS code is required")
	}
	for _, fips := range opts.StateFIPS {
		if len(fips) != 2 || strings.Trim(fips, "0123456789") != "" {
			return nil, eris.Errorf("tiger: invalid state FIPS %q", fips)
		}
	}

	log := zap.L().With(
		zap.String("component", "tiger.loader"),
		zap.Int("year", opts.Year),
	)

	var mu sync.Mutex
	merged := make(map[string]*geom.MultiPolygon)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for _, fips := range opts.StateFIPS {
		g.Go(func() error {
			url := DownloadURL(opts.Year, fips)
			destDir := fmt.Sprintf("%s/%s", opts.TempDir, fips)

			shpPath, err := Download(gCtx, url, destDir)
			if err != nil {
				return eris.Wrapf(err, "tiger: download tracts for state %s", fips)
			}

			tracts, err := ParseTracts(shpPath)
			if err != nil {
				return eris.Wrapf(err, "tiger: parse tracts for state %s", fips)
			}

			log.Info("state tracts loaded",
				zap.String("state", fips),
				zap.Int("tracts", len(tracts)),
			)

			mu.Lock()
			for geoid, mp := range tracts {
				merged[geoid] = mp
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("tract geometry load complete",
		zap.Int("states", len(opts.StateFIPS)),
		zap.Int("tracts", len(merged)),
	)

	return merged, nil
}
