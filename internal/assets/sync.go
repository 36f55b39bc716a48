package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mosdata/listings-cli/internal/config"
	"github.com/mosdata/listings-cli/internal/model"
	"github.com/mosdata/listings-cli/internal/resilience"
)

// Downloader fetches one remote file to a local path, returning the byte
// count written. Both fetcher transports satisfy it.
type Downloader interface {
	DownloadToFile(ctx context.Context, rawURL, path string) (int64, error)
}

// Syncer mirrors photo files referenced by clean rows to a local directory.
// Download failures are isolated per item: a failed photo is logged and
// counted, never fatal for the run. Retries live here rather than in the
// transports, so attempts are bounded per photo regardless of scheme.
type Syncer struct {
	cfg   config.AssetsConfig
	http  Downloader
	ftp   Downloader
	retry resilience.RetryConfig

	mu    sync.Mutex
	state *State
}

// Report summarizes one sync run.
type Report struct {
	Requested  int
	Downloaded int
	Skipped    int
	Failed     int
}

// NewSyncer creates a Syncer. The FTP downloader is optional and only used
// for ftp:// photo URLs (the mirror source).
func NewSyncer(cfg config.AssetsConfig, httpDL, ftpDL Downloader, state *State) *Syncer {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	retry := resilience.DefaultRetryConfig()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}
	if state == nil {
		state = NewState()
	}
	return &Syncer{
		cfg:   cfg,
		http:  httpDL,
		ftp:   ftpDL,
		retry: retry,
		state: state,
	}
}

// State returns the state tracked by the syncer, for persisting after a run.
func (s *Syncer) State() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Sync mirrors all photo URLs referenced by the given rows. Already-mirrored
// files (per the state) are skipped. Downloads run concurrently up to
// MaxConcurrent.
func (s *Syncer) Sync(ctx context.Context, rows []model.PropertyRow) (Report, error) {
	type item struct {
		propertyID string
		url        string
	}

	var items []item
	seen := make(map[string]bool)
	for _, row := range rows {
		for _, u := range row.PhotoURLs {
			if u == "" || seen[u] {
				continue
			}
			seen[u] = true
			items = append(items, item{propertyID: row.PropertyID, url: u})
		}
	}

	report := Report{Requested: len(items)}
	if len(items) == 0 {
		return report, nil
	}

	log := zap.L().With(zap.String("component", "assets"))
	log.Info("starting photo sync",
		zap.Int("photos", len(items)),
		zap.Int("max_concurrent", s.cfg.MaxConcurrent),
	)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrent)

	for _, it := range items {
		g.Go(func() error {
			s.mu.Lock()
			done := s.state.Has(it.url)
			s.mu.Unlock()
			if done {
				mu.Lock()
				report.Skipped++
				mu.Unlock()
				return nil
			}

			entry, err := s.download(gctx, it.propertyID, it.url)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Per-item isolation: log and count, do not fail the run.
				report.Failed++
				log.Warn("photo download failed",
					zap.String("property_id", it.propertyID),
					zap.String("url", it.url),
					zap.Error(err),
				)
				return nil
			}
			report.Downloaded++
			s.mu.Lock()
			s.state.Record(entry)
			s.mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, eris.Wrap(err, "assets: sync")
	}

	log.Info("photo sync finished",
		zap.Int("downloaded", report.Downloaded),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *Syncer) download(ctx context.Context, propertyID, rawURL string) (Entry, error) {
	localPath := s.localPath(propertyID, rawURL)
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return Entry{}, eris.Wrap(err, "assets: create dir")
	}

	var n int64
	err := resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		var err error
		if strings.HasPrefix(rawURL, "ftp://") {
			if s.ftp == nil {
				return eris.Errorf("assets: no ftp downloader configured for %s", rawURL)
			}
			n, err = s.ftp.DownloadToFile(ctx, rawURL, localPath)
		} else {
			n, err = s.http.DownloadToFile(ctx, rawURL, localPath)
		}
		return err
	})
	if err != nil {
		// Remove a possibly partial file so the next run retries cleanly.
		_ = os.Remove(localPath)
		return Entry{}, err
	}

	return Entry{
		URL:          rawURL,
		LocalPath:    localPath,
		Bytes:        n,
		DownloadedAt: time.Now().UTC(),
	}, nil
}

// localPath maps a photo URL to <local_dir>/<property_id>/<name>. The name is
// the URL's base name when usable, otherwise a digest of the full URL.
func (s *Syncer) localPath(propertyID, rawURL string) string {
	name := ""
	if u, err := url.Parse(rawURL); err == nil {
		name = path.Base(u.Path)
	}
	if name == "" || name == "." || name == "/" {
		sum := sha256.Sum256([]byte(rawURL))
		name = hex.EncodeToString(sum[:8]) + ".jpg"
	}
	return filepath.Join(s.cfg.LocalDir, propertyID, name)
}
