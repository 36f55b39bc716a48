package fetcher

import (
	"context"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
)

// FTPOptions configures an FTPFetcher.
type FTPOptions struct {
	// Timeout applies to dialing and to each transfer. Default 30s.
	Timeout time.Duration
}

// FTPFetcher downloads photo assets from anonymous FTP mirrors. Each
// download dials a fresh connection; mirror sessions are too short-lived
// to be worth pooling.
type FTPFetcher struct {
	opts FTPOptions
}

func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &FTPFetcher{opts: opts}
}

// splitFTPURL breaks an ftp:// URL into a dialable address and the remote
// path. Port 21 is assumed when the URL carries none.
func splitFTPURL(rawURL string) (addr, remotePath string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrapf(err, "fetcher: parse url %s", rawURL)
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("fetcher: not an ftp url: %s", rawURL)
	}
	if u.Path == "" || u.Path == "/" {
		return "", "", eris.Errorf("fetcher: ftp url has no path: %s", rawURL)
	}
	port := u.Port()
	if port == "" {
		port = "21"
	}
	return net.JoinHostPort(u.Hostname(), port), u.Path, nil
}

// DownloadToFile fetches rawURL into path, creating parent directories, and
// returns the byte count written.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, rawURL, path string) (int64, error) {
	addr, remotePath, err := splitFTPURL(rawURL)
	if err != nil {
		return 0, err
	}

	conn, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(f.opts.Timeout))
	if err != nil {
		return 0, eris.Wrapf(err, "fetcher: dial %s", addr)
	}
	defer conn.Quit()

	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		return 0, eris.Wrapf(err, "fetcher: login %s", addr)
	}

	resp, err := conn.Retr(remotePath)
	if err != nil {
		return 0, eris.Wrapf(err, "fetcher: retrieve %s", rawURL)
	}
	defer resp.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, eris.Wrapf(err, "fetcher: mkdir for %s", path)
	}
	out, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "fetcher: create %s", path)
	}
	defer out.Close()

	n, err := out.ReadFrom(resp)
	if err != nil {
		return n, eris.Wrapf(err, "fetcher: transfer %s", rawURL)
	}
	return n, nil
}
