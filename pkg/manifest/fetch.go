package manifest

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	getter "github.com/hashicorp/go-getter"
	"github.com/pkg/errors"
)

// Fetcher retrieves the bytes of a remote manifest reference. The
// loader treats it as opaque I/O under the caller's deadline.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// GetterFetcher pulls remote manifests with go-getter, which covers
// http, git, and s3 style references with one client. A zero Timeout
// means 30 seconds.
type GetterFetcher struct {
	Timeout time.Duration
}

func (g *GetterFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	timeout := g.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dir, err := ioutil.TempDir("", "sitevet-fetch")
	if err != nil {
		return nil, err
	}

	defer os.RemoveAll(dir)

	dst := filepath.Join(dir, "manifest")

	cl := &getter.Client{
		Ctx:  ctx,
		Src:  url,
		Dst:  dst,
		Pwd:  dir,
		Mode: getter.ClientModeFile,
	}

	err = cl.Get()
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s", url)
	}

	data, err := ioutil.ReadFile(dst)
	if err != nil {
		return nil, err
	}

	return data, nil
}
