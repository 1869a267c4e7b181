package lockfile

import (
	"context"
	"os"
	"time"
)

// Take acquires an exclusive lock file, polling until the holder
// releases it or the context ends. waiting, when set, is called each
// time the lock is found held.
func Take(ctx context.Context, path string, waiting func()) (func(), error) {
	tk := time.NewTicker(time.Second)
	defer tk.Stop()

	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			f.Close()
			break
		}

		if waiting != nil {
			waiting()
		}

		select {
		case <-tk.C:
			// try again
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	closer := func() {
		os.Remove(path)
	}

	return closer, nil
}
