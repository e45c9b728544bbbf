package macs

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/cenkalti/backoff"
)

// fileRetries bounds how often a transient open/create failure is retried,
// e.g. a busy network share on the ground station.
const fileRetries = 3

func retryFile(op string, path string, fn func() (*os.File, error)) (*os.File, error) {
	var f *os.File
	attempt := func() error {
		var err error
		f, err = fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrExist) {
			return backoff.Permanent(err)
		}
		slog.Warn("retrying file access", "op", op, "path", path, "error", err)
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second
	if err := backoff.Retry(attempt, backoff.WithMaxRetries(b, fileRetries)); err != nil {
		return nil, err
	}
	return f, nil
}

func openFile(path string) (*os.File, error) {
	return retryFile("open", path, func() (*os.File, error) { return os.Open(path) })
}

func createFile(path string) (*os.File, error) {
	return retryFile("create", path, func() (*os.File, error) { return os.Create(path) })
}
