// Package datasource opens the byte streams a conversion run reads from and
// writes to. The CLI resolves "-" to the standard streams; everything else
// is a local file path.
package datasource

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Source is an input byte stream.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Sink is an output byte stream.
type Sink interface {
	Create(ctx context.Context) (io.WriteCloser, error)
}

// Local is a filesystem source/sink bound to one path.
type Local struct{ path string }

// NewLocal returns a Local bound to the provided filesystem path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Open opens the configured path for reading.
//
// Behavior:
//   - If the context is already canceled at the time of the call, Open
//     returns the context error immediately without touching the filesystem.
//   - Any filesystem error is wrapped with the path for context, while still
//     permitting errors.Is/As checks (e.g. errors.Is(err, os.ErrNotExist)).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// Create truncates or creates the configured path for writing.
func (l *Local) Create(ctx context.Context) (io.WriteCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Create(l.path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", l.path, err)
	}
	return f, nil
}

// Size returns the current size of the underlying file in bytes.
func (l *Local) Size() (int64, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", l.path, err)
	}
	return info.Size(), nil
}

// Std adapts the standard streams to Source and Sink.
type Std struct{}

// Open returns stdin behind a no-op closer.
func (Std) Open(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(os.Stdin), nil
}

// Create returns stdout behind a no-op closer.
func (Std) Create(ctx context.Context) (io.WriteCloser, error) {
	return nopWriteCloser{os.Stdout}, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
