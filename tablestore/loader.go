// SPDX-License-Identifier: MIT

package tablestore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/katalvlaran/kcomplex/ctm"
)

// Loader loads and memoizes tables from a Source. It is safe for concurrent use.
type Loader struct {
	src    Source
	logger *zap.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	tables map[string]*ctm.Table
}

// NewLoader returns a Loader over src. logger may be nil.
func NewLoader(src Source, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Loader{src: src, logger: logger, tables: make(map[string]*ctm.Table)}
}

// Load returns the table for (alphabet, ndim), reading it on first use.
// A blob whose header disagrees with the requested configuration is rejected.
func (l *Loader) Load(ctx context.Context, alphabet, ndim int) (*ctm.Table, error) {
	t, err := l.LoadName(ctx, Name(alphabet, ndim))
	if err != nil {
		return nil, err
	}
	if t.Alphabet() != alphabet {
		return nil, fmt.Errorf("tablestore: %s has alphabet %d: %w", Name(alphabet, ndim), t.Alphabet(), ctm.ErrAlphabetMismatch)
	}
	if t.NDim() != ndim {
		return nil, fmt.Errorf("tablestore: %s has ndim %d: %w", Name(alphabet, ndim), t.NDim(), ctm.ErrRank)
	}

	return t, nil
}

// LoadName returns the table stored under name, reading it on first use.
func (l *Loader) LoadName(ctx context.Context, name string) (*ctm.Table, error) {
	l.mu.RLock()
	t, ok := l.tables[name]
	l.mu.RUnlock()
	if ok {
		return t, nil
	}

	// the shared read outlives any single caller; each caller only stops waiting
	shareCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(name, func() (any, error) {
		l.mu.RLock()
		t, ok := l.tables[name]
		l.mu.RUnlock()
		if ok {
			return t, nil
		}

		start := time.Now()
		rc, err := l.src.Open(shareCtx, name)
		if err != nil {
			return nil, err
		}
		defer func() { _ = rc.Close() }()
		t, err = ctm.Decode(rc)
		if err != nil {
			return nil, fmt.Errorf("tablestore: decode %s: %w", name, err)
		}

		l.mu.Lock()
		l.tables[name] = t
		l.mu.Unlock()
		l.logger.Info("table loaded",
			zap.String("name", name),
			zap.Int("shapes", len(t.Shapes())),
			zap.Bool("reduced", t.Reduced()),
			zap.Duration("took", time.Since(start)),
		)

		return t, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			l.logger.Warn("table load failed", zap.String("name", name), zap.Error(res.Err))

			return nil, res.Err
		}
		if res.Shared {
			l.logger.Debug("table load shared", zap.String("name", name))
		}

		return res.Val.(*ctm.Table), nil
	}
}

// Forget drops a memoized table so the next Load reads it again.
func (l *Loader) Forget(name string) {
	l.mu.Lock()
	delete(l.tables, name)
	l.mu.Unlock()
	l.group.Forget(name)
}
