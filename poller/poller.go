package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/amansk/librelink-mcp-server/librelink"
	"github.com/amansk/librelink-mcp-server/mg"
	"go.uber.org/zap"
)

type Store interface {
	mg.ReadingStore
}

// Poller periodically archives upstream readings. Polling only; the upstream
// service has no push channel.
type Poller struct {
	Source librelink.Source
	Store  Store

	Logger *zap.Logger
}

func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := p.FetchAndArchive(ctx); err != nil {
			p.Logger.Debug("unable to archive readings", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// FetchAndArchive writes the latest history window newest-first, stopping at
// the first reading already present in the archive.
func (p *Poller) FetchAndArchive(ctx context.Context) error {
	trs, err := p.Source.FetchHistory(ctx, librelink.HistoryLimitHours)
	if err != nil {
		return fmt.Errorf("unable to fetch history: %w", err)
	}

	for i := len(trs) - 1; i >= 0; i-- {
		matched, err := p.Store.WriteReading(ctx, &trs[i])
		if err != nil {
			return fmt.Errorf("unable to write reading to store: %w", err)
		}
		if matched { // Everything older is already archived.
			break
		}
	}

	return nil
}
