package feed

import (
	"context"

	obsApp "github.com/lmoretti/gamearb/business/observation/app"
	"github.com/lmoretti/gamearb/internal/apperror"
	"github.com/lmoretti/gamearb/internal/logger"
	"github.com/lmoretti/gamearb/internal/wsconn"
)

// WebSocket consumes observations pushed over a WebSocket, for scrapers that
// stream directly instead of going through Redis. Reconnection is handled by
// the underlying client; this adapter only decodes and ingests.
type WebSocket struct {
	client   *wsconn.Client
	ingestor *obsApp.Ingestor
	log      logger.LoggerInterface
}

// NewWebSocket creates a feed over the given URL.
func NewWebSocket(url string, ingestor *obsApp.Ingestor, log logger.LoggerInterface) *WebSocket {
	client := wsconn.New(wsconn.DefaultConfig(url))
	l := log.With("feed", "websocket", "url", url)
	client.OnStateChange(func(s wsconn.State) {
		l.Info(context.Background(), "feed connection state", "state", s)
	})
	return &WebSocket{client: client, ingestor: ingestor, log: l}
}

// Run connects and consumes until ctx is cancelled or the connection is
// permanently lost.
func (f *WebSocket) Run(ctx context.Context) error {
	if err := f.client.Connect(ctx); err != nil {
		return apperror.Wrap(err, apperror.CodeFeedConnectionFailed, "dialing feed")
	}
	defer f.client.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-f.client.Messages():
			if !ok {
				return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext("feed stream ended"))
			}
			obs, err := decodeObservation(data)
			if err != nil {
				f.log.Warn(ctx, "dropped undecodable observation", logger.Err(err))
				continue
			}
			f.ingestor.Ingest(ctx, obs)
		}
	}
}
