package service

import (
	"context"
	"sync"
	"time"

	"github.com/pengajuan-konten-api/internal/models"
	"github.com/pengajuan-konten-api/internal/notify"
	"github.com/rs/zerolog"
)

const notifyTimeout = 30 * time.Second

// asyncNotifier sends notifications after the response has been produced. Failures
// are logged only.
type asyncNotifier struct {
	next notify.Notifier
	log  zerolog.Logger
	wg   sync.WaitGroup
}

func newAsyncNotifier(next notify.Notifier, log zerolog.Logger) *asyncNotifier {
	return &asyncNotifier{next: next, log: log.With().Str("service", "notify").Logger()}
}

func (n *asyncNotifier) submissionReceived(sub *models.Submission) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := n.next.SubmissionReceived(ctx, sub); err != nil {
			n.log.Error().Err(err).Str("no_comtab", sub.NoComtab).Msg("Failed to send submission notification")
		}
	}()
}

// Wait blocks until pending notifications finish or ctx is done
func (n *asyncNotifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
