// Package poller implements the Poller process: a single long-polling
// loop against Telegram's getUpdates, republishing every update to the
// broker with zero delay. It holds no persistent state beyond an
// in-memory offset cursor — a restart simply re-polls from the last
// committed offset, and Telegram re-serves anything not yet acked by
// that offset, so updates are never silently dropped.
package poller

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"citywords/internal/broker"
	"citywords/internal/events"
	"citywords/internal/telegram"
	"citywords/lib/sl"
)

const longPollTimeoutSec = 20

// publishesPerSecond caps how fast updates are republished.
const publishesPerSecond = 20

type Poller struct {
	tg  *telegram.Client
	pub *broker.Broker
	log *slog.Logger
}

func New(tg *telegram.Client, pub *broker.Broker, log *slog.Logger) *Poller {
	return &Poller{tg: tg, pub: pub, log: log.With(sl.Module("poller"))}
}

// Run blocks, long-polling and republishing until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	var offset int64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := p.tg.GetUpdates(ctx, offset, longPollTimeoutSec)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.Error("get updates failed, retrying", sl.Err(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, upd := range updates {
			raw, err := json.Marshal(upd)
			if err != nil {
				p.log.Error("marshal update failed, dropping", sl.Err(err))
				offset = upd.UpdateId + 1
				continue
			}

			body, err := events.Encode(events.TypeUpdate, events.Update{UpdateId: upd.UpdateId, Raw: raw})
			if err != nil {
				p.log.Error("encode envelope failed, dropping", sl.Err(err))
				offset = upd.UpdateId + 1
				continue
			}

			// Publish before advancing offset: on a failed publish the
			// loop retries this same getUpdates call next iteration
			// (offset unchanged), so Telegram re-serves the update — it
			// is never lost, only possibly re-published (at-least-once).
			if err := p.pub.Publish(ctx, broker.RoutePoller, body, 0); err != nil {
				p.log.Error("publish failed, will retry from same offset", sl.Err(err))
				break
			}
			offset = upd.UpdateId + 1

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second / publishesPerSecond):
			}
		}
	}
}
