package main

import (
	"context"
	"errors"
	"time"

	"github.com/goclaw/livecheck/pkg/livecheck"
	"github.com/goclaw/livecheck/pkg/logger"
)

const selfCheckCase = "livecheck.selfcheck"

// probe is the payload of one self-check round trip.
type probe struct {
	Seq    uint64    `json:"seq"`
	SentAt time.Time `json:"sent_at"`
}

// selfCheck sends a ping through the bus and waits for it to come back
// resolved, proving the dispatcher, store and wake path work end to end.
type selfCheck struct {
	Ping *livecheck.Signal[probe] `signal:"ping"`

	c   *livecheck.Case
	log logger.Logger
	seq uint64
}

func registerSelfCheck(app *livecheck.App) (*selfCheck, error) {
	sc := &selfCheck{}
	c, err := app.Register(selfCheckCase, sc)
	if err != nil {
		return nil, err
	}
	sc.c = c
	sc.log = c.Logger()
	return sc, nil
}

// Once runs a single round trip and returns its latency.
func (sc *selfCheck) Once(ctx context.Context, timeout time.Duration) (time.Duration, error) {
	exec := sc.c.Begin()
	defer sc.c.End()

	sc.seq++
	sent := probe{Seq: sc.seq, SentAt: time.Now().UTC()}
	if err := sc.Ping.Send(ctx, exec.ID, sent); err != nil {
		return 0, err
	}

	got, err := sc.Ping.Wait(ctx, livecheck.WithTimeout(timeout))
	if err != nil {
		return 0, err
	}
	return time.Since(got.SentAt), nil
}

// Run repeats Once every interval until ctx ends or the app stops.
func (sc *selfCheck) Run(ctx context.Context, app *livecheck.App, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-app.Stopped():
			return
		case <-ticker.C:
		}

		latency, err := sc.Once(ctx, interval)
		switch {
		case err == nil:
			sc.log.Debug("self-check ok", "seq", sc.seq, "latency", latency)
		case errors.Is(err, livecheck.ErrCancelled):
			return
		default:
			sc.log.Warn("self-check failed", "seq", sc.seq, "error", err)
		}
	}
}
