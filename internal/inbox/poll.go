package inbox

import (
	"context"
	"time"
)

// defaultPollInterval is used when WaitForLink is given a non-positive
// interval.
const defaultPollInterval = 10 * time.Second

// WaitForLink runs Find immediately and then every interval until a link
// is found or ctx is done. It returns the last Result together with
// ctx.Err() when the context ends first. A rejected login stops the loop
// at once with the recorded error.
func WaitForLink(ctx context.Context, f *Finder, creds Credentials, filter Filter, interval time.Duration) (Result, error) {
	if interval <= 0 {
		interval = defaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	attempt := 1
	for {
		res := f.Find(ctx, creds, filter)
		if res.Found() {
			return res, nil
		}
		if res.Outcome == OutcomeConnectionFailed && IsAuthFailure(res.Err()) {
			return res, res.Err()
		}
		f.logger.Debug("link not yet available", "attempt", attempt, "outcome", res.Outcome.String())

		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-ticker.C:
			attempt++
		}
	}
}
