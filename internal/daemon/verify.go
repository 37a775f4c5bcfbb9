package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/muurk/backlight/internal/color"
)

// VerificationOptions configures how a write is read back
type VerificationOptions struct {
	// MaxRetries is the number of read-backs after the first
	// Default: 3
	MaxRetries int

	// InitialDelay gives the board time to apply the color
	// Default: 100ms
	InitialDelay time.Duration

	// RetryDelay is the delay between read-backs
	// Default: 250ms
	RetryDelay time.Duration

	// UseExponentialBackoff doubles RetryDelay after each attempt, up to MaxRetryDelay
	UseExponentialBackoff bool

	// MaxRetryDelay caps the backoff
	// Default: 2s
	MaxRetryDelay time.Duration
}

// DefaultVerificationOptions returns sensible defaults for verification
func DefaultVerificationOptions() *VerificationOptions {
	return &VerificationOptions{
		MaxRetries:            3,
		InitialDelay:          100 * time.Millisecond,
		RetryDelay:            250 * time.Millisecond,
		UseExponentialBackoff: true,
		MaxRetryDelay:         2 * time.Second,
	}
}

// VerificationResult contains the results of a verified write
type VerificationResult struct {
	Success  bool
	Attempts int

	// Actual is the color last read back
	Actual *color.RGB

	Error error
}

// Verify reads the board back until it reports want or the retries run out.
// A daemon can lag behind a write when another process drives the board.
func (f *Facade) Verify(ctx context.Context, want color.RGB, opts *VerificationOptions) *VerificationResult {
	if opts == nil {
		opts = DefaultVerificationOptions()
	}

	result := &VerificationResult{}
	if err := sleep(ctx, opts.InitialDelay); err != nil {
		result.Error = err
		return result
	}

	delay := opts.RetryDelay
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		result.Attempts++

		if attempt > 0 {
			if err := sleep(ctx, delay); err != nil {
				result.Error = err
				return result
			}
			if opts.UseExponentialBackoff {
				delay = min(delay*2, opts.MaxRetryDelay)
			}
		}

		got, err := f.Read(ctx)
		if err != nil {
			// Keep trying: the read may fail transiently.
			result.Error = fmt.Errorf("attempt %d: %w", attempt+1, err)
			continue
		}
		result.Actual = &got

		if got == want {
			result.Success = true
			result.Error = nil
			return result
		}
		result.Error = fmt.Errorf("attempt %d: board %d reports %s, expected %s", attempt+1, f.Board, got.Hex(), want.Hex())
	}

	result.Error = fmt.Errorf("verification failed after %d attempts: %w", result.Attempts, result.Error)
	return result
}

// WriteAndVerify writes c and verifies it was applied.
func (f *Facade) WriteAndVerify(ctx context.Context, c color.RGB, opts *VerificationOptions) *VerificationResult {
	if err := f.Write(ctx, c); err != nil {
		return &VerificationResult{Error: err}
	}
	return f.Verify(ctx, c, opts)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
