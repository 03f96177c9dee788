// Package retry runs a fallible operation a bounded number of times.
//
// Attempts are sequential: a later attempt starts only after the previous one
// returned. Between attempts Do sleeps for an exponentially growing, jittered
// backoff.
//
// # Usage
//
//	body, err := retry.Do(ctx, retry.DefaultPolicy(), func(ctx context.Context, attempt int) (*Body, error) {
//	    return fetchOnce(ctx, url)
//	})
//	if errors.Is(err, retry.ErrExhausted) {
//	    // every attempt failed; errors.As still reaches the last failure
//	}
//
// The operation is responsible for leaving no partial artifact behind when it
// fails. Do never undoes side effects.
package retry
