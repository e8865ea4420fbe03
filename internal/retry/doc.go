// Package retry implements the credential rotation and backoff policy shared by
// every generation provider.
//
// A credential field holds several equivalent API keys separated by commas,
// semicolons, or newlines. WithRotation walks them in order, advancing past a
// key only when its failure is retryable; Backoff retries a single key with
// exponential delays. Provider adapters compose the two:
//
//	retry.WithRotation(ctx, keys, func(ctx context.Context, key string) (T, error) {
//		return retry.Backoff(ctx, policy, func(ctx context.Context) (T, error) { ... })
//	})
//
// Credentials are never logged; log lines reference them as "credential i/N".
package retry
