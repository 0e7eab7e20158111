package mutation

import (
	"context"

	"github.com/goliatone/go-invoicing-client/cache"
)

type invalidationContextKey struct{}

// WithInvalidation attaches extra cache prefixes to invalidate after the next
// successful write made with ctx.
func WithInvalidation(ctx context.Context, prefixes ...cache.Key) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(prefixes) == 0 {
		return ctx
	}

	combined := dedupeKeys(append(invalidationFromContext(ctx), prefixes...))
	return context.WithValue(ctx, invalidationContextKey{}, combined)
}

func invalidationFromContext(ctx context.Context) []cache.Key {
	if ctx == nil {
		return nil
	}
	if keys, ok := ctx.Value(invalidationContextKey{}).([]cache.Key); ok {
		return append([]cache.Key(nil), keys...)
	}
	return nil
}

func dedupeKeys(keys []cache.Key) []cache.Key {
	seen := make(map[string]struct{}, len(keys))
	out := make([]cache.Key, 0, len(keys))
	for _, key := range keys {
		if len(key) == 0 {
			continue
		}
		id := key.String()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, key)
	}
	return out
}
