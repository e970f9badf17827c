package annotation

import "context"

type feedKey struct{}

// WithFeed marks ctx as a feed/syndication rendering, where entity links are not emitted.
func WithFeed(ctx context.Context) context.Context {
	return context.WithValue(ctx, feedKey{}, true)
}

// IsFeed reports whether ctx was marked by WithFeed.
func IsFeed(ctx context.Context) bool {
	feed, _ := ctx.Value(feedKey{}).(bool)
	return feed
}
