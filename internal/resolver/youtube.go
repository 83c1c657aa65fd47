// Package resolver turns search queries into tracks and tracks into
// streamable audio sources, backed by YouTube.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	youtube "github.com/kkdai/youtube/v2"
	"github.com/ppalone/ytsearch"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"groovebot/internal/player"
	"groovebot/internal/store"
	"groovebot/pkg/text"
)

var (
	// ErrNoResults means the search matched nothing.
	ErrNoResults = errors.New("no results found")
	// ErrTrackTooLong means the track exceeds the configured duration cap.
	ErrTrackTooLong = errors.New("track exceeds maximum duration")
	// ErrUnplayable means the source recently failed resolution and is
	// skipped without retrying upstream.
	ErrUnplayable = errors.New("source is marked unplayable")
	// ErrNoAudioFormats means the video has no usable audio stream.
	ErrNoAudioFormats = errors.New("no audio formats available")
)

// YouTube resolves tracks against YouTube. Search results are cached and
// sources that failed resolution are remembered so repeated requests fail
// fast instead of hammering upstream. All outbound calls share one rate
// limiter.
type YouTube struct {
	cfg         player.ResolverConfig
	maxDuration time.Duration
	search      *ytsearch.Client
	client      *youtube.Client
	limiter     *rate.Limiter
	cache       *store.SearchCache
	unplayable  *store.UnplayableStore
	logger      *zap.Logger
}

// NewYouTube creates a resolver. maxDuration of 0 disables the duration cap.
func NewYouTube(cfg player.ResolverConfig, maxDuration time.Duration, logger *zap.Logger) *YouTube {
	return &YouTube{
		cfg:         cfg,
		maxDuration: maxDuration,
		search:      ytsearch.NewClient(nil),
		client: &youtube.Client{
			HTTPClient: &http.Client{Timeout: cfg.Timeout},
		},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		cache:      store.NewSearchCache(cfg.CacheSize, time.Hour),
		unplayable: store.NewUnplayableStore(cfg.BloomCapacity, cfg.BloomFalsePosRate),
		logger:     logger,
	}
}

// Search returns up to limit tracks matching the query, best match first.
func (y *YouTube) Search(ctx context.Context, query string, limit int) ([]player.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrNoResults
	}

	if tracks, ok := y.cache.Get(query); ok {
		return capTracks(tracks, limit), nil
	}

	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	res, err := y.search.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var tracks []player.Track
	for _, r := range res.Results {
		if r.VideoID == "" {
			continue
		}
		tracks = append(tracks, player.Track{
			Title:     r.Title,
			URL:       text.WatchURL(r.VideoID),
			Duration:  parseColonDuration(r.Duration),
			Thumbnail: text.ThumbnailURL(r.VideoID),
			Artist:    r.Channel,
		})
	}
	if len(tracks) == 0 {
		return nil, ErrNoResults
	}

	y.cache.Put(query, tracks)
	y.logger.Debug("Search completed",
		zap.String("query", query),
		zap.Int("results", len(tracks)))

	return capTracks(tracks, limit), nil
}

// Resolve produces a one-shot streamable audio source for the track. It
// retries transient failures a bounded number of times; a track that exhausts
// its retries is marked unplayable.
func (y *YouTube) Resolve(ctx context.Context, track player.Track) (*player.AudioSource, error) {
	if y.unplayable.Has(track.URL) {
		return nil, fmt.Errorf("%w: %s", ErrUnplayable, track.URL)
	}

	videoID, err := text.ExtractVideoID(track.URL)
	if err != nil {
		return nil, fmt.Errorf("unsupported source URL %q: %w", track.URL, err)
	}

	var lastErr error
	for attempt := 1; attempt <= y.cfg.Retries; attempt++ {
		src, err := y.resolveOnce(ctx, videoID)
		if err == nil {
			// A source that works again stops being unplayable.
			y.unplayable.Unmark(track.URL)
			return src, nil
		}
		lastErr = err

		if errors.Is(err, ErrTrackTooLong) || errors.Is(err, context.Canceled) {
			break
		}

		y.logger.Warn("Resolution attempt failed",
			zap.String("videoID", videoID),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", y.cfg.Retries),
			zap.Error(err))

		if attempt < y.cfg.Retries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(y.cfg.RetryDelay):
			}
		}
	}

	if !errors.Is(lastErr, context.Canceled) {
		y.unplayable.Mark(track.URL)
	}
	return nil, fmt.Errorf("resolve %s: %w", videoID, lastErr)
}

func (y *YouTube) resolveOnce(ctx context.Context, videoID string) (*player.AudioSource, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, y.cfg.Timeout)
	defer cancel()

	video, err := y.client.GetVideoContext(attemptCtx, videoID)
	if err != nil {
		return nil, fmt.Errorf("fetch video metadata: %w", err)
	}

	if y.maxDuration > 0 && video.Duration > y.maxDuration {
		return nil, fmt.Errorf("%w: %s > %s",
			ErrTrackTooLong, video.Duration, y.maxDuration)
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return nil, ErrNoAudioFormats
	}

	streamURL, err := y.client.GetStreamURLContext(attemptCtx, video, &formats[0])
	if err != nil {
		return nil, fmt.Errorf("fetch stream URL: %w", err)
	}

	return &player.AudioSource{
		StreamURL: streamURL,
		MimeType:  formats[0].MimeType,
		Bitrate:   formats[0].Bitrate,
	}, nil
}

func capTracks(tracks []player.Track, limit int) []player.Track {
	if limit > 0 && len(tracks) > limit {
		tracks = tracks[:limit]
	}
	out := make([]player.Track, len(tracks))
	copy(out, tracks)
	return out
}

// parseColonDuration parses duration strings like "3:20" or "1:05:20". Live
// streams have no duration and parse to 0.
func parseColonDuration(s string) time.Duration {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}

	var h, m, sec int
	var err error
	if len(parts) == 3 {
		if h, err = strconv.Atoi(parts[0]); err != nil {
			return 0
		}
		parts = parts[1:]
	}
	if m, err = strconv.Atoi(parts[0]); err != nil {
		return 0
	}
	if sec, err = strconv.Atoi(parts[1]); err != nil {
		return 0
	}

	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second
}
