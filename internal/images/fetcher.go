package images

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// PreviewFunc is called with each image URL before it is fetched.
type PreviewFunc func(imageURL string)

// Fetcher downloads and encodes the images of a listing.
type Fetcher struct {
	downloader *Downloader
	workers    int
}

// NewFetcher creates a Fetcher. With workers <= 1 images are handled one at
// a time in URL order.
func NewFetcher(downloader *Downloader, workers int) *Fetcher {
	if downloader == nil {
		downloader = NewDownloader()
	}
	return &Fetcher{downloader: downloader, workers: workers}
}

// Fetch renders a preview for each URL and returns the images that could be
// downloaded and encoded, in URL order. Failed images are logged and
// omitted. Previews are independent of fetch success.
func (f *Fetcher) Fetch(ctx context.Context, urls []string, preview PreviewFunc) []EncodedImage {
	if preview == nil {
		preview = func(string) {}
	}
	if f.workers > 1 {
		return f.fetchConcurrently(ctx, urls, preview)
	}

	var out []EncodedImage
	for _, u := range urls {
		preview(u)
		if img, ok := f.fetchOne(ctx, u); ok {
			out = append(out, img)
		}
	}
	return out
}

func (f *Fetcher) fetchConcurrently(ctx context.Context, urls []string, preview PreviewFunc) []EncodedImage {
	for _, u := range urls {
		preview(u)
	}

	results := make([]*EncodedImage, len(urls))
	var g errgroup.Group
	g.SetLimit(f.workers)
	for i, u := range urls {
		g.Go(func() error {
			if img, ok := f.fetchOne(ctx, u); ok {
				results[i] = &img
			}
			return nil
		})
	}
	_ = g.Wait()

	var out []EncodedImage
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func (f *Fetcher) fetchOne(ctx context.Context, imageURL string) (EncodedImage, bool) {
	data, err := f.downloader.Download(ctx, imageURL)
	if err != nil {
		log.Warn().Err(err).Str("url", imageURL).Msg("image load failed")
		return EncodedImage{}, false
	}

	encoded, err := Encode(data)
	if err != nil {
		log.Warn().Err(err).Str("url", imageURL).Msg("image encode failed")
		return EncodedImage{}, false
	}

	log.Debug().Str("url", imageURL).Int("bytes", len(encoded)).Msg("image encoded")
	return EncodedImage{SourceURL: imageURL, Data: encoded}, true
}
