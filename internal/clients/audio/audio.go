package audio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrFetch = errors.New("failed to fetch audio")

// Fetcher downloads stored audio by its public URL.
type Fetcher struct {
	client *resty.Client
}

func New(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: resty.New().SetTimeout(timeout),
	}
}

// Fetch returns the object bytes and the reported content type.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	const op = "clients.audio.Fetch"

	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	if resp.IsError() {
		return nil, "", fmt.Errorf("%s: status %d: %w", op, resp.StatusCode(), ErrFetch)
	}

	if len(resp.Body()) == 0 {
		return nil, "", fmt.Errorf("%s: empty body: %w", op, ErrFetch)
	}

	return resp.Body(), resp.Header().Get("Content-Type"), nil
}
