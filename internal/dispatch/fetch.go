package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"station/internal/webfetch"
)

func (d *Dispatcher) fetchURL(ctx context.Context, args []string) (string, error) {
	url := strings.TrimSpace(arg(args, 0))
	if url == "" {
		return "", errors.New("URL cannot be empty")
	}
	if d.world.Fetcher == nil {
		return "", errors.New("fetching web pages is not available")
	}
	page, err := d.world.Fetcher.Fetch(ctx, url)
	if err != nil {
		return "", describeFetchError(err)
	}

	content := fmt.Sprintf("URL «%s» contains no readable text content or it is empty after processing.", url)
	if page.Text != "" {
		content = fmt.Sprintf("Content of URL «%s» → {\n%s\n}", url, page.Text)
	}
	if err := d.world.Stores.LastFetch.Write(content); err != nil {
		return "", err
	}

	msg := fmt.Sprintf("The content of URL «%s» was fetched.", url)
	if page.ByteTruncated {
		msg += " The content was truncated at the byte limit."
	}
	if page.TokenTruncated {
		msg += " The text was truncated at the token limit."
	}
	if page.Cached {
		msg += " The page was served from the fetch cache and may be out of date."
	}
	return msg, nil
}

func describeFetchError(err error) error {
	var statusErr *webfetch.StatusError
	var typeErr *webfetch.ContentTypeError
	switch {
	case errors.Is(err, webfetch.ErrInvalidURL):
		return errors.New("invalid URL format, it must start with «http://» or «https://»")
	case errors.Is(err, webfetch.ErrTimeout):
		return errors.New("the request timed out")
	case errors.As(err, &statusErr):
		return fmt.Errorf("unsuccessful response status «%d»", statusErr.Code)
	case errors.As(err, &typeErr):
		return typeErr
	default:
		return fmt.Errorf("network request failed → %w", err)
	}
}

func (d *Dispatcher) clearLastURLContent(_ context.Context, _ []string) (string, error) {
	if err := d.world.Stores.LastFetch.Write(""); err != nil {
		return "", err
	}
	return "The content of the last fetched URL was erased.", nil
}
