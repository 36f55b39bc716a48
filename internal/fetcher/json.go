package fetcher

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// StreamJSONArray decodes a top-level JSON array of T element by element, so
// multi-gigabyte scrape dumps import without loading whole files. The value
// channel closes when the array ends or on failure; the error channel then
// carries at most one error.
func StreamJSONArray[T any](ctx context.Context, r io.Reader) (<-chan T, <-chan error) {
	out := make(chan T)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		dec := json.NewDecoder(r)
		tok, err := dec.Token()
		if err != nil {
			errCh <- eris.Wrap(err, "fetcher: read json")
			return
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '[' {
			errCh <- eris.Errorf("fetcher: expected json array, got %v", tok)
			return
		}

		for dec.More() {
			var v T
			if err := dec.Decode(&v); err != nil {
				errCh <- eris.Wrap(err, "fetcher: decode json element")
				return
			}
			select {
			case out <- v:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
	}()

	return out, errCh
}
