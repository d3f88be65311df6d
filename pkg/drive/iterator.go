package drive

import "context"

// PageIterator produces a lazy, finite sequence of item pages from a Client.
// Every iterator starts a fresh cursor walk; a traversal is forward-only and
// not resumable mid-sequence.
type PageIterator struct {
	client Client
	opts   ListOptions
	done   bool
}

// NewPageIterator returns an iterator over the client's items using the given
// projection and page size. The PageToken field of opts is ignored; the walk
// always begins at the start.
func NewPageIterator(client Client, opts ListOptions) *PageIterator {
	opts.PageToken = ""

	return &PageIterator{client: client, opts: opts}
}

// Next fetches the next page. It returns ok=false once the sequence is
// exhausted. After an error the iterator is done and must not be reused.
func (it *PageIterator) Next(ctx context.Context) (FilePage, bool, error) {
	if it.done {
		return FilePage{}, false, nil
	}

	page, err := it.client.ListFiles(ctx, it.opts)
	if err != nil {
		it.done = true

		return FilePage{}, false, err
	}

	it.opts.PageToken = page.NextPageToken
	if page.NextPageToken == "" {
		it.done = true
	}

	return page, true, nil
}
