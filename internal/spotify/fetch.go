package spotify

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

// GetWithRetry issues an authenticated GET against url through ring's
// current identity and decodes the body as T, dispatching on status:
//
//	200 -> decode and return
//	429 -> read Retry-After, cool the identity down via the ring, recurse
//	401 -> refresh the identity via the ring, recurse
//	other -> UnexpectedStatusError
//
// There is no retry budget here: recursion only ends on a non-401/429
// outcome. Callers that need a hard ceiling set their own context
// deadline; LoopUntilOk adds no ceiling, it retries forever.
func GetWithRetry[T any](ctx context.Context, ring *Ring, target string) (T, error) {
	var zero T

	if err := ring.WaitGlobalLimit(ctx); err != nil {
		return zero, err
	}

	client, token := ring.Front()
	resp, err := client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Accept", "application/json").
		Get(target)
	if err != nil {
		return zero, &TransportError{URL: target, Err: err}
	}

	switch resp.StatusCode() {
	case 200:
		var out T
		if err := json.Unmarshal(resp.Body(), &out); err != nil {
			return zero, &DecodeError{URL: target, Err: err}
		}
		return out, nil

	case 429:
		secs, err := parseRetryAfter(resp)
		if err != nil {
			return zero, err
		}
		ring.SleepFrontAndGetNext(secs)
		return GetWithRetry[T](ctx, ring, target)

	case 401:
		ring.RefreshFrontAndGetNext()
		return GetWithRetry[T](ctx, ring, target)

	default:
		return zero, &UnexpectedStatusError{URL: target, Code: resp.StatusCode()}
	}
}

func parseRetryAfter(resp *resty.Response) (int, error) {
	raw := resp.Header().Get("Retry-After")
	if raw == "" {
		return 0, ErrNoRetryAfter
	}
	secs, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, ErrNoRetryAfter
	}
	return secs, nil
}

// Search runs a provider text search for query restricted to the given
// object kind ("artist", "album", "track", ...) and decodes the single
// Paging[T] field the search envelope wraps. Only spaces are
// percent-encoded in the query: the provider accepts raw punctuation,
// and over-encoding narrows matches unexpectedly.
func Search[T any](ctx context.Context, ring *Ring, query, kind string) (Paging[T], error) {
	encoded := strings.ReplaceAll(query, " ", "%20")
	target := apiBase + "/search?q=" + encoded + "&type=" + url.QueryEscape(kind)

	var envelope map[string]Paging[T]
	raw, err := GetWithRetry[json.RawMessage](ctx, ring, target)
	if err != nil {
		return Paging[T]{}, err
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Paging[T]{}, &DecodeError{URL: target, Err: err}
	}
	return envelope[kind+"s"], nil
}

// GetNextPaging follows a Paging envelope's Next cursor URL and decodes
// the subsequent page. Callers loop while Next != "".
func GetNextPaging[T any](ctx context.Context, ring *Ring, nextURL string) (Paging[T], error) {
	return GetWithRetry[Paging[T]](ctx, ring, nextURL)
}
