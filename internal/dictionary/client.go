// Package dictionary wraps the Yandex Dictionary lookup used to accept
// or reject a submitted Words answer that isn't already known from a
// prior game. Kept as a single boolean call, matching the teacher's
// own outbound API clients: plain net/http behind a narrow interface.
package dictionary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"citywords/lib/sl"
)

const baseURL = "https://dictionary.yandex.net/api/v1/dicservice.json/lookup"

type Client struct {
	hc  *http.Client
	key string
	log *slog.Logger
}

func NewClient(key string, log *slog.Logger) *Client {
	return &Client{
		hc:  &http.Client{Timeout: 5 * time.Second},
		key: key,
		log: log.With(sl.Module("dictionary")),
	}
}

type lookupResponse struct {
	Def []struct {
		Pos string `json:"pos"`
	} `json:"def"`
}

// IsNoun reports whether word is a recognized noun in Russian,
// accepting it iff the dictionary returns at least one definition and
// the first definition's part of speech is "noun".
func (c *Client) IsNoun(ctx context.Context, word string) (bool, error) {
	q := url.Values{}
	q.Set("key", c.key)
	q.Set("lang", "ru-ru")
	q.Set("text", word)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("dictionary: building request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return false, fmt.Errorf("dictionary: lookup %q: %w", word, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("dictionary: lookup %q: status %d", word, resp.StatusCode)
	}

	var out lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("dictionary: decoding response for %q: %w", word, err)
	}

	accepted := len(out.Def) > 0 && out.Def[0].Pos == "noun"
	c.log.Debug("lookup", slog.String("word", word), slog.Bool("accepted", accepted))
	return accepted, nil
}
