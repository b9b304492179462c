package httpserver

import (
	"net/url"
	"testing"
)

func FuzzBuildListParams(f *testing.F) {
	seeds := []string{
		"q=surge&limit=10&user_id=user1",
		"limit=abc",
		"cursor=aGVsbG8=",
		"",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		values, err := url.ParseQuery(raw)
		if err != nil {
			return
		}
		_, _ = buildListParams(values)
	})
}
