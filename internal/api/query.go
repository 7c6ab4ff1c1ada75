package api

import (
	"net/url"
	"strconv"
)

// pageQuery builds the query string for a paged list; zero values are omitted
func pageQuery(page, perPage int, extra map[string]string) string {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		q.Set("per_page", strconv.Itoa(perPage))
	}
	for k, v := range extra {
		if v != "" {
			q.Set(k, v)
		}
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func escape(id string) string {
	return url.PathEscape(id)
}
