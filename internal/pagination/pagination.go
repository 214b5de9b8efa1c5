// Package pagination computes page metadata and hypermedia links for list
// responses. Everything here is pure: given a base URL, the current window
// (skip/limit) and a total count, the same links always come out.
package pagination

import "fmt"

// Link is a single hypermedia pointer embedded in list and entity responses.
type Link struct {
	Rel    string `json:"rel"`
	Href   string `json:"href"`
	Method string `json:"method"`
}

// TotalPages returns the number of pages needed to hold total items at
// limit per page, using integer ceiling division. A non-positive limit
// yields zero pages.
func TotalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// Page converts a skip offset into a 1-based page number.
func Page(skip, limit int) int {
	if limit <= 0 {
		return 1
	}
	return skip/limit + 1
}

// Links builds the navigation set for a list window. self, first and last
// are always present; next is omitted on the last page and prev on the
// first, so clients can detect the boundaries. Query parameters keep a
// fixed skip-then-limit order so links are stable across calls.
func Links(baseURL string, skip, limit, total int) []Link {
	pages := TotalPages(total, limit)
	lastSkip := 0
	if pages > 0 {
		lastSkip = (pages - 1) * limit
	}

	links := []Link{
		pageLink("self", baseURL, skip, limit),
		pageLink("first", baseURL, 0, limit),
		pageLink("last", baseURL, lastSkip, limit),
	}
	if skip+limit < total {
		links = append(links, pageLink("next", baseURL, skip+limit, limit))
	}
	if skip > 0 {
		prev := skip - limit
		if prev < 0 {
			prev = 0
		}
		links = append(links, pageLink("prev", baseURL, prev, limit))
	}
	return links
}

// EntityLinks builds the self/update/delete action set for a single entity.
func EntityLinks(baseURL, resource, id string) []Link {
	href := fmt.Sprintf("%s/%s/%s", baseURL, resource, id)
	return []Link{
		{Rel: "self", Href: href, Method: "GET"},
		{Rel: "update", Href: href, Method: "PUT"},
		{Rel: "delete", Href: href, Method: "DELETE"},
	}
}

func pageLink(rel, baseURL string, skip, limit int) Link {
	return Link{
		Rel:    rel,
		Href:   fmt.Sprintf("%s?skip=%d&limit=%d", baseURL, skip, limit),
		Method: "GET",
	}
}
