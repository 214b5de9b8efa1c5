package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 5, TotalPages(50, 10))
	assert.Equal(t, 6, TotalPages(51, 10))
	assert.Equal(t, 1, TotalPages(1, 10))
	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 0, TotalPages(50, 0))
}

func TestPage(t *testing.T) {
	assert.Equal(t, 1, Page(0, 10))
	assert.Equal(t, 2, Page(10, 10))
	assert.Equal(t, 3, Page(25, 10), "a mid-page skip still maps onto a page")
	assert.Equal(t, 1, Page(5, 0))
}

func byRel(t *testing.T, links []Link) map[string]Link {
	t.Helper()
	m := make(map[string]Link, len(links))
	for _, l := range links {
		m[l.Rel] = l
	}
	return m
}

func TestLinksMiddlePage(t *testing.T) {
	links := byRel(t, Links("http://api/events", 10, 10, 50))

	require.Len(t, links, 5)
	assert.Equal(t, "http://api/events?skip=10&limit=10", links["self"].Href)
	assert.Equal(t, "http://api/events?skip=0&limit=10", links["first"].Href)
	assert.Equal(t, "http://api/events?skip=40&limit=10", links["last"].Href)
	assert.Equal(t, "http://api/events?skip=20&limit=10", links["next"].Href)
	assert.Equal(t, "http://api/events?skip=0&limit=10", links["prev"].Href)
	for _, l := range links {
		assert.Equal(t, "GET", l.Method)
	}
}

func TestLinksFirstPageOmitsPrev(t *testing.T) {
	links := byRel(t, Links("http://api/events", 0, 10, 50))
	_, hasPrev := links["prev"]
	assert.False(t, hasPrev)
	assert.Equal(t, "http://api/events?skip=10&limit=10", links["next"].Href)
}

func TestLinksLastPageOmitsNext(t *testing.T) {
	links := byRel(t, Links("http://api/events", 40, 10, 50))
	_, hasNext := links["next"]
	assert.False(t, hasNext)
	assert.Equal(t, "http://api/events?skip=30&limit=10", links["prev"].Href)
}

func TestLinksEmptyResult(t *testing.T) {
	links := byRel(t, Links("http://api/events", 0, 10, 0))
	require.Len(t, links, 3)
	assert.Equal(t, "http://api/events?skip=0&limit=10", links["last"].Href)
}

func TestEntityLinks(t *testing.T) {
	links := EntityLinks("http://api", "users", "abc")
	require.Len(t, links, 3)
	assert.Equal(t, Link{Rel: "self", Href: "http://api/users/abc", Method: "GET"}, links[0])
	assert.Equal(t, Link{Rel: "update", Href: "http://api/users/abc", Method: "PUT"}, links[1])
	assert.Equal(t, Link{Rel: "delete", Href: "http://api/users/abc", Method: "DELETE"}, links[2])
}
