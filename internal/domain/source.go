package domain

import (
	"fmt"
	"net/url"
)

// DefaultSourceURL is the USGS FDSN event query endpoint.
const DefaultSourceURL = "https://earthquake.usgs.gov/fdsnws/event/1/query"

// SourceRequest describes the single GET issued for a run.
type SourceRequest struct {
	BaseURL string
	Format  string // response format requested from the API, e.g. "csv"
	Window  RunWindow
}

// URL builds the request URL with query-parameter encoding. Any query already
// present on BaseURL is kept, but format, starttime and endtime are replaced so
// each appears exactly once.
func (r SourceRequest) URL() (string, error) {
	u, err := url.Parse(r.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse source url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("parse source url: unsupported scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("format", r.Format)
	q.Set("starttime", r.Window.Start)
	q.Set("endtime", r.Window.End)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
