package catalog

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"strconv"
	"strings"

	"coursewatch/internal/config"
	"coursewatch/internal/model"
)

// Client fetches course data from the explorer API. It holds an
// immutable base URL built once from configuration and is safe for
// concurrent use.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient expands the configured URL template and builds a client
// with the configured fetch timeout.
func NewClient(cfg config.CatalogConfig) *Client {
	base := strings.NewReplacer(
		"{year}", cfg.Year,
		"{semester}", cfg.Semester,
	).Replace(strings.TrimRight(cfg.BaseURL, "/"))
	return &Client{
		client:  &http.Client{Timeout: cfg.FetchTimeout},
		baseURL: base,
	}
}

// NormalizeQuery validates and normalizes raw command arguments into a
// CourseQuery. The department code is upper-cased; the course number
// and CRN must be integers. A CRN requires a course number.
func NormalizeQuery(dept, number, crn string) (model.CourseQuery, error) {
	q := model.CourseQuery{Department: strings.ToUpper(strings.TrimSpace(dept))}
	if q.Department == "" {
		return q, &ValidationError{Reason: "Department code is required."}
	}
	if number != "" {
		n, err := strconv.Atoi(number)
		if err != nil {
			return q, &ValidationError{Reason: "Course number is not a number."}
		}
		q.CourseNumber = strconv.Itoa(n)
	}
	if crn != "" {
		if q.CourseNumber == "" {
			return q, &ValidationError{Reason: "A CRN requires a course number."}
		}
		n, err := strconv.Atoi(crn)
		if err != nil {
			return q, &ValidationError{Reason: "CRN is not a number."}
		}
		q.CRN = strconv.Itoa(n)
	}
	return q, nil
}

// FetchSection fetches the snapshot for a single CRN. The query must
// carry a department, course number and CRN.
func (c *Client) FetchSection(ctx context.Context, q model.CourseQuery) (*Section, error) {
	var x sectionXML
	if err := c.get(ctx, q, &x); err != nil {
		return nil, err
	}
	return newSection(&x), nil
}

// FetchCourse fetches a course document (description fields plus the
// detailed section list) for a department and course number.
func (c *Client) FetchCourse(ctx context.Context, q model.CourseQuery) (*Course, error) {
	var x courseXML
	if err := c.get(ctx, q, &x); err != nil {
		return nil, err
	}
	return newCourse(&x), nil
}

// FetchSubject fetches a department document with its course listing.
func (c *Client) FetchSubject(ctx context.Context, q model.CourseQuery) (*Subject, error) {
	var x subjectXML
	if err := c.get(ctx, q, &x); err != nil {
		return nil, err
	}
	return newSubject(&x), nil
}

func (c *Client) buildURL(q model.CourseQuery) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	b.WriteString("/")
	b.WriteString(q.Department)
	if q.CourseNumber != "" {
		b.WriteString("/")
		b.WriteString(q.CourseNumber)
	}
	if q.CRN != "" {
		b.WriteString("/")
		b.WriteString(q.CRN)
	}
	b.WriteString(".xml")
	if q.CourseNumber != "" {
		b.WriteString("?mode=detail")
	}
	return b.String()
}

func (c *Client) get(ctx context.Context, q model.CourseQuery, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(q), nil)
	if err != nil {
		return &FetchError{Kind: KindTransient, Cause: err}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return &FetchError{Kind: KindTransient, Cause: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &FetchError{Kind: KindNotFound, StatusCode: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return &FetchError{Kind: KindTransient, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FetchError{Kind: KindTransient, Cause: err}
	}
	if err := xml.Unmarshal(body, out); err != nil {
		return &FetchError{Kind: KindParseFailure, Cause: err}
	}
	return nil
}
