package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://www.googleapis.com/calendar/v3"

// Client is a minimal Google Calendar v3 REST client. It authenticates with a
// bearer access token obtained out of band.
type Client struct {
	hc      *http.Client
	baseURL string
	token   string
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

func NewClient(baseURL, accessToken string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		hc:      &http.Client{Timeout: 5 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   accessToken,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EventTime is either a timed (DateTime) or an all-day (Date) boundary.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type ExtendedProperties struct {
	Private map[string]string `json:"private,omitempty"`
}

type Event struct {
	ID                 string              `json:"id,omitempty"`
	Summary            string              `json:"summary"`
	Description        string              `json:"description,omitempty"`
	Location           string              `json:"location,omitempty"`
	Start              EventTime           `json:"start"`
	End                EventTime           `json:"end"`
	ColorID            string              `json:"colorId,omitempty"`
	ExtendedProperties *ExtendedProperties `json:"extendedProperties,omitempty"`
}

type ListQuery struct {
	TimeMin  time.Time
	TimeMax  time.Time
	TimeZone string
	// PrivateProperty filters on a private extended property, "key=value".
	PrivateProperty string
	MaxResults      int
}

type eventsResponse struct {
	Items []Event `json:"items"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ListEvents returns the single (expanded) events of calendarID matching q.
func (c *Client) ListEvents(ctx context.Context, calendarID string, q ListQuery) ([]Event, error) {
	params := url.Values{}
	params.Set("singleEvents", "true")
	params.Set("orderBy", "startTime")
	if !q.TimeMin.IsZero() {
		params.Set("timeMin", q.TimeMin.Format(time.RFC3339))
	}
	if !q.TimeMax.IsZero() {
		params.Set("timeMax", q.TimeMax.Format(time.RFC3339))
	}
	if q.TimeZone != "" {
		params.Set("timeZone", q.TimeZone)
	}
	if q.PrivateProperty != "" {
		params.Set("privateExtendedProperty", q.PrivateProperty)
	}
	if q.MaxResults > 0 {
		params.Set("maxResults", fmt.Sprint(q.MaxResults))
	}

	status, body, err := c.do(ctx, http.MethodGet, c.eventsURL(calendarID), params, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, responseError("list events", status, body)
	}
	var res eventsResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return res.Items, nil
}

// InsertEvent creates e in calendarID and returns the stored event.
func (c *Client) InsertEvent(ctx context.Context, calendarID string, e Event) (Event, error) {
	jb, err := json.Marshal(e)
	if err != nil {
		return Event{}, err
	}
	status, body, err := c.do(ctx, http.MethodPost, c.eventsURL(calendarID), nil, jb)
	if err != nil {
		return Event{}, err
	}
	if status >= 400 {
		return Event{}, responseError("insert event", status, body)
	}
	var out Event
	if err := json.Unmarshal(body, &out); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return out, nil
}

func (c *Client) eventsURL(calendarID string) string {
	return c.baseURL + "/calendars/" + url.PathEscape(calendarID) + "/events"
}

func responseError(op string, status int, body []byte) error {
	var e apiError
	_ = json.Unmarshal(body, &e)
	if e.Error.Message != "" {
		return fmt.Errorf("calendar %s failed: %s (status=%d)", op, e.Error.Message, status)
	}
	return fmt.Errorf("calendar %s failed (status=%d)", op, status)
}

func (c *Client) do(ctx context.Context, method, rawURL string, query url.Values, body []byte) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("accept", "application/json")
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("authorization", "Bearer "+c.token)
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, err
	}
	return res.StatusCode, b, nil
}
