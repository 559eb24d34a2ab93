package meeting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"slotwise/internal/metrics"
	"slotwise/internal/models"
)

const zoomBaseURL = "https://api.zoom.us/v2"

// ZoomConfig holds Server-to-Server OAuth credentials.
type ZoomConfig struct {
	AccountID    string
	ClientID     string
	ClientSecret string
}

// Zoom implements Provider against the Zoom REST API using a
// Server-to-Server OAuth token source.
type Zoom struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewZoom builds a Zoom provider.
func NewZoom(ctx context.Context, cfg ZoomConfig) *Zoom {
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     "https://zoom.us/oauth/token",
		EndpointParams: url.Values{
			"grant_type": {"account_credentials"},
			"account_id": {cfg.AccountID},
		},
	}

	client := cc.Client(ctx)
	client.Timeout = 10 * time.Second

	return &Zoom{
		baseURL:    zoomBaseURL,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(2), 4),
	}
}

type zoomMeetingRequest struct {
	Topic     string `json:"topic"`
	Type      int    `json:"type"` // 2 = scheduled meeting
	StartTime string `json:"start_time"`
	Duration  int    `json:"duration"` // minutes
	Timezone  string `json:"timezone"`
}

type zoomMeetingResponse struct {
	ID      int64  `json:"id"`
	JoinURL string `json:"join_url"`
}

// CreateMeeting schedules a Zoom meeting for the host.
func (z *Zoom) CreateMeeting(ctx context.Context, d Details) (*Meeting, error) {
	if err := z.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body := zoomMeetingRequest{
		Topic:     d.Topic,
		Type:      2,
		StartTime: d.Start.UTC().Format("2006-01-02T15:04:05Z"),
		Duration:  int(d.Duration.Minutes()),
		Timezone:  "UTC",
	}

	endpoint := fmt.Sprintf("%s/users/%s/meetings", z.baseURL, url.PathEscape(d.HostEmail))
	var resp zoomMeetingResponse
	if err := z.doJSON(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		metrics.IncProviderFailure("zoom", "create_meeting")
		return nil, &models.ProviderError{Provider: "zoom", Op: "create_meeting", Err: err}
	}

	return &Meeting{ID: fmt.Sprintf("%d", resp.ID), JoinURL: resp.JoinURL}, nil
}

// DeleteMeeting removes a scheduled meeting.
func (z *Zoom) DeleteMeeting(ctx context.Context, meetingID string) error {
	if err := z.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/meetings/%s", z.baseURL, url.PathEscape(meetingID))
	if err := z.doJSON(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		metrics.IncProviderFailure("zoom", "delete_meeting")
		return &models.ProviderError{Provider: "zoom", Op: "delete_meeting", Err: err}
	}
	return nil
}

func (z *Zoom) doJSON(ctx context.Context, method, endpoint string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := z.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("zoom api status %d: %s", resp.StatusCode, data)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
