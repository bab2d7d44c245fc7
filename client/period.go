package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sutdhousing/portal/core/period"
)

func periodPath(uid string) string {
	return "/application_periods/" + url.PathEscape(uid)
}

func validatePeriod(data period.PeriodData) error {
	verr := make(ValidationError)
	if data.ApplicationWindowOpen.IsZero() {
		verr["application_window_open"] = msgRequired
	}
	if data.ApplicationWindowClose.IsZero() {
		verr["application_window_close"] = msgRequired
	}
	if len(data.ApplicablePeriods) == 0 {
		verr["applicable_periods"] = msgRequired
	}
	if len(verr) > 0 {
		return verr
	}
	return nil
}

// CreatePeriod validates data and creates an application period.
func (c *Client) CreatePeriod(ctx context.Context, data period.PeriodData) (period.ApplicationPeriod, error) {
	if err := validatePeriod(data); err != nil {
		return period.ApplicationPeriod{}, err
	}
	var p period.ApplicationPeriod
	err := c.do(ctx, http.MethodPost, "/application_periods", data, &p)
	return p, err
}

func (c *Client) UpdatePeriod(ctx context.Context, uid string, data period.PeriodData) (period.ApplicationPeriod, error) {
	if err := validatePeriod(data); err != nil {
		return period.ApplicationPeriod{}, err
	}
	var p period.ApplicationPeriod
	err := c.do(ctx, http.MethodPut, periodPath(uid), data, &p)
	return p, err
}

func (c *Client) GetPeriod(ctx context.Context, uid string) (period.ApplicationPeriod, error) {
	var p period.ApplicationPeriod
	err := c.do(ctx, http.MethodGet, periodPath(uid), nil, &p)
	return p, err
}

// AllPeriods lists every application period (admin).
func (c *Client) AllPeriods(ctx context.Context) ([]period.ApplicationPeriod, error) {
	var ps []period.ApplicationPeriod
	err := c.do(ctx, http.MethodGet, "/application_periods/all", nil, &ps)
	return ps, err
}

// OngoingPeriods lists the open periods the caller may apply to.
func (c *Client) OngoingPeriods(ctx context.Context) ([]period.ApplicationPeriod, error) {
	var ps []period.ApplicationPeriod
	err := c.do(ctx, http.MethodGet, "/application_periods", nil, &ps)
	return ps, err
}

// DeletePeriod issues a single DELETE. A nil error means the period is gone.
func (c *Client) DeletePeriod(ctx context.Context, uid string) error {
	return c.do(ctx, http.MethodDelete, periodPath(uid), nil, nil)
}
