package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sutdhousing/portal/core/application"
)

func applicationPath(uid string, suffix string) string {
	return "/applications/" + url.PathEscape(uid) + suffix
}

func draftPath(periodUID string) string {
	return "/applications/drafts/" + url.PathEscape(periodUID)
}

func (c *Client) SubmitApplication(ctx context.Context, nf application.NewForm) (application.Form, error) {
	var f application.Form
	err := c.do(ctx, http.MethodPost, "/applications", nf, &f)
	return f, err
}

func (c *Client) GetApplication(ctx context.Context, uid string) (application.Form, error) {
	var f application.Form
	err := c.do(ctx, http.MethodGet, applicationPath(uid, ""), nil, &f)
	return f, err
}

func (c *Client) WithdrawApplication(ctx context.Context, uid string) (application.Form, error) {
	var f application.Form
	err := c.do(ctx, http.MethodPut, applicationPath(uid, "/withdraw"), nil, &f)
	return f, err
}

// StudentApplications returns the forms of a student keyed by uid.
func (c *Client) StudentApplications(ctx context.Context, studentID string) (map[string]application.Form, error) {
	var forms map[string]application.Form
	err := c.do(ctx, http.MethodGet, studentPath(studentID, "/applications"), nil, &forms)
	return forms, err
}

func (c *Client) GetDraft(ctx context.Context, periodUID string) (application.Draft, error) {
	var d application.Draft
	err := c.do(ctx, http.MethodGet, draftPath(periodUID), nil, &d)
	return d, err
}

func (c *Client) SaveDraft(ctx context.Context, periodUID string, du application.DraftUpdate) (application.Draft, error) {
	var d application.Draft
	err := c.do(ctx, http.MethodPut, draftPath(periodUID), du, &d)
	return d, err
}

func (c *Client) DeleteDraft(ctx context.Context, periodUID string) error {
	return c.do(ctx, http.MethodDelete, draftPath(periodUID), nil, nil)
}
