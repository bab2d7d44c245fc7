package client

import (
	"context"
	"net/http"
	"strings"
)

type (
	Access struct {
		IsStudent    bool `json:"is_student"`
		IsStudentHG  bool `json:"is_student_hg"`
		IsAdmin      bool `json:"is_admin"`
		IsAdminWrite bool `json:"is_admin_write"`
	}

	LoginResponse struct {
		Token string `json:"token"`
		Access
	}
)

// Login authenticates with a username (or email) and keeps the issued token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	verr := make(ValidationError)
	if strings.TrimSpace(username) == "" {
		verr["username"] = msgRequired
	}
	if password == "" {
		verr["password"] = msgRequired
	}
	if len(verr) > 0 {
		return LoginResponse{}, verr
	}

	var res LoginResponse
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &res); err != nil {
		return LoginResponse{}, err
	}
	c.SetToken(res.Token)
	return res, nil
}

// Access reports the access levels of the logged in user.
func (c *Client) Access(ctx context.Context) (Access, error) {
	var res Access
	err := c.do(ctx, http.MethodGet, "/auth/access", nil, &res)
	return res, err
}
