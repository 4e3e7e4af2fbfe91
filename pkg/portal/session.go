package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/raterudder/solarrelay/pkg/log"
	"github.com/raterudder/solarrelay/pkg/types"
)

const (
	loginPath = "WManage/web/login"
	// the portal redirects here after a successful login
	loginSuccessPath = "WManage/web/overview"
	sessionCookie    = "JSESSIONID"
)

// loginFailureMarkers appear in the body when the portal served the login
// form again or rejected the credentials. Matched case-insensitively.
var loginFailureMarkers = []string{
	`id="loginform"`,
	`class="login-form"`,
	`action="/wmanage/web/login"`,
	`"success":false`,
	`"success": false`,
	"account or password",
	"login failed",
}

// Login submits the credentials and checks that the portal accepted them.
// The portal has signaled success differently over time, so a redirect to
// the overview page or a session cookie both count, but a body that still
// looks like the login form always wins and anything else fails closed.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if username == "" {
		return fmt.Errorf("%w: missing username", types.ErrAuthentication)
	}
	if password == "" {
		return fmt.Errorf("%w: missing password", types.ErrAuthentication)
	}

	data := url.Values{}
	data.Set("account", username)
	data.Set("password", password)
	data.Set("isRem", "false")
	data.Set("lang", "en_US")

	req, err := c.newPostFormRequest(ctx, loginPath, data)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrAuthentication, err)
	}

	log.Ctx(ctx).DebugContext(ctx, "logging in to portal", slog.String("username", username))
	resp, err := c.client.Do(req)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "portal login request failed", slog.Any("error", err))
		return fmt.Errorf("%w: login request: %w", types.ErrAuthentication, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: reading login response: %w", types.ErrAuthentication, err)
	}

	signal, err := c.evaluateLogin(resp, body)
	if err != nil {
		log.Ctx(ctx).ErrorContext(
			ctx,
			"portal login rejected",
			slog.Int("status", resp.StatusCode),
			slog.Any("error", err),
		)
		return fmt.Errorf("%w: %w", types.ErrAuthentication, err)
	}
	log.Ctx(ctx).InfoContext(ctx, "logged in to portal", slog.String("signal", signal))
	return nil
}

// evaluateLogin returns the name of the signal that proved success.
func (c *Client) evaluateLogin(resp *http.Response, body []byte) (string, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if marker := findLoginFailureMarker(body); marker != "" {
		return "", fmt.Errorf("response still contains login marker %q", marker)
	}

	successPath := "/" + loginSuccessPath
	if resp.Request != nil && strings.Contains(resp.Request.URL.Path, successPath) {
		return "redirect", nil
	}
	if loc := resp.Header.Get("Location"); loc != "" && strings.Contains(loc, successPath) {
		return "redirect", nil
	}

	if c.client.Jar != nil {
		u, err := c.endpointURL(loginPath)
		if err == nil {
			for _, ck := range c.client.Jar.Cookies(u) {
				if ck.Name == sessionCookie && ck.Value != "" {
					return "cookie", nil
				}
			}
		}
	}

	return "", errors.New("no login success signal in response")
}

func findLoginFailureMarker(body []byte) string {
	lower := bytes.ToLower(body)
	for _, m := range loginFailureMarkers {
		if bytes.Contains(lower, []byte(m)) {
			return m
		}
	}
	return ""
}
