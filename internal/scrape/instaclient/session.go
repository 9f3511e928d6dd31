package instaclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/mediagrab/mediagrab/internal/scrape"
)

// sessionCookie is the portable on-disk form of one session cookie.
type sessionCookie struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Domain  string `json:"domain,omitempty"`
	Path    string `json:"path,omitempty"`
	Expires int64  `json:"expires,omitempty"`
}

type loginResponse struct {
	Authenticated   bool   `json:"authenticated"`
	User            bool   `json:"user"`
	Status          string `json:"status"`
	Message         string `json:"message"`
	TwoFactorNeeded bool   `json:"two_factor_required"`
	CheckpointURL   string `json:"checkpoint_url"`
}

// Login authenticates username against the upstream login endpoint. A
// priming GET fetches the csrftoken cookie the endpoint demands.
func (cl *Client) Login(username, password string) error {
	if err := cl.prime(); err != nil {
		return err
	}
	csrf := cl.cookieValue("csrftoken")
	if csrf == "" {
		return scrape.NewError(scrape.KindAuthentication, "could not obtain csrf token")
	}

	c := cl.base.Clone()
	c.SetCookieJar(cl.jar)

	var p page
	var respErr error
	c.OnResponse(func(r *colly.Response) {
		p.status = r.StatusCode
		p.body = append([]byte(nil), r.Body...)
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			p.status = r.StatusCode
			p.body = append([]byte(nil), r.Body...)
		}
		respErr = err
	})
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("X-CSRFToken", csrf)
		r.Headers.Set("X-Requested-With", "XMLHttpRequest")
		r.Headers.Set("Referer", cl.cfg.BaseURL+"/accounts/login/")
	})

	form := map[string]string{
		"username":     username,
		"enc_password": fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", time.Now().Unix(), password),
	}
	if err := c.Post(cl.cfg.BaseURL+"/accounts/login/ajax/", form); err != nil && respErr == nil {
		respErr = err
	}
	if respErr != nil && p.status == 0 {
		return scrape.WrapError(scrape.KindUnavailable, "login request failed", respErr)
	}

	switch p.status {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return scrape.NewError(scrape.KindRateLimited, "upstream rate limit hit during login")
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		// Fall through to the body, which says why.
	default:
		return scrape.NewError(scrape.KindUnavailable,
			fmt.Sprintf("login endpoint returned %d", p.status))
	}

	var lr loginResponse
	if err := json.Unmarshal(p.body, &lr); err != nil {
		return scrape.WrapError(scrape.KindAuthentication, "unreadable login response", err)
	}
	switch {
	case lr.Authenticated:
		cl.logger.Info("login succeeded", zap.String("username", username))
		return nil
	case lr.TwoFactorNeeded:
		return scrape.NewError(scrape.KindTwoFactorRequired,
			"account "+username+" requires two-factor authentication")
	case lr.CheckpointURL != "":
		return scrape.NewError(scrape.KindAuthentication,
			"account "+username+" is checkpointed and needs manual verification")
	case lr.Status == "ok" && !lr.User:
		return scrape.NewError(scrape.KindInvalidCredentials,
			"unknown username "+username)
	default:
		return scrape.NewError(scrape.KindInvalidCredentials,
			"invalid credentials for "+username)
	}
}

// prime issues a bare GET against the origin so the jar holds csrftoken.
func (cl *Client) prime() error {
	p, err := cl.get(cl.cfg.BaseURL + "/")
	if err != nil {
		return err
	}
	if p.status == http.StatusTooManyRequests {
		return scrape.NewError(scrape.KindRateLimited, "upstream rate limit hit")
	}
	return nil
}

func (cl *Client) cookieValue(name string) string {
	for _, c := range cl.jar.Cookies(cl.origin) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// ImportCookies loads a previously exported session into the jar.
func (cl *Client) ImportCookies(blob []byte) error {
	var records []sessionCookie
	if err := json.Unmarshal(blob, &records); err != nil {
		return scrape.WrapError(scrape.KindAuthentication, "unreadable session data", err)
	}
	if len(records) == 0 {
		return scrape.NewError(scrape.KindAuthentication, "session data holds no cookies")
	}
	cookies := make([]*http.Cookie, 0, len(records))
	for _, rec := range records {
		ck := &http.Cookie{Name: rec.Name, Value: rec.Value, Path: rec.Path}
		if ck.Path == "" {
			ck.Path = "/"
		}
		if rec.Expires > 0 {
			ck.Expires = time.Unix(rec.Expires, 0)
		}
		cookies = append(cookies, ck)
	}
	cl.jar.SetCookies(cl.origin, cookies)
	if cl.cookieValue("sessionid") == "" {
		return scrape.NewError(scrape.KindAuthentication, "session data lacks a session cookie")
	}
	return nil
}

// ExportCookies serializes the current session for reuse by a later process.
func (cl *Client) ExportCookies() ([]byte, error) {
	cookies := cl.jar.Cookies(cl.origin)
	if len(cookies) == 0 {
		return nil, scrape.NewError(scrape.KindLoginRequired, "no active session to export")
	}
	records := make([]sessionCookie, 0, len(cookies))
	for _, ck := range cookies {
		rec := sessionCookie{Name: ck.Name, Value: ck.Value, Domain: ck.Domain, Path: ck.Path}
		if !ck.Expires.IsZero() {
			rec.Expires = ck.Expires.Unix()
		}
		records = append(records, rec)
	}
	return json.Marshal(records)
}

// LoggedIn reports whether the jar currently holds a session cookie.
func (cl *Client) LoggedIn() bool {
	return cl.cookieValue("sessionid") != ""
}
