// Package webvpn logs in to the ZJU WebVPN reverse proxy and rewrites
// intranet URLs into their proxied form.
//
// WebVPN has its own login page and does NOT bounce the client to the
// campus CAS (ids.zju.edu.cn), the CAS interaction happens server to
// server. That is what makes it reachable from outside the campus
// network in the first place.
package webvpn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"
	"zjubulletin/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/webvpn")

const DefaultBaseURL = "https://webvpn.zju.edu.cn"

// login page of the campus CAS, only ever seen when a proxied session
// has died mid-run
const casLoginURL = "ids.zju.edu.cn/cas/login"

// ErrSessionExpired is returned by callers probing IsLoginURL when a
// proxied fetch lands back on a login page. Retrying against a dead
// session is futile, so this is never retried.
var ErrSessionExpired = errors.New("webvpn session expired")

// BrowserHeaders is sent on every outbound request, the list sites
// serve different (sometimes empty) markup to unknown agents.
var BrowserHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8",
}

type Client struct {
	BaseURL *url.URL
	Http    *resty.Client

	// pause after a successful login before hammering the gateway
	// with follow-up requests
	SettleDelay time.Duration
}

type ClientOptions struct {
	// defaults to DefaultBaseURL
	BaseURL string
}

func NewClient(opts ClientOptions) (*Client, error) {
	rawURL := opts.BaseURL
	if rawURL == "" {
		rawURL = DefaultBaseURL
	}
	baseURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(rawURL)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.SetHeaders(BrowserHeaders)
	client.SetTimeout(time.Second * 25)

	telemetry.InstrumentResty(client, "scrapers/webvpn/http")

	return &Client{
		BaseURL:     baseURL,
		Http:        client,
		SettleDelay: time.Second,
	}, nil
}

// Login authenticates against the gateway's own /do-login endpoint.
//
// Flow:
//  1. GET /login, grab the _csrf token from its hidden input
//  2. POST /do-login with credentials + _csrf
//  3. on success the response sets a session cookie on the jar
//
// /do-login answers JSON: {"e":0} on success, {"e":N,"m":"..."} on
// failure. When the body is not JSON the final response URL decides:
// still sitting on the login page means rejected.
func (c *Client) Login(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get("/login")
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login page")
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse login page html")
		return err
	}

	csrf := doc.Find("input[name=_csrf]").AttrOr("value", "")
	if csrf == "" {
		span.SetStatus(codes.Error, "failed to find csrf token")
		return fmt.Errorf("could not find _csrf token in login page")
	}

	res, err = c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"_csrf":     csrf,
			"auth_type": "local",
			"username":  username,
			"password":  password,
		}).
		Post("/do-login")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make login request")
		return err
	}

	var result struct {
		E int    `json:"e"`
		M string `json:"m"`
	}
	if err := json.Unmarshal(res.Body(), &result); err != nil {
		// not JSON, fall back to the final URL after redirects
		if c.IsLoginURL(finalURL(res)) {
			span.SetStatus(codes.Error, "login redirected back to login page")
			return fmt.Errorf("login failed (url=%s, status=%d)", finalURL(res), res.StatusCode())
		}
	} else if result.E != 0 {
		span.SetStatus(codes.Error, "do-login rejected")
		msg := result.M
		if msg == "" {
			msg = fmt.Sprintf("e=%d", result.E)
		}
		return fmt.Errorf("do-login rejected: %s", msg)
	}

	time.Sleep(c.SettleDelay)
	return nil
}

var schemeRegex = regexp.MustCompile(`^(https?)://(.+)$`)

// ProxyURL rewrites an intranet URL into its gateway-proxied form:
//
//	http://cspo.zju.edu.cn/86671/list.htm
//	→ https://webvpn.zju.edu.cn/http/cspo.zju.edu.cn/86671/list.htm
//
// An URL that doesn't match the scheme pattern is a configuration
// defect, not a remote condition, and surfaces as an error.
func (c *Client) ProxyURL(original string) (string, error) {
	m := schemeRegex.FindStringSubmatch(original)
	if m == nil {
		return "", fmt.Errorf("unrecognised url: %s", original)
	}
	base := strings.TrimRight(c.BaseURL.String(), "/")
	return fmt.Sprintf("%s/%s/%s", base, m[1], m[2]), nil
}

// IsLoginURL reports whether a response URL points at the gateway's own
// login page or the campus CAS, the telltale of a dead session.
func (c *Client) IsLoginURL(u string) bool {
	return strings.Contains(u, c.BaseURL.Host+"/login") ||
		strings.Contains(u, casLoginURL)
}

func finalURL(res *resty.Response) string {
	if res.RawResponse == nil || res.RawResponse.Request == nil {
		return ""
	}
	return res.RawResponse.Request.URL.String()
}
