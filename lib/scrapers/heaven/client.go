package heaven

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"heavenwatch-backend/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

const DefaultBaseUrl = "https://newmanager.cityheaven.net"

const (
	loginPath     = "/C1Login.php"
	loginReferrer = "from=CHAdminAuth"
	mainPath      = "/C1Main.php"
	castListPath  = "/C2GirlList.php"
	diaryListPath = "/C8KeitaiDiaryList.php"

	sessionCookieName = "PHPSESSID"
	portalDomain      = "cityheaven.net"

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"

	requestTimeout = 15 * time.Second
	warmupTimeout  = 10 * time.Second
	detailTimeout  = 10 * time.Second
)

// Session is the handoff value between a login and subsequent crawls.
// The caller owns it; a crawl never holds session state of its own.
type Session struct {
	// value of the portal's primary session cookie
	Token string
	// every other cookie issued during the login exchange
	Extra map[string]string
}

type ClientOptions struct {
	// defaults to DefaultBaseUrl, overridable for tests
	BaseUrl string
}

// Client talks to the portal's management backend. A fresh Client with
// its own cookie jar is built per login or per crawl invocation, so
// concurrent crawls for different accounts cannot interfere.
type Client struct {
	baseUrl *url.URL
	http    *resty.Client
	jar     http.CookieJar
}

func NewClient(opts ClientOptions) (*Client, error) {
	rawUrl := opts.BaseUrl
	if rawUrl == "" {
		rawUrl = DefaultBaseUrl
	}
	baseUrl, err := url.Parse(rawUrl)
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(rawUrl)
	client.SetCookieJar(jar)
	client.SetTimeout(requestTimeout)
	client.SetHeader("user-agent", browserUserAgent)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	restyutil.InstrumentClient(client, "scrapers/heaven/http", restyInstrumentOutput)

	return &Client{
		baseUrl: baseUrl,
		http:    client,
		jar:     jar,
	}, nil
}

// NewSessionClient rebuilds an authenticated client from a previously
// issued session, seeding the cookie jar with the primary session
// cookie and any extra cookies the login exchange produced.
func NewSessionClient(opts ClientOptions, session Session) (*Client, error) {
	c, err := NewClient(opts)
	if err != nil {
		return nil, err
	}

	cookies := []*http.Cookie{c.portalCookie(sessionCookieName, session.Token)}
	for name, value := range session.Extra {
		cookies = append(cookies, c.portalCookie(name, value))
	}
	c.jar.SetCookies(c.baseUrl, cookies)

	return c, nil
}

func (c *Client) portalCookie(name, value string) *http.Cookie {
	cookie := &http.Cookie{Name: name, Value: value, Path: "/"}
	// scope to the parent domain on the real portal so subdomain
	// redirects keep the session; host-only everywhere else (tests)
	if strings.HasSuffix(c.baseUrl.Hostname(), portalDomain) {
		cookie.Domain = portalDomain
	}
	return cookie
}

var loginFailureMarkers = []string{
	"IDまたはパスワードが違います",
	"エラー",
	"ログイン",
}

// Login exchanges credentials for a Session. It classifies the outcome
// into ErrConnection, ErrInvalidCredentials, ErrMissingSessionToken or
// ErrUnexpectedResponse and never retries; retry policy belongs to the
// caller.
func (c *Client) Login(ctx context.Context, accountId, password string) (Session, error) {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	loginUrl := fmt.Sprintf("%s%s?%s", strings.TrimSuffix(c.baseUrl.String(), "/"), loginPath, loginReferrer)

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Referer", loginUrl).
		SetFormData(map[string]string{
			"txt_account":  accountId,
			"txt_password": password,
			"login":        "ログイン",
			"chk_save":     "",
		}).
		Post(loginUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to post login form")
		return Session{}, fmt.Errorf("%w: %s", ErrConnection, err)
	}

	finalUrl := res.Request.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalUrl = res.RawResponse.Request.URL.String()
	}

	if res.StatusCode() < 400 && strings.Contains(finalUrl, "C1Main.php") {
		session := c.sessionFromJar()
		if session.Token == "" {
			span.SetStatus(codes.Error, ErrMissingSessionToken.Error())
			return Session{}, fmt.Errorf("%w (final url %s)", ErrMissingSessionToken, finalUrl)
		}
		return session, nil
	}

	body := res.String()
	for _, marker := range loginFailureMarkers {
		if strings.Contains(body, marker) {
			span.SetStatus(codes.Error, ErrInvalidCredentials.Error())
			return Session{}, ErrInvalidCredentials
		}
	}

	span.SetStatus(codes.Error, "unrecognized login response")
	return Session{}, fmt.Errorf("%w: final url %s: %s", ErrUnexpectedResponse, finalUrl, excerpt(body))
}

// sessionFromJar splits the jar's cookies into the primary session
// token and everything else.
func (c *Client) sessionFromJar() Session {
	session := Session{Extra: map[string]string{}}
	for _, cookie := range c.jar.Cookies(c.baseUrl) {
		if cookie.Name == sessionCookieName {
			session.Token = cookie.Value
			continue
		}
		session.Extra[cookie.Name] = cookie.Value
	}
	return session
}

// warm initializes the portal's server-side listing state. The landing
// page must be visited once and the cast list twice before the diary
// list paginates correctly; skipping any of these requests yields
// truncated listings.
func (c *Client) warm(ctx context.Context, shopdir string) error {
	for _, path := range []string{mainPath, castListPath, castListPath} {
		reqCtx, cancel := context.WithTimeout(ctx, warmupTimeout)
		_, err := c.http.R().
			SetContext(reqCtx).
			SetQueryParam("shopdir", shopdir).
			Get(path)
		cancel()
		if err != nil {
			return fmt.Errorf("%w: warm-up %s: %s", ErrConnection, path, err)
		}
	}
	return nil
}
