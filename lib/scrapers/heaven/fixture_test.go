package heaven

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

// fixturePortal fakes the handful of portal endpoints the scraper
// touches: login, the two warm-up pages, the paginated diary list and
// diary edit (detail) pages.
type fixturePortal struct {
	t *testing.T

	accountId string
	password  string

	// login behavior toggles
	omitSessionCookie bool
	unexpectedBody    string
	failureStatus     int

	listPages   []string
	detailPages map[string]string

	warmHits []string
	listHits []int

	server *httptest.Server
}

func newFixturePortal(t *testing.T) *fixturePortal {
	p := &fixturePortal{
		t:           t,
		accountId:   "shop-admin",
		password:    "hunter2",
		detailPages: map[string]string{},
	}
	p.server = httptest.NewServer(http.HandlerFunc(p.handle))
	t.Cleanup(p.server.Close)
	return p
}

func (p *fixturePortal) baseUrl() string {
	return p.server.URL
}

func (p *fixturePortal) client() *Client {
	c, err := NewClient(ClientOptions{BaseUrl: p.baseUrl()})
	if err != nil {
		p.t.Fatal(err)
	}
	return c
}

func (p *fixturePortal) sessionClient() *Client {
	c, err := NewSessionClient(ClientOptions{BaseUrl: p.baseUrl()}, Session{Token: "S1"})
	if err != nil {
		p.t.Fatal(err)
	}
	return c
}

func (p *fixturePortal) handle(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case loginPath:
		p.handleLogin(w, r)
	case mainPath, castListPath:
		p.warmHits = append(p.warmHits, r.URL.Path)
		fmt.Fprint(w, "<html><body>ok</body></html>")
	case diaryListPath:
		p.handleDiaryList(w, r)
	default:
		page, ok := p.detailPages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, page)
	}
}

func (p *fixturePortal) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		p.t.Error(err)
	}

	if p.unexpectedBody != "" {
		fmt.Fprint(w, p.unexpectedBody)
		return
	}

	if r.FormValue("txt_account") != p.accountId || r.FormValue("txt_password") != p.password {
		if p.failureStatus != 0 {
			w.WriteHeader(p.failureStatus)
		}
		fmt.Fprint(w, "<html><body>IDまたはパスワードが違います</body></html>")
		return
	}

	if !p.omitSessionCookie {
		http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "S1", Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "A", Value: "1", Path: "/"})
	}
	http.Redirect(w, r, mainPath, http.StatusFound)
}

func (p *fixturePortal) handleDiaryList(w http.ResponseWriter, r *http.Request) {
	start := 1
	if s := r.URL.Query().Get("start"); s != "" {
		var err error
		start, err = strconv.Atoi(s)
		if err != nil {
			p.t.Errorf("bad start parameter %q", s)
		}
	}
	p.listHits = append(p.listHits, start)

	if start-1 < len(p.listPages) {
		fmt.Fprint(w, p.listPages[start-1])
		return
	}
	// pages past the fixture data have no listing table at all
	fmt.Fprint(w, "<html><body><table><tr><td>nav</td></tr></table></body></html>")
}

// listPage renders a listing page the way the portal does: a
// navigation table followed by the actual listing table.
func listPage(rows ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString("<table><tr><td>nav</td></tr></table>")
	b.WriteString("<table><tbody>")
	for _, row := range rows {
		b.WriteString(row)
	}
	b.WriteString("</tbody></table>")
	b.WriteString("</body></html>")
	return b.String()
}

func countRow(date, cast string) string {
	return fmt.Sprintf("<tr><td>1</td><td>%s</td><td>%s</td></tr>", date, cast)
}

func detailRow(date, cast, title, preview, editHref string) string {
	link := ""
	if editHref != "" {
		link = fmt.Sprintf(`<a href="%s">編集</a>`, editHref)
	}
	return fmt.Sprintf(
		`<tr><td>1</td><td>%s</td><td>%s</td><td>写メ</td><td><p>%s</p>%s</td><td>%s</td></tr>`,
		date, cast, title, preview, link,
	)
}

func headerRow() string {
	return "<tr><th>日付</th><th>キャスト</th></tr>"
}
