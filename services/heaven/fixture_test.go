package heaven

import (
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"heavenwatch-backend/lib/telemetry"
	"heavenwatch-backend/lib/timezone"
	"heavenwatch-backend/services/keychain"
	"heavenwatch-backend/services/keychain/db"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// fixturePortal fakes the portal endpoints the service reaches through
// the scraper: login, the warm-up pages and the diary listing.
type fixturePortal struct {
	t         *testing.T
	accountId string
	password  string
	listPages []string
	server    *httptest.Server
}

func newFixturePortal(t *testing.T) *fixturePortal {
	p := &fixturePortal{
		t:         t,
		accountId: "shop-admin",
		password:  "hunter2",
	}
	p.server = httptest.NewServer(http.HandlerFunc(p.handle))
	t.Cleanup(p.server.Close)
	return p
}

func (p *fixturePortal) handle(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/C1Login.php":
		if err := r.ParseForm(); err != nil {
			p.t.Error(err)
		}
		if r.FormValue("txt_account") != p.accountId || r.FormValue("txt_password") != p.password {
			fmt.Fprint(w, "<html><body>IDまたはパスワードが違います</body></html>")
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: "S1", Path: "/"})
		http.Redirect(w, r, "/C1Main.php", http.StatusFound)
	case "/C1Main.php", "/C2GirlList.php":
		fmt.Fprint(w, "<html><body>ok</body></html>")
	case "/C8KeitaiDiaryList.php":
		start := 1
		if s := r.URL.Query().Get("start"); s != "" {
			var err error
			start, err = strconv.Atoi(s)
			if err != nil {
				p.t.Errorf("bad start parameter %q", s)
			}
		}
		if start-1 < len(p.listPages) {
			fmt.Fprint(w, p.listPages[start-1])
			return
		}
		fmt.Fprint(w, "<html><body><table><tr><td>nav</td></tr></table></body></html>")
	default:
		http.NotFound(w, r)
	}
}

func listPage(rows ...string) string {
	page := "<html><body><table><tr><td>nav</td></tr></table><table><tbody>"
	for _, row := range rows {
		page += row
	}
	return page + "</tbody></table></body></html>"
}

func countRow(date, cast string) string {
	return fmt.Sprintf("<tr><td>1</td><td>%s</td><td>%s</td></tr>", date, cast)
}

func detailRow(date, cast, title string) string {
	return fmt.Sprintf(
		"<tr><td>1</td><td>%s</td><td>%s</td><td>写メ</td><td><p>%s</p></td><td></td></tr>",
		date, cast, title,
	)
}

func todayAt(hour int) string {
	now := timezone.Now()
	return fmt.Sprintf("%02d月%02d日 %02d:15", int(now.Month()), now.Day(), hour)
}

func dateAt(day time.Time, hour int) string {
	return fmt.Sprintf("%02d月%02d日 %02d:15", int(day.Month()), day.Day(), hour)
}

func setup(t *testing.T, portal *fixturePortal) Service {
	cleanup := telemetry.SetupForTesting(t, "test:services/heaven")
	t.Cleanup(cleanup)

	sqlite, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	_, err = sqlite.Exec(db.Schema)
	require.NoError(t, err)

	key, err := keychain.ParseKey("")
	require.NoError(t, err)

	return NewService(
		keychain.NewService(sqlite, key),
		Options{BaseUrl: portal.server.URL},
	)
}
