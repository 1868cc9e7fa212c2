package heaven

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"heavenwatch-backend/lib/htmlutil"
	"heavenwatch-backend/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// the portal renders 30 rows per full listing page; a shorter page
// signals the last one
const listPageSize = 30

// NoHour marks an entry whose date label had no parsable HH:MM part.
// Such entries still appear in the raw entry list but are excluded
// from the hourly buckets.
const NoHour = -1

// Entry is one diary post row, possibly enriched from its detail page.
// Optional fields stay at their zero value when absent.
type Entry struct {
	Date        string
	Cast        string
	Hour        int
	Title       string
	BodyPreview string
	DetailUrl   string
	Body        string
	MainImage   string
	Images      []string
}

// DateRange is an inclusive range of calendar days. The zero value
// means "today" in the portal's timezone.
type DateRange struct {
	From time.Time
	To   time.Time
}

// dayLabel renders a day the way the portal prints it, e.g. "08月15日".
func dayLabel(t time.Time) string {
	return fmt.Sprintf("%02d月%02d日", int(t.Month()), t.Day())
}

// Labels expands the range into the portal's native day-label strings,
// one per day, which are substring-matched against row date text.
func (r DateRange) Labels() []string {
	if r.From.IsZero() || r.To.IsZero() {
		return []string{dayLabel(timezone.Now())}
	}

	var labels []string
	for day := r.From; !day.After(r.To); day = day.AddDate(0, 0, 1) {
		labels = append(labels, dayLabel(day))
	}
	return labels
}

type CountResult struct {
	TotalToday int
	ByCast     map[string]int
}

type HourlyResult struct {
	ByHour      map[string]map[int]int
	TotalByHour map[int]int
	Diaries     []Entry
}

// DiaryCounts tallies today's diary posts per cast without touching
// detail pages.
func (c *Client) DiaryCounts(ctx context.Context, shopdir string) (CountResult, error) {
	ctx, span := tracer.Start(ctx, "client:DiaryCounts")
	defer span.End()

	entries, err := c.crawlDiaryList(ctx, shopdir, DateRange{}.Labels(), false)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return CountResult{}, err
	}

	span.SetAttributes(attribute.Int("matched_rows", len(entries)))
	return aggregateCounts(entries), nil
}

// DiaryHourly crawls the given date range (default today) with detail
// enrichment and buckets posts per cast per hour.
func (c *Client) DiaryHourly(ctx context.Context, shopdir string, dates DateRange) (HourlyResult, error) {
	ctx, span := tracer.Start(ctx, "client:DiaryHourly")
	defer span.End()

	entries, err := c.crawlDiaryList(ctx, shopdir, dates.Labels(), true)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return HourlyResult{}, err
	}

	span.SetAttributes(attribute.Int("matched_rows", len(entries)))
	return aggregateHourly(entries), nil
}

// crawlDiaryList walks the listing pages from offset 1 upward and
// collects every row matching the label set. It advances to the next
// offset only while a page produced at least one match, at least one
// countable hour, and a full 30 rows; anything less is taken as the
// last page. The portal gives no explicit end-of-data marker, so this
// heuristic trades a small risk of stopping early for robustness
// against layout changes.
func (c *Client) crawlDiaryList(ctx context.Context, shopdir string, labels []string, detail bool) ([]Entry, error) {
	err := c.warm(ctx, shopdir)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for start := 1; ; start++ {
		doc, err := c.fetchDiaryPage(ctx, shopdir, start)
		if err != nil {
			return nil, err
		}

		// the first table is navigation chrome; the listing is the second
		tables := doc.Find("table")
		if tables.Length() < 2 {
			break
		}
		tbody := tables.Eq(1).Find("tbody").First()
		if tbody.Length() == 0 {
			break
		}
		rows := tbody.Find("tr")

		matchedAny := false
		countedAny := false
		rows.Each(func(_ int, row *goquery.Selection) {
			entry, ok := parseDiaryRow(c.baseUrl, row, labels, detail)
			if !ok {
				return
			}
			matchedAny = true
			if entry.Hour != NoHour {
				countedAny = true
			}
			if detail && entry.DetailUrl != "" {
				c.enrichEntry(ctx, &entry)
			}
			entries = append(entries, entry)
		})

		if !matchedAny || !countedAny || rows.Length() < listPageSize {
			break
		}
	}

	return entries, nil
}

// fetchDiaryPage requests one listing page. The offset parameter is
// omitted on page 1, matching the link the portal itself serves.
func (c *Client) fetchDiaryPage(ctx context.Context, shopdir string, start int) (*goquery.Document, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("shopdir", shopdir)
	if start > 1 {
		req.SetQueryParam("start", strconv.Itoa(start))
	}

	res, err := req.Get(diaryListPath)
	if err != nil {
		return nil, fmt.Errorf("%w: diary list page %d: %s", ErrConnection, start, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("%w: diary list page %d: %s", ErrUnexpectedResponse, start, err)
	}
	return doc, nil
}

// minimum cell counts below which a row is taken for a header or
// decoration row and skipped
const (
	minCellsCount  = 3
	minCellsDetail = 6
)

// parseDiaryRow extracts one listing row. It reports false for rows
// that should be skipped (too few cells) or that fall outside the
// label set. Cell layout: [1] date label, [2] cast name, [4] title +
// preview, [5] edit link.
func parseDiaryRow(base *url.URL, row *goquery.Selection, labels []string, detail bool) (Entry, bool) {
	minCells := minCellsCount
	if detail {
		minCells = minCellsDetail
	}

	cells := row.Find("td, th")
	if cells.Length() < minCells {
		return Entry{}, false
	}

	dateText := htmlutil.CompactText(cells.Eq(1))
	if !matchesAnyLabel(dateText, labels) {
		return Entry{}, false
	}

	entry := Entry{
		Date: dateText,
		Cast: htmlutil.CompactText(cells.Eq(2)),
		Hour: hourFromDateLabel(dateText),
	}

	if detail {
		diaryCell := cells.Eq(4)
		entry.Title = htmlutil.CompactText(diaryCell.Find("p").First())
		entry.BodyPreview = htmlutil.LineText(diaryCell)

		href, ok := cells.Eq(5).Find("a[href]").First().Attr("href")
		if ok && href != "" {
			entry.DetailUrl = htmlutil.ResolveRef(base, href)
		}
	}

	return entry, true
}

func matchesAnyLabel(dateText string, labels []string) bool {
	for _, label := range labels {
		if strings.Contains(dateText, label) {
			return true
		}
	}
	return false
}

// hourFromDateLabel parses the hour out of a label like
// "08月15日 14:03", i.e. the HH of the second whitespace-separated
// token. Returns NoHour when that fails for any reason.
func hourFromDateLabel(dateText string) int {
	fields := strings.Fields(dateText)
	if len(fields) < 2 {
		return NoHour
	}
	hourPart, _, _ := strings.Cut(fields[1], ":")
	hour, err := strconv.Atoi(hourPart)
	if err != nil || hour < 0 || hour > 23 {
		slog.Debug("diary row has no parsable hour", "date_text", dateText)
		return NoHour
	}
	return hour
}

// aggregateCounts is a pure fold of matched entries into the
// count-only result.
func aggregateCounts(entries []Entry) CountResult {
	out := CountResult{
		TotalToday: len(entries),
		ByCast:     map[string]int{},
	}
	for _, entry := range entries {
		out.ByCast[entry.Cast]++
	}
	return out
}

// aggregateHourly is a pure fold of matched entries into hourly
// buckets. Entries without a parsable hour stay in Diaries but
// contribute to no bucket.
func aggregateHourly(entries []Entry) HourlyResult {
	out := HourlyResult{
		ByHour:      map[string]map[int]int{},
		TotalByHour: map[int]int{},
		Diaries:     entries,
	}
	for _, entry := range entries {
		if entry.Hour == NoHour {
			continue
		}
		byCast := out.ByHour[entry.Cast]
		if byCast == nil {
			byCast = map[int]int{}
			out.ByHour[entry.Cast] = byCast
		}
		byCast[entry.Hour]++
		out.TotalByHour[entry.Hour]++
	}
	return out
}
