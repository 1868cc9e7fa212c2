package heaven

import (
	"context"
	"testing"

	"heavenwatch-backend/lib/timezone"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"
)

func TestDiaryHourlyWithDetails(t *testing.T) {
	portal := newFixturePortal(t)
	portal.listPages = []string{listPage(
		detailRow(todayAt(10), "みく", "朝", "本文A", "./A6Edit.php?no=1"),
		detailRow(todayAt(10), "みく", "昼", "本文B", "./A6Edit.php?no=2"),
		detailRow(todayAt(11), "ありす", "夜", "本文C", "./A6Edit.php?no=3"),
		detailRow(dayLabel(timezone.Now()), "ありす", "深夜", "本文D", ""),
	)}
	portal.detailPages["/A6Edit.php"] = `<html><body>
		<textarea name="body">今日は&amp;晴れ</textarea>
		<img src="/img/deco/star.gif">
		<img src="/img/girls/photo1.jpg">
		<img src="/img/common/logo.png">
		<img src="http://img.example/img/girls/photo2.jpg">
	</body></html>`

	result, err := portal.sessionClient().DiaryHourly(context.Background(), "testshop", DateRange{})
	require.NoError(t, err)

	require.Len(t, result.Diaries, 4)

	// hourless rows are listed but never bucketed
	total := 0
	for _, n := range result.TotalByHour {
		total += n
	}
	require.Equal(t, 3, total)
	require.Equal(t, 2, result.TotalByHour[10])
	require.Equal(t, 1, result.TotalByHour[11])
	require.Equal(t, map[int]int{10: 2}, result.ByHour["みく"])
	require.Equal(t, map[int]int{11: 1}, result.ByHour["ありす"])

	first := result.Diaries[0]
	require.Equal(t, "今日は&晴れ", first.Body)
	// the first cast photo wins over the deco image that precedes it
	require.Equal(t, portal.baseUrl()+"/img/girls/photo1.jpg", first.MainImage)
	require.Equal(t, []string{
		portal.baseUrl() + "/img/deco/star.gif",
		portal.baseUrl() + "/img/girls/photo1.jpg",
		"http://img.example/img/girls/photo2.jpg",
	}, first.Images)

	// the row without an edit link was never enriched
	last := result.Diaries[3]
	require.Empty(t, last.Body)
	require.Empty(t, last.MainImage)
	require.Empty(t, last.Images)
}

func TestDetailFailureIsAbsorbed(t *testing.T) {
	portal := newFixturePortal(t)
	portal.listPages = []string{listPage(
		detailRow(todayAt(10), "みく", "朝", "本文A", "./Missing.php?no=1"),
		detailRow(todayAt(11), "ありす", "昼", "本文B", "./A6Edit.php?no=2"),
	)}
	portal.detailPages["/A6Edit.php"] = `<html><body><textarea name="body">ok</textarea></body></html>`

	result, err := portal.sessionClient().DiaryHourly(context.Background(), "testshop", DateRange{})
	require.NoError(t, err)
	require.Len(t, result.Diaries, 2)

	require.Empty(t, result.Diaries[0].Body)
	require.Empty(t, result.Diaries[0].Images)
	require.Equal(t, "ok", result.Diaries[1].Body)

	// the broken detail page still counts toward the aggregate
	require.Equal(t, 1, result.TotalByHour[10])
	require.Equal(t, 1, result.TotalByHour[11])
}

func TestListPageErrorAbortsCrawl(t *testing.T) {
	c, err := NewSessionClient(ClientOptions{BaseUrl: "https://portal.example"}, Session{Token: "S1"})
	require.NoError(t, err)

	httpmock.ActivateNonDefault(c.http.GetClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://portal.example"+mainPath,
		httpmock.NewStringResponder(200, "<html></html>"))
	httpmock.RegisterResponder("GET", "https://portal.example"+castListPath,
		httpmock.NewStringResponder(200, "<html></html>"))
	httpmock.RegisterResponder("GET", "https://portal.example"+diaryListPath,
		httpmock.NewErrorResponder(context.DeadlineExceeded))

	_, err = c.DiaryCounts(context.Background(), "testshop")
	require.ErrorIs(t, err, ErrConnection)
}

func TestWarmupErrorAbortsCrawl(t *testing.T) {
	c, err := NewSessionClient(ClientOptions{BaseUrl: "https://portal.example"}, Session{Token: "S1"})
	require.NoError(t, err)

	httpmock.ActivateNonDefault(c.http.GetClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://portal.example"+mainPath,
		httpmock.NewErrorResponder(context.DeadlineExceeded))

	_, err = c.DiaryCounts(context.Background(), "testshop")
	require.ErrorIs(t, err, ErrConnection)
}
