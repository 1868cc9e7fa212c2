package heaven

import (
	"context"
	"testing"
	"time"

	scraper "heavenwatch-backend/lib/scrapers/heaven"
	"heavenwatch-backend/lib/timezone"
	"heavenwatch-backend/services/keychain"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestLoginAndCount(t *testing.T) {
	portal := newFixturePortal(t)
	portal.listPages = []string{listPage(
		countRow(todayAt(10), "あい"),
		countRow(todayAt(10), "みく"),
		countRow(todayAt(12), "あい"),
	)}
	service := setup(t, portal)
	ctx := context.Background()

	login, err := service.Login(ctx, LoginRequest{
		HeavenId:   "shop-admin",
		HeavenPass: "hunter2",
	})
	require.NoError(t, err)
	require.Equal(t, "S1", login.SessionId)

	counts, err := service.DiaryCount(ctx, CountRequest{
		SessionId: login.SessionId,
		Shopdir:   "testshop",
	})
	require.NoError(t, err)
	require.Equal(t, 3, counts.TotalToday)
	require.Empty(t, cmp.Diff(map[string]int{"あい": 2, "みく": 1}, counts.ByCast))
}

func TestLoginRejected(t *testing.T) {
	portal := newFixturePortal(t)
	service := setup(t, portal)

	_, err := service.Login(context.Background(), LoginRequest{
		HeavenId:   "shop-admin",
		HeavenPass: "wrong",
	})
	require.ErrorIs(t, err, scraper.ErrInvalidCredentials)
}

func TestLoginWithStoredCredentials(t *testing.T) {
	portal := newFixturePortal(t)
	service := setup(t, portal)
	ctx := context.Background()

	err := service.SetCredentials(ctx, SetCredentialsRequest{
		Shopdir:    "testshop",
		HeavenId:   "shop-admin",
		HeavenPass: "hunter2",
	})
	require.NoError(t, err)

	login, err := service.Login(ctx, LoginRequest{Shopdir: "testshop"})
	require.NoError(t, err)
	require.Equal(t, "S1", login.SessionId)

	provided, err := service.CredentialsStatus(ctx, "testshop")
	require.NoError(t, err)
	require.True(t, provided)
}

func TestLoginWithoutCredentials(t *testing.T) {
	portal := newFixturePortal(t)
	service := setup(t, portal)

	_, err := service.Login(context.Background(), LoginRequest{})
	require.ErrorIs(t, err, ErrBadRequest)

	_, err = service.Login(context.Background(), LoginRequest{Shopdir: "unknown"})
	require.ErrorIs(t, err, ErrBadRequest)
	require.ErrorContains(t, err, keychain.ErrNotFound.Error())
}

func TestDiaryHourlyRange(t *testing.T) {
	yesterday := timezone.Now().AddDate(0, 0, -1)
	portal := newFixturePortal(t)
	portal.listPages = []string{listPage(
		detailRow(dateAt(yesterday, 9), "あい", "おはよう"),
		detailRow(todayAt(9), "あい", "こんにちは"),
		detailRow(todayAt(21), "みく", "おやすみ"),
	)}
	service := setup(t, portal)

	result, err := service.DiaryHourly(context.Background(), HourlyRequest{
		SessionId: "S1",
		Shopdir:   "testshop",
		FromDate:  yesterday.Format("2006-01-02"),
		ToDate:    timezone.Now().Format("2006-01-02"),
	})
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(map[int]int{9: 2, 21: 1}, result.TotalByHour))
	require.Empty(t, cmp.Diff(map[string]map[int]int{
		"あい": {9: 2},
		"みく": {21: 1},
	}, result.ByHour))
	require.Len(t, result.Diaries, 3)
}

func TestDiaryRequestValidation(t *testing.T) {
	portal := newFixturePortal(t)
	service := setup(t, portal)
	ctx := context.Background()

	_, err := service.DiaryCount(ctx, CountRequest{Shopdir: "testshop"})
	require.ErrorIs(t, err, ErrBadRequest)

	_, err = service.DiaryCount(ctx, CountRequest{SessionId: "S1"})
	require.ErrorIs(t, err, ErrBadRequest)

	_, err = service.DiaryHourly(ctx, HourlyRequest{
		SessionId: "S1",
		Shopdir:   "testshop",
		FromDate:  "2026-08-30",
	})
	require.ErrorIs(t, err, ErrBadRequest)
}

func TestParseDateRange(t *testing.T) {
	empty, err := parseDateRange("", "")
	require.NoError(t, err)
	require.True(t, empty.From.IsZero())

	dates, err := parseDateRange("2026-08-30", "2026-09-01")
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 8, 30, 0, 0, 0, 0, timezone.Location), dates.From)
	require.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, timezone.Location), dates.To)

	_, err = parseDateRange("2026-09-01", "2026-08-30")
	require.ErrorIs(t, err, ErrBadRequest)

	_, err = parseDateRange("08/30", "2026-09-01")
	require.ErrorIs(t, err, ErrBadRequest)
}
