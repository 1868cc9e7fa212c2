package heaven

import (
	"context"
	"errors"
	"fmt"
	"time"

	scraper "heavenwatch-backend/lib/scrapers/heaven"
	"heavenwatch-backend/lib/timezone"
	"heavenwatch-backend/services/keychain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/heaven")

// ErrBadRequest marks failures caused by the caller's input rather
// than by the portal or this service.
var ErrBadRequest = errors.New("bad request")

type Options struct {
	// portal base url, empty means the production portal
	BaseUrl string
}

// Service fronts the portal scraper with explicit request/result
// types. Every call builds a fresh scraper client with its own cookie
// jar, so requests for different accounts never share portal state.
type Service struct {
	keychain keychain.Service
	options  Options
}

func NewService(kc keychain.Service, options Options) Service {
	return Service{
		keychain: kc,
		options:  options,
	}
}

func (s Service) clientOptions() scraper.ClientOptions {
	return scraper.ClientOptions{BaseUrl: s.options.BaseUrl}
}

type LoginRequest struct {
	HeavenId   string
	HeavenPass string
	// when set and HeavenPass is empty, credentials are loaded from
	// the keychain instead
	Shopdir string
}

type LoginResult struct {
	SessionId    string
	ExtraCookies map[string]string
}

func (s Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	accountId := req.HeavenId
	password := req.HeavenPass
	if password == "" && req.Shopdir != "" {
		stored, err := s.keychain.GetCredentials(ctx, req.Shopdir)
		if err != nil {
			span.SetStatus(codes.Error, "no stored credentials")
			return LoginResult{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		accountId = stored.AccountId
		password = stored.Password
	}
	if accountId == "" || password == "" {
		span.SetStatus(codes.Error, "missing credentials")
		return LoginResult{}, fmt.Errorf("%w: heaven_id and heaven_pass are required", ErrBadRequest)
	}

	client, err := scraper.NewClient(s.clientOptions())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to construct portal client")
		return LoginResult{}, err
	}
	session, err := client.Login(ctx, accountId, password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return LoginResult{}, err
	}

	return LoginResult{
		SessionId:    session.Token,
		ExtraCookies: session.Extra,
	}, nil
}

type CountRequest struct {
	SessionId    string
	Shopdir      string
	ExtraCookies map[string]string
}

type CountResult struct {
	TotalToday int
	ByCast     map[string]int
}

func (s Service) DiaryCount(ctx context.Context, req CountRequest) (CountResult, error) {
	ctx, span := tracer.Start(ctx, "DiaryCount")
	defer span.End()
	span.SetAttributes(attribute.String("shopdir", req.Shopdir))

	client, err := s.sessionClient(req.SessionId, req.Shopdir, req.ExtraCookies)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return CountResult{}, err
	}
	counts, err := client.DiaryCounts(ctx, req.Shopdir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "diary count crawl failed")
		return CountResult{}, err
	}

	return CountResult{
		TotalToday: counts.TotalToday,
		ByCast:     counts.ByCast,
	}, nil
}

type HourlyRequest struct {
	SessionId    string
	Shopdir      string
	FromDate     string
	ToDate       string
	ExtraCookies map[string]string
}

type HourlyResult struct {
	ByHour      map[string]map[int]int
	TotalByHour map[int]int
	Diaries     []scraper.Entry
}

func (s Service) DiaryHourly(ctx context.Context, req HourlyRequest) (HourlyResult, error) {
	ctx, span := tracer.Start(ctx, "DiaryHourly")
	defer span.End()
	span.SetAttributes(attribute.String("shopdir", req.Shopdir))

	dates, err := parseDateRange(req.FromDate, req.ToDate)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return HourlyResult{}, err
	}
	client, err := s.sessionClient(req.SessionId, req.Shopdir, req.ExtraCookies)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return HourlyResult{}, err
	}
	hourly, err := client.DiaryHourly(ctx, req.Shopdir, dates)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "diary hourly crawl failed")
		return HourlyResult{}, err
	}

	return HourlyResult{
		ByHour:      hourly.ByHour,
		TotalByHour: hourly.TotalByHour,
		Diaries:     hourly.Diaries,
	}, nil
}

func (s Service) sessionClient(sessionId, shopdir string, extra map[string]string) (*scraper.Client, error) {
	if sessionId == "" {
		return nil, fmt.Errorf("%w: session_id is required", ErrBadRequest)
	}
	if shopdir == "" {
		return nil, fmt.Errorf("%w: shopdir is required", ErrBadRequest)
	}
	return scraper.NewSessionClient(s.clientOptions(), scraper.Session{
		Token: sessionId,
		Extra: extra,
	})
}

const dateFormat = "2006-01-02"

// parseDateRange reads inclusive YYYY-MM-DD bounds in the portal's
// timezone. Both empty means today; a single bound is rejected.
func parseDateRange(from, to string) (scraper.DateRange, error) {
	if from == "" && to == "" {
		return scraper.DateRange{}, nil
	}
	if from == "" || to == "" {
		return scraper.DateRange{}, fmt.Errorf("%w: from_date and to_date must be provided together", ErrBadRequest)
	}

	fromDay, err := time.ParseInLocation(dateFormat, from, timezone.Location)
	if err != nil {
		return scraper.DateRange{}, fmt.Errorf("%w: invalid from_date %q", ErrBadRequest, from)
	}
	toDay, err := time.ParseInLocation(dateFormat, to, timezone.Location)
	if err != nil {
		return scraper.DateRange{}, fmt.Errorf("%w: invalid to_date %q", ErrBadRequest, to)
	}
	if toDay.Before(fromDay) {
		return scraper.DateRange{}, fmt.Errorf("%w: to_date precedes from_date", ErrBadRequest)
	}

	return scraper.DateRange{From: fromDay, To: toDay}, nil
}

type SetCredentialsRequest struct {
	Shopdir    string
	HeavenId   string
	HeavenPass string
}

func (s Service) SetCredentials(ctx context.Context, req SetCredentialsRequest) error {
	if req.Shopdir == "" || req.HeavenId == "" || req.HeavenPass == "" {
		return fmt.Errorf("%w: shopdir, heaven_id and heaven_pass are required", ErrBadRequest)
	}
	return s.keychain.SetCredentials(ctx, req.Shopdir, keychain.Credentials{
		AccountId: req.HeavenId,
		Password:  req.HeavenPass,
	})
}

func (s Service) CredentialsStatus(ctx context.Context, shopdir string) (bool, error) {
	if shopdir == "" {
		return false, fmt.Errorf("%w: shopdir is required", ErrBadRequest)
	}
	return s.keychain.HasCredentials(ctx, shopdir)
}
