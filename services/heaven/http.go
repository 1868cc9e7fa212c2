package heaven

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	scraper "heavenwatch-backend/lib/scrapers/heaven"
)

type loginRequest struct {
	HeavenId   string `json:"heaven_id"`
	HeavenPass string `json:"heaven_pass"`
	Shopdir    string `json:"shopdir,omitempty"`
}

type loginResponse struct {
	Ok           bool              `json:"ok"`
	SessionId    string            `json:"session_id"`
	ExtraCookies map[string]string `json:"extra_cookies"`
}

type countRequest struct {
	SessionId    string            `json:"session_id"`
	Shopdir      string            `json:"shopdir"`
	ExtraCookies map[string]string `json:"extra_cookies,omitempty"`
}

type countResponse struct {
	Ok         bool           `json:"ok"`
	TotalToday int            `json:"total_today"`
	ByCast     map[string]int `json:"by_cast"`
}

type hourlyRequest struct {
	SessionId    string            `json:"session_id"`
	Shopdir      string            `json:"shopdir"`
	FromDate     string            `json:"from_date,omitempty"`
	ToDate       string            `json:"to_date,omitempty"`
	ExtraCookies map[string]string `json:"extra_cookies,omitempty"`
}

type diaryEntry struct {
	Date        string   `json:"date"`
	Cast        string   `json:"cast"`
	Hour        *int     `json:"hour"`
	Title       string   `json:"title"`
	BodyPreview string   `json:"body_preview"`
	DiaryUrl    *string  `json:"diary_url"`
	Body        *string  `json:"body"`
	MainImage   *string  `json:"main_image_url"`
	Images      []string `json:"image_urls"`
}

type hourlyResponse struct {
	Ok          bool                   `json:"ok"`
	ByHour      map[string]map[int]int `json:"by_hour"`
	TotalByHour map[int]int            `json:"total_by_hour"`
	Diaries     []diaryEntry           `json:"diaries"`
}

type credentialsRequest struct {
	Shopdir    string `json:"shopdir"`
	HeavenId   string `json:"heaven_id"`
	HeavenPass string `json:"heaven_pass"`
}

type errorResponse struct {
	Ok     bool   `json:"ok"`
	Detail string `json:"detail"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toDiaryEntry(e scraper.Entry) diaryEntry {
	out := diaryEntry{
		Date:        e.Date,
		Cast:        e.Cast,
		Title:       e.Title,
		BodyPreview: e.BodyPreview,
		DiaryUrl:    optional(e.DetailUrl),
		Body:        optional(e.Body),
		MainImage:   optional(e.MainImage),
		Images:      e.Images,
	}
	if e.Hour != scraper.NoHour {
		hour := e.Hour
		out.Hour = &hour
	}
	return out
}

func writeJson(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.Warn("failed to encode response", "err", err)
	}
}

// writeError reports a failed operation with its detail string.
// Caller mistakes are always a 400; every other failure gets
// failStatus, so the login handler can report any failure of the
// login exchange itself as an authentication error.
func writeError(w http.ResponseWriter, err error, failStatus int) {
	status := failStatus
	if errors.Is(err, ErrBadRequest) {
		status = http.StatusBadRequest
	}
	writeJson(w, status, errorResponse{Ok: false, Detail: err.Error()})
}

func decodeBody[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeJson(w, http.StatusBadRequest, errorResponse{
			Ok:     false,
			Detail: "invalid request body",
		})
		return req, false
	}
	return req, true
}

// RegisterHandlers mounts the service's endpoints on mux.
func RegisterHandlers(mux *http.ServeMux, service Service) {
	mux.HandleFunc("POST /api/heaven/login", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeBody[loginRequest](w, r)
		if !ok {
			return
		}
		result, err := service.Login(r.Context(), LoginRequest{
			HeavenId:   req.HeavenId,
			HeavenPass: req.HeavenPass,
			Shopdir:    req.Shopdir,
		})
		if err != nil {
			writeError(w, err, http.StatusUnauthorized)
			return
		}
		writeJson(w, http.StatusOK, loginResponse{
			Ok:           true,
			SessionId:    result.SessionId,
			ExtraCookies: result.ExtraCookies,
		})
	})

	mux.HandleFunc("POST /api/heaven/diary_count", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeBody[countRequest](w, r)
		if !ok {
			return
		}
		result, err := service.DiaryCount(r.Context(), CountRequest{
			SessionId:    req.SessionId,
			Shopdir:      req.Shopdir,
			ExtraCookies: req.ExtraCookies,
		})
		if err != nil {
			writeError(w, err, http.StatusBadRequest)
			return
		}
		writeJson(w, http.StatusOK, countResponse{
			Ok:         true,
			TotalToday: result.TotalToday,
			ByCast:     result.ByCast,
		})
	})

	mux.HandleFunc("POST /api/heaven/diary_hourly", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeBody[hourlyRequest](w, r)
		if !ok {
			return
		}
		result, err := service.DiaryHourly(r.Context(), HourlyRequest{
			SessionId:    req.SessionId,
			Shopdir:      req.Shopdir,
			FromDate:     req.FromDate,
			ToDate:       req.ToDate,
			ExtraCookies: req.ExtraCookies,
		})
		if err != nil {
			writeError(w, err, http.StatusBadRequest)
			return
		}
		diaries := make([]diaryEntry, 0, len(result.Diaries))
		for _, entry := range result.Diaries {
			diaries = append(diaries, toDiaryEntry(entry))
		}
		writeJson(w, http.StatusOK, hourlyResponse{
			Ok:          true,
			ByHour:      result.ByHour,
			TotalByHour: result.TotalByHour,
			Diaries:     diaries,
		})
	})

	mux.HandleFunc("POST /api/heaven/credentials", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeBody[credentialsRequest](w, r)
		if !ok {
			return
		}
		err := service.SetCredentials(r.Context(), SetCredentialsRequest{
			Shopdir:    req.Shopdir,
			HeavenId:   req.HeavenId,
			HeavenPass: req.HeavenPass,
		})
		if err != nil {
			writeError(w, err, http.StatusBadRequest)
			return
		}
		writeJson(w, http.StatusOK, map[string]bool{"ok": true})
	})

	mux.HandleFunc("GET /api/heaven/credentials/status", func(w http.ResponseWriter, r *http.Request) {
		provided, err := service.CredentialsStatus(r.Context(), r.URL.Query().Get("shopdir"))
		if err != nil {
			writeError(w, err, http.StatusBadRequest)
			return
		}
		writeJson(w, http.StatusOK, map[string]any{
			"ok":       true,
			"provided": provided,
		})
	})
}

// Cors allows any origin. The server sits behind operator tooling and
// dashboards on arbitrary hosts, matching the original deployment.
func Cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
