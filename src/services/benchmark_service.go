// backend/src/services/benchmark_service.go
package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/fundfolio/backend/src/config"
	"github.com/username/fundfolio/backend/src/logger"
	"github.com/username/fundfolio/backend/src/models"
	"github.com/username/fundfolio/backend/src/utils"
	"golang.org/x/net/publicsuffix"
)

const ckBenchmarkReturns = "res_benchmark_monthly_returns"

const benchmarkUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency string `json:"currency"`
				Symbol   string `json:"symbol"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

type benchmarkServiceImpl struct {
	httpClient      http.Client
	settingsService SettingsService
	reportCache     *cache.Cache
	isInitialized   bool
	mu              sync.Mutex
}

func NewBenchmarkService(settingsService SettingsService, reportCache *cache.Cache) BenchmarkService {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}

	client := http.Client{
		Jar:     jar,
		Timeout: config.Cfg.BenchmarkTimeout,
	}

	return &benchmarkServiceImpl{
		httpClient:      client,
		settingsService: settingsService,
		reportCache:     reportCache,
	}
}

// initializeSession warms the cookie jar. Yahoo rejects chart requests from
// clients that never visited the site.
func (s *benchmarkServiceImpl) initializeSession() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isInitialized {
		return
	}

	logger.L.Info("Initializing benchmark feed session...")
	for _, target := range []string{"https://fc.yahoo.com", "https://finance.yahoo.com"} {
		req, _ := http.NewRequest("GET", target, nil)
		req.Header.Set("User-Agent", benchmarkUserAgent)
		resp, err := s.httpClient.Do(req)
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	}
	s.isInitialized = true
}

// MonthlyReturns returns the index's month-over-month percentage changes
// with a compounded cumulative series, keyed "YYYY-MM". The feed is
// best-effort: when the comparison toggle is off, or the fetch fails, an
// empty series is returned and the caller degrades gracefully.
func (s *benchmarkServiceImpl) MonthlyReturns() ([]models.BenchmarkPoint, error) {
	settings, err := s.settingsService.GetGlobal()
	if err != nil {
		return nil, err
	}
	if !settings.EnableSP500Comparison {
		return []models.BenchmarkPoint{}, nil
	}

	if cached, found := s.reportCache.Get(ckBenchmarkReturns); found {
		return cached.([]models.BenchmarkPoint), nil
	}

	closes, err := s.fetchMonthlyCloses()
	if err != nil {
		logger.L.Warn("Benchmark feed unavailable, returning empty series", "symbol", config.Cfg.BenchmarkSymbol, "error", err)
		return []models.BenchmarkPoint{}, nil
	}

	points := monthlyPctChanges(closes)
	s.reportCache.Set(ckBenchmarkReturns, points, DefaultCacheExpiration)
	return points, nil
}

type monthlyClose struct {
	month string
	close float64
}

func (s *benchmarkServiceImpl) fetchMonthlyCloses() ([]monthlyClose, error) {
	s.initializeSession()

	chartURL := fmt.Sprintf("https://query1.finance.yahoo.com/v8/finance/chart/%s?interval=1mo&range=%s",
		url.PathEscape(config.Cfg.BenchmarkSymbol), url.QueryEscape(config.Cfg.BenchmarkLookback))
	req, err := http.NewRequest("GET", chartURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", benchmarkUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call chart API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		s.mu.Lock()
		s.isInitialized = false
		s.mu.Unlock()
		return nil, fmt.Errorf("status 401 (Unauthorized) - session stale")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart API returned non-OK status %d", resp.StatusCode)
	}

	var data yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode chart response: %w", err)
	}
	if data.Chart.Error != nil {
		return nil, fmt.Errorf("chart API returned an error: %v", data.Chart.Error)
	}
	if len(data.Chart.Result) == 0 || len(data.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote data found")
	}

	result := data.Chart.Result[0]
	timestamps := result.Timestamp
	quotes := result.Indicators.Quote[0].Close
	if len(timestamps) != len(quotes) {
		return nil, fmt.Errorf("data mismatch: %d timestamps, %d closes", len(timestamps), len(quotes))
	}

	var closes []monthlyClose
	for i, ts := range timestamps {
		if quotes[i] == 0 {
			continue
		}
		month := time.Unix(ts, 0).UTC().Format("2006-01")
		// Keep the last close seen for a month; the trailing data point
		// lands in the current, still-open month.
		if len(closes) > 0 && closes[len(closes)-1].month == month {
			closes[len(closes)-1].close = quotes[i]
			continue
		}
		closes = append(closes, monthlyClose{month: month, close: quotes[i]})
	}
	return closes, nil
}

func monthlyPctChanges(closes []monthlyClose) []models.BenchmarkPoint {
	points := []models.BenchmarkPoint{}
	growth := 1.0
	for i := 1; i < len(closes); i++ {
		pct := utils.SafePct(closes[i].close-closes[i-1].close, closes[i-1].close)
		growth *= 1 + pct/100
		points = append(points, models.BenchmarkPoint{
			Month:            closes[i].month,
			ReturnPct:        utils.RoundFloat(pct, 2),
			CumulativeReturn: utils.RoundFloat((growth-1)*100, 2),
		})
	}
	return points
}
