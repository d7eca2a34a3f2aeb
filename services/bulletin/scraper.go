package bulletin

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"zjubulletin/lib/scrapers/webplus"
	"zjubulletin/lib/scrapers/webvpn"
	"zjubulletin/lib/timezone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("services/bulletin")

// shown to downstream consumers when an intranet college had to be
// served from its public fallback
const FallbackNote = "⚠️ WebVPN 不可用，当前显示公开新闻（非通知公告）"

type Scraper struct {
	Auth     AuthState
	Fetcher  *webplus.Fetcher
	Colleges []College

	PagesToFetch int
	// load courtesy, not a correctness mechanism
	PageDelay    time.Duration
	CollegeDelay time.Duration
}

func NewScraper(auth AuthState, colleges []College) *Scraper {
	return &Scraper{
		Auth:         auth,
		Fetcher:      webplus.NewFetcher(auth.Session),
		Colleges:     colleges,
		PagesToFetch: 2,
		PageDelay:    time.Second,
		CollegeDelay: time.Second * 2,
	}
}

// resolveSource picks the listing to fetch: the intranet pair when the
// college has one and the run is authenticated, the public pair
// otherwise. Pure, no I/O.
func resolveSource(c College, authenticated bool) (listURL, baseURL string, viaGateway bool) {
	if c.IntranetURL != "" && authenticated {
		return c.IntranetURL, c.IntranetBase, true
	}
	return c.ListURL, c.BaseURL, false
}

// ScrapeAll processes every configured college in order and always
// produces a result for each of them, items or not. The only error it
// surfaces is a malformed source URL discovered during the gateway
// rewrite, which is a defect in Colleges rather than a remote problem.
func (s *Scraper) ScrapeAll(ctx context.Context) (RunResult, error) {
	ctx, span := tracer.Start(ctx, "scraper:ScrapeAll")
	defer span.End()

	results := []CollegeResult{}
	for i, college := range s.Colleges {
		if i > 0 {
			time.Sleep(s.CollegeDelay)
		}
		result, err := s.scrapeCollege(ctx, college)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "college source misconfigured")
			return RunResult{}, err
		}
		results = append(results, result)
	}

	return RunResult{
		UpdatedAt: timezone.Stamp(timezone.Now()),
		Colleges:  results,
	}, nil
}

func (s *Scraper) scrapeCollege(ctx context.Context, college College) (CollegeResult, error) {
	ctx, span := tracer.Start(ctx, "scraper:scrapeCollege", trace.WithAttributes(
		attribute.String("college", college.Id),
	))
	defer span.End()

	listURL, baseURL, viaGateway := resolveSource(college, s.Auth.Authenticated())
	mode := "public"
	if viaGateway {
		mode = "intranet via webvpn"
	}
	slog.InfoContext(ctx, "scraping college", "name", college.Name, "mode", mode)

	allItems := []webplus.NoticeItem{}
	seen := map[string]bool{}

	for page := 1; page <= s.PagesToFetch; page++ {
		if page > 1 {
			time.Sleep(s.PageDelay)
		}

		pageURL := webplus.MakePageURL(listURL, page)
		doc, err := s.Fetcher.FetchPage(ctx, pageURL, viaGateway)
		if errors.Is(err, webvpn.ErrSessionExpired) {
			// no re-login mid-run: keep what we have and move on
			slog.WarnContext(ctx, "webvpn session expired, stopping pagination",
				"college", college.Id, "page", page)
			span.AddEvent("session expired")
			break
		}
		if err != nil {
			return CollegeResult{}, err
		}
		if doc == nil {
			slog.ErrorContext(ctx, "could not fetch page, stopping pagination",
				"college", college.Id, "url", pageURL)
			break
		}

		items := webplus.ParseItems(doc, baseURL)
		for _, item := range items {
			if seen[item.URL] {
				continue
			}
			seen[item.URL] = true
			allItems = append(allItems, item)
		}

		if len(items) == 0 {
			// end of the listing
			slog.InfoContext(ctx, "no items on page, stopping pagination",
				"college", college.Id, "page", page)
			break
		}
	}

	slog.InfoContext(ctx, "collected items", "college", college.Id, "count", len(allItems))

	result := CollegeResult{
		Id:        college.Id,
		Name:      college.Name,
		SourceURL: listURL,
		Items:     allItems,
	}
	if college.IntranetURL != "" && !viaGateway {
		result.Note = FallbackNote
	}
	return result, nil
}
