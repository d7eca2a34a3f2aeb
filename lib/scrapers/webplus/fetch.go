// Package webplus fetches and parses notice list pages served by the
// WebPlus CMS that ZJU college sites run on.
package webplus

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"zjubulletin/lib/scrapers/webvpn"
	"zjubulletin/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/net/html/charset"
)

var tracer = otel.Tracer("scrapers/webplus")

type Fetcher struct {
	Http *resty.Client
	// session for gateway-proxied fetches, nil when unauthenticated
	Gateway *webvpn.Client

	Retries int
	// delay between attempts grows linearly: BackoffUnit × attempt
	BackoffUnit time.Duration
}

func NewFetcher(gateway *webvpn.Client) *Fetcher {
	client := resty.New()
	client.SetHeaders(webvpn.BrowserHeaders)
	client.SetTimeout(time.Second * 25)

	telemetry.InstrumentResty(client, "scrapers/webplus/http")

	return &Fetcher{
		Http:        client,
		Gateway:     gateway,
		Retries:     3,
		BackoffUnit: time.Second * 3,
	}
}

// MakePageURL derives the URL of page n of a listing:
// list.htm → list2.htm → list3.htm … page 1 is the list URL verbatim.
func MakePageURL(listURL string, page int) string {
	if page == 1 {
		return listURL
	}
	return strings.Replace(listURL, "/list.htm", fmt.Sprintf("/list%d.htm", page), 1)
}

// FetchPage retrieves one list page and returns its parsed document.
//
// Transient failures are retried up to Retries times and exhausting
// them returns (nil, nil): the caller keeps whatever it has and moves
// on. The two real error cases are webvpn.ErrSessionExpired (fetch via
// gateway landed on a login page, pointless to retry) and a list URL
// the gateway rewrite cannot parse (a configuration defect).
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string, viaGateway bool) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "fetcher:FetchPage")
	defer span.End()

	fetchURL := pageURL
	client := f.Http
	if viaGateway {
		if f.Gateway == nil {
			return nil, fmt.Errorf("gateway fetch requested without a session")
		}
		var err error
		fetchURL, err = f.Gateway.ProxyURL(pageURL)
		if err != nil {
			return nil, err
		}
		client = f.Gateway.Http
	}

	for attempt := 1; attempt <= f.Retries; attempt++ {
		res, err := client.R().
			SetContext(ctx).
			Get(fetchURL)
		if err == nil {
			if viaGateway && f.Gateway.IsLoginURL(finalURL(res)) {
				return nil, webvpn.ErrSessionExpired
			}
			doc, err := decodeDocument(res)
			if err == nil {
				return doc, nil
			}
			slog.WarnContext(ctx, "failed to decode page",
				"attempt", attempt, "retries", f.Retries, "url", fetchURL, "err", err)
		} else {
			slog.WarnContext(ctx, "failed to fetch page",
				"attempt", attempt, "retries", f.Retries, "url", fetchURL, "err", err)
		}

		if attempt < f.Retries {
			time.Sleep(f.BackoffUnit * time.Duration(attempt))
		}
	}

	return nil, nil
}

// decodeDocument parses the body using the encoding declared by the
// response (or sniffed from the bytes), falling back to utf-8. the
// older college sites still serve gb2312 here and there.
func decodeDocument(res *resty.Response) (*goquery.Document, error) {
	reader, err := charset.NewReader(
		bytes.NewReader(res.Body()),
		res.Header().Get("Content-Type"),
	)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(reader)
}

func finalURL(res *resty.Response) string {
	if res.RawResponse == nil || res.RawResponse.Request == nil {
		return ""
	}
	return res.RawResponse.Request.URL.String()
}
