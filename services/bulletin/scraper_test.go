package bulletin

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"zjubulletin/lib/scrapers/webvpn"
	"zjubulletin/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func TestResolveSource(t *testing.T) {
	public := College{
		Id:      "sis",
		ListURL: "http://sis/list.htm",
		BaseURL: "http://sis",
	}
	intranet := College{
		Id:           "cs",
		ListURL:      "http://cs-public/list.htm",
		BaseURL:      "http://cs-public",
		IntranetURL:  "http://cs-intra/list.htm",
		IntranetBase: "http://cs-intra",
	}

	cases := []struct {
		name          string
		college       College
		authenticated bool
		expectURL     string
		expectBase    string
		expectGateway bool
	}{
		{"intranet authenticated", intranet, true, "http://cs-intra/list.htm", "http://cs-intra", true},
		{"intranet unauthenticated", intranet, false, "http://cs-public/list.htm", "http://cs-public", false},
		{"public authenticated", public, true, "http://sis/list.htm", "http://sis", false},
		{"public unauthenticated", public, false, "http://sis/list.htm", "http://sis", false},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			u, b, g := resolveSource(test.college, test.authenticated)
			require.Equal(t, test.expectURL, u)
			require.Equal(t, test.expectBase, b)
			require.Equal(t, test.expectGateway, g)
		})
	}
}

func TestAuthenticateSkippedWithoutCredentials(t *testing.T) {
	state := Authenticate(context.Background(), "", Credentials{})
	require.Equal(t, AuthSkipped, state.Status)
	require.Nil(t, state.Session)
	require.False(t, state.Authenticated())

	state = Authenticate(context.Background(), "", Credentials{Username: "only-user"})
	require.Equal(t, AuthSkipped, state.Status)
}

// serves WebPlus-shaped list pages with `count` unique articles per page
func listHandler(id string, counts map[string]int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, ok := counts[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "<html><body><ul>")
		for i := 0; i < count; i++ {
			fmt.Fprintf(w,
				`<li><a href="/2026/0213/c%sa%d/page.htm">%s 通知 %d</a><span>2026-02-13</span></li>`,
				id, i, id, i,
			)
		}
		fmt.Fprint(w, "</ul></body></html>")
	}
}

func newScraperForTest(auth AuthState, colleges []College) *Scraper {
	s := NewScraper(auth, colleges)
	s.Fetcher.BackoffUnit = 0
	s.PageDelay = 0
	s.CollegeDelay = 0
	return s
}

func TestScrapeAllPublicEndToEnd(t *testing.T) {
	defer telemetry.SetupForTesting("test:bulletin")()

	srvA := httptest.NewServer(listHandler("1001", map[string]int{
		"/12577/list.htm":  10,
		"/12577/list2.htm": 5,
	}))
	defer srvA.Close()
	srvB := httptest.NewServer(listHandler("2002", map[string]int{
		"/54005/list.htm":  3,
		"/54005/list2.htm": 2,
	}))
	defer srvB.Close()

	colleges := []College{
		{Id: "a", Name: "College A", ListURL: srvA.URL + "/12577/list.htm", BaseURL: srvA.URL},
		{Id: "b", Name: "College B", ListURL: srvB.URL + "/54005/list.htm", BaseURL: srvB.URL},
	}

	s := newScraperForTest(AuthState{Status: AuthSkipped}, colleges)
	result, err := s.ScrapeAll(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, result.UpdatedAt)
	require.Len(t, result.Colleges, 2)

	require.Equal(t, "a", result.Colleges[0].Id)
	require.Len(t, result.Colleges[0].Items, 15)
	require.Len(t, result.Colleges[1].Items, 5)

	for _, college := range result.Colleges {
		// no intranet source configured, so no fallback note
		require.Empty(t, college.Note)

		seen := map[string]bool{}
		for _, item := range college.Items {
			require.NotEmpty(t, item.Title)
			require.Equal(t, "2026-02-13", item.Date)
			require.False(t, seen[item.URL], "duplicate url %s", item.URL)
			seen[item.URL] = true
		}
	}
}

func TestScrapeCollegeCrossPageDedupe(t *testing.T) {
	// both pages serve the same 4 articles
	srv := httptest.NewServer(listHandler("3003", map[string]int{
		"/99/list.htm":  4,
		"/99/list2.htm": 4,
	}))
	defer srv.Close()

	colleges := []College{
		{Id: "c", Name: "College C", ListURL: srv.URL + "/99/list.htm", BaseURL: srv.URL},
	}
	s := newScraperForTest(AuthState{Status: AuthSkipped}, colleges)

	result, err := s.ScrapeAll(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Colleges[0].Items, 4)
}

func TestScrapeCollegeFetchFailureKeepsEmptyResult(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		conn.Close()
	}))
	defer srv.Close()

	colleges := []College{
		{Id: "down", Name: "Down College", ListURL: srv.URL + "/1/list.htm", BaseURL: srv.URL},
	}
	s := newScraperForTest(AuthState{Status: AuthSkipped}, colleges)

	result, err := s.ScrapeAll(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Colleges, 1)
	require.Empty(t, result.Colleges[0].Items)
	// 3 retry attempts on page 1, page 2 never requested
	require.Equal(t, int32(3), calls.Load())
}

func TestScrapeCollegeStopsAfterEmptyPage(t *testing.T) {
	requests := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests[r.URL.Path]++
		listHandler("4004", map[string]int{
			"/7/list.htm":  2,
			"/7/list2.htm": 0,
			"/7/list3.htm": 9,
		})(w, r)
	}))
	defer srv.Close()

	colleges := []College{
		{Id: "d", Name: "College D", ListURL: srv.URL + "/7/list.htm", BaseURL: srv.URL},
	}
	s := newScraperForTest(AuthState{Status: AuthSkipped}, colleges)
	s.PagesToFetch = 3

	result, err := s.ScrapeAll(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Colleges[0].Items, 2)
	require.Zero(t, requests["/7/list3.htm"])
}

func TestScrapeCollegeSessionExpiresMidRun(t *testing.T) {
	// gateway proxies page 1, then bounces page 2 to its own login page
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>login</body></html>`)
	})
	mux.HandleFunc("/http/cspo.zju.edu.cn/86671/list.htm",
		listHandler("6006", map[string]int{"/http/cspo.zju.edu.cn/86671/list.htm": 2}))
	mux.HandleFunc("/http/cspo.zju.edu.cn/86671/list2.htm", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})
	gatewaySrv := httptest.NewServer(mux)
	defer gatewaySrv.Close()

	publicSrv := httptest.NewServer(listHandler("7007", map[string]int{
		"/9/list.htm":  3,
		"/9/list2.htm": 0,
	}))
	defer publicSrv.Close()

	session, err := webvpn.NewClient(webvpn.ClientOptions{BaseURL: gatewaySrv.URL})
	require.NoError(t, err)

	colleges := []College{
		{
			Id:           "cs",
			Name:         "CS",
			ListURL:      "http://www.cs.zju.edu.cn/csen/xwdt_38564/list.htm",
			BaseURL:      "http://www.cs.zju.edu.cn",
			IntranetURL:  "http://cspo.zju.edu.cn/86671/list.htm",
			IntranetBase: "http://cspo.zju.edu.cn",
		},
		{Id: "pub", Name: "Public College", ListURL: publicSrv.URL + "/9/list.htm", BaseURL: publicSrv.URL},
	}

	s := newScraperForTest(AuthState{Status: AuthAuthenticated, Session: session}, colleges)
	result, err := s.ScrapeAll(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Colleges, 2)

	// page 1 items survive, pagination stopped, run was authenticated
	// so no fallback note
	cs := result.Colleges[0]
	require.Len(t, cs.Items, 2)
	require.Empty(t, cs.Note)
	require.Equal(t, "http://cspo.zju.edu.cn/86671/list.htm", cs.SourceURL)

	// the expired session must not abort the rest of the run
	require.Len(t, result.Colleges[1].Items, 3)
}

func TestScrapeCollegeFallbackNote(t *testing.T) {
	srv := httptest.NewServer(listHandler("5005", map[string]int{
		"/8/list.htm":  1,
		"/8/list2.htm": 0,
	}))
	defer srv.Close()

	colleges := []College{
		{
			Id:           "cs",
			Name:         "CS",
			ListURL:      srv.URL + "/8/list.htm",
			BaseURL:      srv.URL,
			IntranetURL:  "http://cspo.zju.edu.cn/86671/list.htm",
			IntranetBase: "http://cspo.zju.edu.cn",
		},
	}

	for _, status := range []AuthStatus{AuthSkipped, AuthFailed} {
		s := newScraperForTest(AuthState{Status: status}, colleges)
		result, err := s.ScrapeAll(context.Background())
		require.NoError(t, err)
		require.Equal(t, FallbackNote, result.Colleges[0].Note)
		require.Equal(t, srv.URL+"/8/list.htm", result.Colleges[0].SourceURL)
		require.Len(t, result.Colleges[0].Items, 1)
	}
}
