package data

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/lottosage/lottosage/internal/pkg/cache"
	"github.com/lottosage/lottosage/internal/pkg/config"
	"github.com/lottosage/lottosage/internal/pkg/models"
)

// fakeFetcher serves canned responses by URL and records every call.
type fakeFetcher struct {
	pages map[string][]byte
	err   error
	calls []string
}

func (f *fakeFetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	f.calls = append(f.calls, rawURL)
	if f.err != nil {
		return nil, f.err
	}
	page, ok := f.pages[rawURL]
	if !ok {
		return nil, fmt.Errorf("unexpected fetch: %s", rawURL)
	}
	return page, nil
}

func (f *fakeFetcher) callCount(substr string) int {
	n := 0
	for _, c := range f.calls {
		if strings.Contains(c, substr) {
			n++
		}
	}
	return n
}

const (
	testHistoryURL = "http://source/history.php"
	testLandingURL = "http://source/ssq/"
	testDetailURL  = "http://source/ssq/"
)

func testSources() map[string]config.SourceConfig {
	return map[string]config.SourceConfig{
		"ssq": {HistoryURL: testHistoryURL, LandingURL: testLandingURL, DetailURL: testDetailURL},
	}
}

func landingPage(latest string) []byte {
	return []byte(fmt.Sprintf(`<a href="/ssq/%s.shtml">第%s期</a>`, latest, latest))
}

// bulkPage renders one draw row per period. Row order doesn't matter;
// the parser sorts by period descending.
func bulkPage(periods ...string) []byte {
	var b strings.Builder
	b.WriteString(`<table id="tablelist"><tr><td>h</td></tr><tr><td>h</td></tr>`)
	for _, p := range periods {
		b.WriteString("<tr>")
		cells := []string{p, "01", "05", "09", "12", "20", "33", "07", "350,000,000", "x", "2023-09-07"}
		for _, c := range cells {
			b.WriteString("<td>" + c + "</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table>")
	return []byte(b.String())
}

func bulkURL(start, end string) string {
	return fmt.Sprintf("%s?start=%s&end=%s", testHistoryURL, start, end)
}

func newTestOrchestrator(t *testing.T, fetcher Fetcher) *Orchestrator {
	t.Helper()
	store, err := cache.NewFileStore(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	history, err := NewHistoryFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewHistoryFile() error = %v", err)
	}
	cfg := config.DataConfig{TTLHours: 24, Periods: 30, Window: 3}
	return NewOrchestrator(fetcher, store, history, cfg, testSources(),
		map[string]config.GameConfig{"ssq": {Name: "双色球", DrawTime: "21:15"}})
}

func seedHistory(t *testing.T, o *Orchestrator, updatedAt time.Time, periods ...string) {
	t.Helper()
	records := make([]models.DrawRecord, 0, len(periods))
	for _, p := range periods {
		rec, err := models.NewDrawRecord(models.GameSSQ, p, "2023-09-07", []int{1, 5, 9, 12, 20, 33}, []int{7}, 0, 0)
		if err != nil {
			t.Fatalf("NewDrawRecord(%s) error = %v", p, err)
		}
		records = append(records, rec)
	}
	h, err := models.NewRollingHistory(records, updatedAt)
	if err != nil {
		t.Fatalf("NewRollingHistory() error = %v", err)
	}
	if err := o.history.Save(models.GameSSQ, h); err != nil {
		t.Fatalf("history save error = %v", err)
	}
}

func TestUpdateToLatestSeedsEmptyHistory(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][]byte{
		testLandingURL:             landingPage("23102"),
		bulkURL("23102", "23102"): bulkPage("23102"),
	}}
	o := newTestOrchestrator(t, fetcher)

	h := o.UpdateToLatest(context.Background(), models.GameSSQ)
	if h.Len() != 1 || h.Head().Period != "23102" {
		t.Fatalf("UpdateToLatest() = len %d head %v, want 1 record 23102", h.Len(), h.Head())
	}

	// persisted
	if got := o.history.Load(models.GameSSQ); got.Len() != 1 {
		t.Errorf("history not persisted: len = %d", got.Len())
	}
}

func TestUpdateToLatestIdempotent(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][]byte{
		testLandingURL:             landingPage("23102"),
		bulkURL("23102", "23102"): bulkPage("23102"),
	}}
	o := newTestOrchestrator(t, fetcher)

	first := o.UpdateToLatest(context.Background(), models.GameSSQ)
	second := o.UpdateToLatest(context.Background(), models.GameSSQ)

	if second.Len() != first.Len() || second.Head().Period != first.Head().Period {
		t.Errorf("second update changed history: %v vs %v", second.Head(), first.Head())
	}
	// history endpoint hit only once; the second call stops at the landing page
	if n := fetcher.callCount("history.php"); n != 1 {
		t.Errorf("history endpoint fetched %d times, want 1", n)
	}
}

func TestUpdateToLatestEvictsAtWindow(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][]byte{
		testLandingURL:             landingPage("23103"),
		bulkURL("23103", "23103"): bulkPage("23103"),
	}}
	o := newTestOrchestrator(t, fetcher) // window = 3
	seedHistory(t, o, time.Now(), "23102", "23101", "23100")

	h := o.UpdateToLatest(context.Background(), models.GameSSQ)
	if h.Len() != 3 {
		t.Fatalf("Len() = %d, want window 3", h.Len())
	}
	if h.Head().Period != "23103" {
		t.Errorf("head = %s, want 23103", h.Head().Period)
	}
	if last := h.Data[2].Period; last != "23101" {
		t.Errorf("tail = %s, want 23101 (23100 evicted)", last)
	}
}

func TestUpdateToLatestKeepsPriorOnNetworkFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("connection refused")}
	o := newTestOrchestrator(t, fetcher)
	seedHistory(t, o, time.Now(), "23102", "23101")

	h := o.UpdateToLatest(context.Background(), models.GameSSQ)
	if h.Len() != 2 || h.Head().Period != "23102" {
		t.Errorf("UpdateToLatest() on failure = len %d head %v, want prior history", h.Len(), h.Head())
	}
}

func TestFetchDataServedFromFreshHistory(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("must not be called")}
	o := newTestOrchestrator(t, fetcher)
	seedHistory(t, o, time.Now(), "23102", "23101", "23100")

	records, err := o.FetchData(context.Background(), models.GameSSQ, 2)
	if err != nil {
		t.Fatalf("FetchData() error = %v", err)
	}
	if len(records) != 2 || records[0].Period != "23102" {
		t.Errorf("FetchData() = %d records head %s, want 2 head 23102", len(records), records[0].Period)
	}
}

func TestFetchDataStaleFallback(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("network down")}
	o := newTestOrchestrator(t, fetcher)
	// stale history: updated two days ago, TTL is 24h
	seedHistory(t, o, time.Now().Add(-48*time.Hour), "23102", "23101")

	records, err := o.FetchData(context.Background(), models.GameSSQ, 5)
	if err != nil {
		t.Fatalf("FetchData() with stale history error = %v, want degraded data", err)
	}
	if len(records) != 2 {
		t.Errorf("FetchData() = %d records, want the 2 stale ones", len(records))
	}
}

func TestFetchDataErrorWhenNothingAvailable(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("network down")}
	o := newTestOrchestrator(t, fetcher)

	if _, err := o.FetchData(context.Background(), models.GameSSQ, 5); err == nil {
		t.Error("FetchData() with no data and no network expected error")
	}
}

func TestFetchDataRejectsBadInput(t *testing.T) {
	o := newTestOrchestrator(t, &fakeFetcher{})
	if _, err := o.FetchData(context.Background(), models.GameType("nope"), 5); err == nil {
		t.Error("FetchData(unknown game) expected error")
	}
	if _, err := o.FetchData(context.Background(), models.GameSSQ, 0); err == nil {
		t.Error("FetchData(0 periods) expected error")
	}
}

func TestGetAnalysisDataExcludesLatestDraw(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("must not be called")}
	o := newTestOrchestrator(t, fetcher)
	seedHistory(t, o, time.Now(), "23110", "23109", "23108", "23107", "23106", "23105", "23104", "23103", "23102", "23101")

	records, err := o.GetAnalysisData(context.Background(), models.GameSSQ, 3)
	if err != nil {
		t.Fatalf("GetAnalysisData() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("GetAnalysisData() = %d records, want 3", len(records))
	}
	if records[0].Period == "23110" {
		t.Error("GetAnalysisData() includes the most recent draw")
	}
	want := []string{"23109", "23108", "23107"}
	for i, w := range want {
		if records[i].Period != w {
			t.Errorf("records[%d].Period = %s, want %s", i, records[i].Period, w)
		}
	}
}

func TestGetAnalysisDataShortHistory(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("network down")}
	o := newTestOrchestrator(t, fetcher)
	seedHistory(t, o, time.Now().Add(-48*time.Hour), "23102", "23101", "23100")

	records, err := o.GetAnalysisData(context.Background(), models.GameSSQ, 30)
	if err != nil {
		t.Fatalf("GetAnalysisData() error = %v", err)
	}
	// everything but the newest draw
	if len(records) != 2 || records[0].Period != "23101" {
		t.Errorf("GetAnalysisData() = %d records head %s, want 2 head 23101", len(records), records[0].Period)
	}
}

func TestInitializeData(t *testing.T) {
	latest := 23105
	fetcher := &fakeFetcher{pages: map[string][]byte{
		testLandingURL: landingPage(strconv.Itoa(latest)),
		bulkURL("23101", "23105"): bulkPage("23105", "23104", "23103", "23102", "23101"),
	}}
	o := newTestOrchestrator(t, fetcher)

	records, err := o.InitializeData(context.Background(), models.GameSSQ, 5)
	if err != nil {
		t.Fatalf("InitializeData() error = %v", err)
	}
	if len(records) != 5 || records[0].Period != "23105" {
		t.Errorf("InitializeData() = %d records head %s, want 5 head 23105", len(records), records[0].Period)
	}

	// a second call answers from the seeded history without fetching
	before := len(fetcher.calls)
	if _, err := o.InitializeData(context.Background(), models.GameSSQ, 5); err != nil {
		t.Fatalf("second InitializeData() error = %v", err)
	}
	if len(fetcher.calls) != before {
		t.Errorf("second InitializeData() hit the network: %v", fetcher.calls[before:])
	}
}

func TestFetchLatestUsesCacheFirst(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][]byte{
		testLandingURL:             landingPage("23102"),
		bulkURL("23102", "23102"): bulkPage("23102"),
	}}
	o := newTestOrchestrator(t, fetcher)

	first, err := o.FetchLatest(context.Background(), models.GameSSQ)
	if err != nil {
		t.Fatalf("FetchLatest() error = %v", err)
	}
	if first.Period != "23102" {
		t.Errorf("FetchLatest() period = %s, want 23102", first.Period)
	}

	before := len(fetcher.calls)
	second, err := o.FetchLatest(context.Background(), models.GameSSQ)
	if err != nil {
		t.Fatalf("cached FetchLatest() error = %v", err)
	}
	if second.Period != first.Period {
		t.Errorf("cached FetchLatest() = %s, want %s", second.Period, first.Period)
	}
	if len(fetcher.calls) != before {
		t.Errorf("cached FetchLatest() hit the network: %v", fetcher.calls[before:])
	}
}

func TestFetchLatestStaleFallback(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][]byte{
		testLandingURL:             landingPage("23102"),
		bulkURL("23102", "23102"): bulkPage("23102"),
	}}
	// zero TTL: every cache entry is already expired when read back
	store, err := cache.NewFileStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	history, err := NewHistoryFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewHistoryFile() error = %v", err)
	}
	o := NewOrchestrator(fetcher, store, history, config.DataConfig{Window: 3}, testSources(),
		map[string]config.GameConfig{"ssq": {Name: "双色球"}})

	if _, err := o.FetchLatest(context.Background(), models.GameSSQ); err != nil {
		t.Fatalf("FetchLatest() error = %v", err)
	}

	// network dies; the expired entry is all that's left
	fetcher.err = fmt.Errorf("network down")
	rec, err := o.FetchLatest(context.Background(), models.GameSSQ)
	if err != nil {
		t.Fatalf("FetchLatest() stale fallback error = %v", err)
	}
	if rec.Period != "23102" {
		t.Errorf("stale fallback period = %s, want 23102", rec.Period)
	}
}

func TestPreviousDrawInfo(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][]byte{
		testLandingURL:             landingPage("23102"),
		bulkURL("23102", "23102"): bulkPage("23102"),
	}}
	o := newTestOrchestrator(t, fetcher)

	info, err := o.PreviousDrawInfo(context.Background(), models.GameSSQ)
	if err != nil {
		t.Fatalf("PreviousDrawInfo() error = %v", err)
	}
	if info.GameName != "双色球" || info.Period != "23102" || info.DrawTime != "21:15" {
		t.Errorf("PreviousDrawInfo() = %+v", info)
	}
	if info.Numbers != "1 5 9 12 20 33 | 7" {
		t.Errorf("Numbers = %q", info.Numbers)
	}
}

func TestFetchSingle(t *testing.T) {
	detail := `<h2>开奖期 23102</h2>
	<span class="ball_red">02</span><span class="ball_red">08</span><span class="ball_red">15</span>
	<span class="ball_red">22</span><span class="ball_red">28</span><span class="ball_red">31</span>
	<span class="ball_blue">11</span>
	<p>本期全国销售金额：<b>3.50亿</b></p>`
	fetcher := &fakeFetcher{pages: map[string][]byte{
		testDetailURL + "23102.shtml": []byte(detail),
	}}
	o := newTestOrchestrator(t, fetcher)

	rec, err := o.FetchSingle(context.Background(), models.GameSSQ, "23102")
	if err != nil {
		t.Fatalf("FetchSingle() error = %v", err)
	}
	if rec.Period != "23102" || rec.SaleAmount != 350_000_000 {
		t.Errorf("FetchSingle() = %+v", rec)
	}
}

func TestHistoryFileCorruptIsAbsent(t *testing.T) {
	dir := t.TempDir()
	hf, err := NewHistoryFile(dir)
	if err != nil {
		t.Fatalf("NewHistoryFile() error = %v", err)
	}
	if err := os.WriteFile(hf.path(models.GameSSQ), []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	if h := hf.Load(models.GameSSQ); h != nil {
		t.Errorf("Load() corrupt history = %+v, want nil", h)
	}
}
