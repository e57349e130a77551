package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/louisbranch/cafes/internal/services/cafes/routepath"
	"github.com/louisbranch/cafes/internal/services/cafes/service"
	"github.com/louisbranch/cafes/internal/services/cafes/storage/sqlite"
)

const testAPIKey = "TopSecretAPIKey"

func TestAddThenAll(t *testing.T) {
	t.Parallel()

	mux := newTestMux(t)
	rr := postForm(mux, routepath.Add, url.Values{
		"name":  {"Joe's"},
		"map":   {"m"},
		"img":   {"i"},
		"loc":   {"Downtown"},
		"seats": {"10"},
		"price": {"$2"},
		"wifi":  {"y"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("add status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var addResp struct {
		Response map[string]string `json:"response"`
		Cafe     Cafe              `json:"cafe"`
	}
	decode(t, rr, &addResp)
	if addResp.Response["success"] != "A new Cafe was Created." {
		t.Fatalf("response = %v", addResp.Response)
	}
	if addResp.Cafe.ID == 0 || !addResp.Cafe.HasWifi || addResp.Cafe.HasToilet {
		t.Fatalf("cafe = %+v", addResp.Cafe)
	}

	rr = do(mux, http.MethodGet, routepath.All)
	if rr.Code != http.StatusOK {
		t.Fatalf("all status = %d", rr.Code)
	}
	var all struct {
		Cafes []map[string]any `json:"cafes"`
	}
	decode(t, rr, &all)
	if len(all.Cafes) != 1 {
		t.Fatalf("cafes = %d, want 1", len(all.Cafes))
	}
	got := all.Cafes[0]
	for _, key := range []string{"id", "name", "map_url", "img_url", "location", "seats", "has_toilet", "has_wifi", "has_sockets", "can_take_calls", "coffee_price"} {
		if _, ok := got[key]; !ok {
			t.Fatalf("missing key %q in %v", key, got)
		}
	}
	if got["coffee_price"] != "$2" || got["has_toilet"] != false {
		t.Fatalf("cafe = %v", got)
	}
}

func TestAllEmptyIsArray(t *testing.T) {
	t.Parallel()

	rr := do(newTestMux(t), http.MethodGet, routepath.All)
	if got := strings.TrimSpace(rr.Body.String()); got != `{"cafes":[]}` {
		t.Fatalf("body = %s", got)
	}
}

func TestAllFilter(t *testing.T) {
	t.Parallel()

	mux := newTestMux(t)
	addCafe(t, mux, "North", "Hackney")
	addCafe(t, mux, "South", "Peckham")

	rr := do(mux, http.MethodGet, routepath.All+"?filter="+url.QueryEscape(`location = "Hackney"`))
	var all struct {
		Cafes []Cafe `json:"cafes"`
	}
	decode(t, rr, &all)
	if len(all.Cafes) != 1 || all.Cafes[0].Name != "North" {
		t.Fatalf("cafes = %+v", all.Cafes)
	}

	rr = do(mux, http.MethodGet, routepath.All+"?filter="+url.QueryEscape(`owner = "x"`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid filter status = %d, want 400", rr.Code)
	}
}

func TestSearchOutcomes(t *testing.T) {
	t.Parallel()

	mux := newTestMux(t)
	addCafe(t, mux, "Found", "Downtown")

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "missing location",
			path:       routepath.Search,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":{"error_message":"There is no location provided."}}`,
		},
		{
			name:       "no match",
			path:       routepath.Search + "?loc=Nowhere",
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":{"error_message":"No Cafe in That location."}}`,
		},
	}
	for _, tc := range tests {
		rr := do(mux, http.MethodGet, tc.path)
		if rr.Code != tc.wantStatus {
			t.Fatalf("%s: status = %d, want %d", tc.name, rr.Code, tc.wantStatus)
		}
		if got := strings.TrimSpace(rr.Body.String()); got != tc.wantBody {
			t.Fatalf("%s: body = %s, want %s", tc.name, got, tc.wantBody)
		}
	}

	rr := do(mux, http.MethodGet, routepath.Search+"?loc=Downtown")
	var found struct {
		Cafe []Cafe `json:"cafe"`
	}
	decode(t, rr, &found)
	if len(found.Cafe) != 1 || found.Cafe[0].Name != "Found" {
		t.Fatalf("cafe = %+v", found.Cafe)
	}
}

func TestRandom(t *testing.T) {
	t.Parallel()

	mux := newTestMux(t)
	rr := do(mux, http.MethodGet, routepath.Random)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("empty random status = %d, want 404", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"No Cafe"`) {
		t.Fatalf("body = %s", rr.Body.String())
	}

	addCafe(t, mux, "Lucky", "Soho")
	rr = do(mux, http.MethodGet, routepath.Random)
	var resp struct {
		Cafe Cafe `json:"cafe"`
	}
	decode(t, rr, &resp)
	if resp.Cafe.Name != "Lucky" {
		t.Fatalf("cafe = %+v", resp.Cafe)
	}
}

func TestAddValidationAndDuplicate(t *testing.T) {
	t.Parallel()

	mux := newTestMux(t)
	rr := postForm(mux, routepath.Add, url.Values{"name": {"Half"}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("validation status = %d, want 400", rr.Code)
	}
	var invalid struct {
		Error struct {
			Fields map[string]string `json:"fields"`
		} `json:"error"`
	}
	decode(t, rr, &invalid)
	if _, ok := invalid.Error.Fields["map_url"]; !ok {
		t.Fatalf("fields = %v, want map_url", invalid.Error.Fields)
	}

	addCafe(t, mux, "Twice", "Soho")
	rr = postForm(mux, routepath.Add, cafeForm("Twice", "Soho"))
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", rr.Code)
	}
}

func TestUpdatePrice(t *testing.T) {
	t.Parallel()

	mux := newTestMux(t)
	id := addCafe(t, mux, "Pricey", "Soho")

	rr := do(mux, http.MethodPatch, routepath.CafeUpdatePrice(id)+"?new_price="+url.QueryEscape("$3"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Success string `json:"success"`
		Cafe    Cafe   `json:"cafe"`
	}
	decode(t, rr, &resp)
	if resp.Success != "Successfully updated the price" || resp.Cafe.CoffeePrice == nil || *resp.Cafe.CoffeePrice != "$3" {
		t.Fatalf("resp = %+v", resp)
	}

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantKey    string
	}{
		{"no price", routepath.CafeUpdatePrice(id), http.StatusBadRequest, `"No Price"`},
		{"unknown id", routepath.CafeUpdatePrice(id+10) + "?new_price=1", http.StatusNotFound, `"Not Found"`},
		{"bad id", "/update-price/abc?new_price=1", http.StatusBadRequest, `"error_message"`},
	}
	for _, tc := range tests {
		rr := do(mux, http.MethodPatch, tc.path)
		if rr.Code != tc.wantStatus {
			t.Fatalf("%s: status = %d, want %d", tc.name, rr.Code, tc.wantStatus)
		}
		if !strings.Contains(rr.Body.String(), tc.wantKey) {
			t.Fatalf("%s: body = %s", tc.name, rr.Body.String())
		}
	}
}

func TestReportClosed(t *testing.T) {
	t.Parallel()

	mux := newTestMux(t)
	id := addCafe(t, mux, "Closing", "Soho")

	rr := do(mux, http.MethodDelete, routepath.CafeReportClosed(id)+"?api_key=wrong")
	if rr.Code != http.StatusUnauthorized || !strings.Contains(rr.Body.String(), `"Not Allowed"`) {
		t.Fatalf("wrong key: status = %d, body = %s", rr.Code, rr.Body.String())
	}
	rr = do(mux, http.MethodGet, routepath.All)
	if !strings.Contains(rr.Body.String(), "Closing") {
		t.Fatal("cafe deleted despite wrong key")
	}

	rr = do(mux, http.MethodDelete, routepath.CafeReportClosed(id)+"?api_key="+testAPIKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"success":"Successfully Deleted."}` {
		t.Fatalf("body = %s", got)
	}

	rr = do(mux, http.MethodDelete, routepath.CafeReportClosed(id)+"?api_key="+testAPIKey)
	if rr.Code != http.StatusNotFound || !strings.Contains(rr.Body.String(), `"No Cafe"`) {
		t.Fatalf("second delete: status = %d, body = %s", rr.Code, rr.Body.String())
	}
}

func TestParseBool(t *testing.T) {
	t.Parallel()

	for _, value := range []string{"y", "YES", "on", "True", "1", " y "} {
		if !ParseBool(value) {
			t.Fatalf("ParseBool(%q) = false, want true", value)
		}
	}
	for _, value := range []string{"", "n", "no", "0", "false", "off", "maybe"} {
		if ParseBool(value) {
			t.Fatalf("ParseBool(%q) = true, want false", value)
		}
	}
}

func TestParseID(t *testing.T) {
	t.Parallel()

	if id, ok := ParseID("42"); !ok || id != 42 {
		t.Fatalf("ParseID(42) = %d, %v", id, ok)
	}
	for _, raw := range []string{"", "0", "-1", "abc", "1.5"} {
		if _, ok := ParseID(raw); ok {
			t.Fatalf("ParseID(%q) ok = true, want false", raw)
		}
	}
}

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()

	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "cafes.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	h := New(service.New(store, service.WithAPIKey(testAPIKey)))
	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc(http.MethodPost+" "+routepath.Add, h.HandleAdd)
	mux.HandleFunc(http.MethodGet+" "+routepath.Random, h.HandleRandom)
	return mux
}

func cafeForm(name, loc string) url.Values {
	return url.Values{
		"name":  {name},
		"map":   {"https://maps.example.com"},
		"img":   {"https://img.example.com"},
		"loc":   {loc},
		"seats": {"20-30"},
	}
}

func addCafe(t *testing.T, mux http.Handler, name, loc string) int64 {
	t.Helper()

	rr := postForm(mux, routepath.Add, cafeForm(name, loc))
	if rr.Code != http.StatusOK {
		t.Fatalf("add %s: status = %d, body = %s", name, rr.Code, rr.Body.String())
	}
	var resp struct {
		Cafe Cafe `json:"cafe"`
	}
	decode(t, rr, &resp)
	return resp.Cafe.ID
}

func postForm(h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func do(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, target any) {
	t.Helper()
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q", ct)
	}
	if err := json.Unmarshal(rr.Body.Bytes(), target); err != nil {
		t.Fatalf("decode %s: %v", rr.Body.String(), err)
	}
}
