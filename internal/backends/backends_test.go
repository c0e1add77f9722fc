package backends

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestWebSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "k" || q.Get("cx") != "cx" || q.Get("q") != "golang" {
			t.Errorf("unexpected query params: %v", q)
		}
		if q.Get("num") != "3" {
			t.Errorf("num = %q", q.Get("num"))
		}
		fmt.Fprint(w, `{"items":[
			{"link":"https://a","title":"A","snippet":"first","pagemap":{"cse_image":[{"src":"https://a/img.png"}]}},
			{"link":"https://b","title":"B","snippet":"second","pagemap":{"cse_thumbnail":[{"src":"https://b/t.png"}]}},
			{"link":"https://c","title":"C"}
		]}`)
	}))
	defer srv.Close()

	c := NewWeb(WebConfig{APIKey: "k", CX: "cx", BaseURL: srv.URL, Logger: testLogger()})
	items := c.Search(context.Background(), "golang", 3)
	if len(items) != 3 {
		t.Fatalf("got %d items", len(items))
	}
	if items[0].ImageURL != "https://a/img.png" {
		t.Errorf("cse_image not used: %q", items[0].ImageURL)
	}
	if items[1].ImageURL != "https://b/t.png" {
		t.Errorf("cse_thumbnail fallback not used: %q", items[1].ImageURL)
	}
	if items[2].ImageURL != "" {
		t.Errorf("missing pagemap should leave ImageURL empty: %q", items[2].ImageURL)
	}
}

func TestWebSearchNumClamped(t *testing.T) {
	var gotNum string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotNum = r.URL.Query().Get("num")
		fmt.Fprint(w, `{"items":[]}`)
	}))
	defer srv.Close()

	c := NewWeb(WebConfig{APIKey: "k", CX: "cx", BaseURL: srv.URL, Logger: testLogger()})
	c.Search(context.Background(), "q", 50)
	if gotNum != "10" {
		t.Errorf("num should clamp to 10, got %q", gotNum)
	}
	c.Search(context.Background(), "q", -1)
	if gotNum != "1" {
		t.Errorf("num should clamp to 1, got %q", gotNum)
	}
	c.Search(context.Background(), "q", 0)
	if gotNum != "10" {
		t.Errorf("num should default to 10, got %q", gotNum)
	}
}

func TestWebSearchDegradesToEmpty(t *testing.T) {
	// Missing credentials.
	c := NewWeb(WebConfig{Logger: testLogger()})
	if items := c.Search(context.Background(), "q", 5); items != nil {
		t.Errorf("missing creds should yield nil, got %v", items)
	}

	// Upstream failure.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	c = NewWeb(WebConfig{APIKey: "k", CX: "cx", BaseURL: srv.URL, Logger: testLogger()})
	if items := c.Search(context.Background(), "q", 5); items != nil {
		t.Errorf("upstream error should yield nil, got %v", items)
	}

	// Empty query short-circuits without a request.
	if items := c.Search(context.Background(), "   ", 5); items != nil {
		t.Errorf("blank query should yield nil, got %v", items)
	}
}

func TestImageSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("searchType") != "image" {
			t.Error("expected searchType=image")
		}
		fmt.Fprint(w, `{"items":[{"link":"https://img/1.png","title":"one"}]}`)
	}))
	defer srv.Close()

	c := NewWeb(WebConfig{APIKey: "k", CX: "cx", BaseURL: srv.URL, Logger: testLogger()})
	images := c.SearchImages(context.Background(), "cats", 5)
	if len(images) != 1 || images[0].Src != "https://img/1.png" || images[0].Alt != "one" {
		t.Errorf("unexpected images: %v", images)
	}
}

func TestYouTubeSearchDropsEntriesWithoutVideoID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("type") != "video" || q.Get("part") != "snippet" {
			t.Errorf("unexpected params: %v", q)
		}
		if q.Get("maxResults") != "5" {
			t.Errorf("maxResults should default to 5, got %q", q.Get("maxResults"))
		}
		fmt.Fprint(w, `{"items":[
			{"id":{"videoId":"abc"},"snippet":{"title":"T","channelTitle":"Ch","publishedAt":"2026-01-01T00:00:00Z","thumbnails":{"medium":{"url":"https://t/m.jpg"}}}},
			{"id":{},"snippet":{"title":"playlist entry"}}
		]}`)
	}))
	defer srv.Close()

	c := NewYouTube(YouTubeConfig{APIKey: "k", BaseURL: srv.URL, Logger: testLogger()})
	videos := c.Search(context.Background(), "lofi", 0)
	if len(videos) != 1 {
		t.Fatalf("got %d videos, want 1", len(videos))
	}
	v := videos[0]
	if v.ID != "abc" || v.Thumbnail != "https://t/m.jpg" || v.ChannelTitle != "Ch" {
		t.Errorf("unexpected video: %+v", v)
	}
}

func TestWeatherFetchCity(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/geo", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "1" {
			t.Error("geocode should request limit=1")
		}
		fmt.Fprint(w, `[{"name":"Dhaka","lat":23.8,"lon":90.4}]`)
	})
	mux.HandleFunc("/weather", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("units") != "metric" {
			t.Error("weather should request metric units")
		}
		fmt.Fprint(w, `{"name":"Dhaka","main":{"temp":31.6},"weather":[{"main":"Drizzle","icon":"09d"}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	fixed := time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC)
	c := NewWeather(WeatherConfig{
		APIKey: "k", GeoURL: srv.URL + "/geo", CurrentURL: srv.URL + "/weather",
		Logger: testLogger(), Now: func() time.Time { return fixed },
	})
	item := c.FetchCity(context.Background(), "dhaka")
	if item.Error != "" {
		t.Fatalf("unexpected error: %s", item.Error)
	}
	if item.Data == nil {
		t.Fatal("expected data")
	}
	if item.Data.Temperature != 32 {
		t.Errorf("temperature should round, got %d", item.Data.Temperature)
	}
	if item.Data.WeatherType != WeatherRain {
		t.Errorf("drizzle should map to rain, got %s", item.Data.WeatherType)
	}
	if !item.Data.IsDay {
		t.Error("icon 09d should be day")
	}
	if item.Data.DateTime != "Fri, Aug 28, 2:30 PM" {
		t.Errorf("unexpected datetime: %q", item.Data.DateTime)
	}
	if item.Latitude != 23.8 || item.Longitude != 90.4 {
		t.Errorf("coords not carried: %+v", item)
	}
}

func TestWeatherErrors(t *testing.T) {
	// No API key.
	c := NewWeather(WeatherConfig{Logger: testLogger()})
	if item := c.FetchCity(context.Background(), "x"); item.Error != "Missing OPENWEATHER_API_KEY" {
		t.Errorf("unexpected error: %q", item.Error)
	}

	// Geocode miss.
	mux := http.NewServeMux()
	mux.HandleFunc("/geo", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c = NewWeather(WeatherConfig{APIKey: "k", GeoURL: srv.URL + "/geo", CurrentURL: srv.URL + "/weather", Logger: testLogger()})
	if item := c.FetchCity(context.Background(), "nowhere"); item.Error != "Location not found" {
		t.Errorf("unexpected error: %q", item.Error)
	}

	// Bad weather key.
	mux2 := http.NewServeMux()
	mux2.HandleFunc("/geo", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"name":"X","lat":1,"lon":2}]`)
	})
	mux2.HandleFunc("/weather", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv2 := httptest.NewServer(mux2)
	defer srv2.Close()
	c = NewWeather(WeatherConfig{APIKey: "k", GeoURL: srv2.URL + "/geo", CurrentURL: srv2.URL + "/weather", Logger: testLogger()})
	if item := c.FetchCity(context.Background(), "x"); item.Error != "Invalid API key" {
		t.Errorf("unexpected error: %q", item.Error)
	}
}

func TestMapWeatherType(t *testing.T) {
	tests := map[string]WeatherType{
		"Clear":        WeatherClear,
		"Clouds":       WeatherClouds,
		"Rain":         WeatherRain,
		"Drizzle":      WeatherRain,
		"Snow":         WeatherSnow,
		"Thunderstorm": WeatherThunderstorm,
		"Mist":         WeatherMist,
		"Fog":          WeatherMist,
		"Haze":         WeatherMist,
		"Tornado":      WeatherUnknown,
		"":             WeatherUnknown,
	}
	for in, want := range tests {
		if got := mapWeatherType(in); got != want {
			t.Errorf("mapWeatherType(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestShoppingSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("engine") != "google_shopping_light" {
			t.Errorf("engine = %q", q.Get("engine"))
		}
		if q.Get("hl") != "en" || q.Get("gl") != "us" || q.Get("device") != "desktop" {
			t.Errorf("unexpected locale params: %v", q)
		}
		fmt.Fprint(w, `{"shopping_results":[
			{"product_id":"p1","title":"Shoe One","link":"https://s/1","price":"$99","extracted_price":99,"rating":4.5,"reviews":120,"source":"Acme"},
			{"title":"No Link Product"},
			{"title":"Shoe Two","product_link":"https://s/2"},
			{"title":"Shoe Three","link":"https://s/3"},
			{"title":"Shoe Four","link":"https://s/4"},
			{"title":"Shoe Five","link":"https://s/5"}
		]}`)
	}))
	defer srv.Close()

	c := NewShopping(ShoppingConfig{APIKey: "k", BaseURL: srv.URL, Logger: testLogger()})
	products := c.Search(context.Background(), "running shoes", 0)
	if len(products) != 4 {
		t.Fatalf("got %d products, want default max 4", len(products))
	}
	p := products[0]
	if p.ID != "p1" || p.PriceText != "$99" || *p.Price != 99 || *p.Rating != 4.5 || *p.ReviewCount != 120 {
		t.Errorf("unexpected product: %+v", p)
	}
	// Missing product_id falls back to title:link.
	if products[1].ID != "Shoe Two:https://s/2" {
		t.Errorf("fallback id = %q", products[1].ID)
	}
}

func TestShoppingInlineResultsFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"inline_shopping_results":[{"title":"Inline","link":"https://i/1"}]}`)
	}))
	defer srv.Close()

	c := NewShopping(ShoppingConfig{APIKey: "k", BaseURL: srv.URL, Logger: testLogger()})
	products := c.Search(context.Background(), "q", 4)
	if len(products) != 1 || products[0].Title != "Inline" {
		t.Errorf("inline results not used: %v", products)
	}
}

func TestFXRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/latest" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"rates":{"BDT":122.5}}`)
	}))
	defer srv.Close()

	c := NewFX(FXConfig{BaseURL: srv.URL, Logger: testLogger()})
	rate, ok, err := c.Rate(context.Background(), "USD", "BDT")
	if err != nil || !ok || rate != 122.5 {
		t.Errorf("Rate = (%v, %v, %v)", rate, ok, err)
	}

	// Symbol missing from the response.
	_, ok, err = c.Rate(context.Background(), "USD", "XXX")
	if err != nil || ok {
		t.Errorf("missing symbol should be (_, false, nil), got (%v, %v)", ok, err)
	}
}

func TestCachedJSONNilCacheFills(t *testing.T) {
	calls := 0
	fill := func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	}
	v, err := CachedJSON(context.Background(), nil, "k", time.Minute, fill)
	if err != nil || v != 42 {
		t.Fatalf("got (%v, %v)", v, err)
	}
	v, _ = CachedJSON(context.Background(), nil, "k", time.Minute, fill)
	if v != 42 || calls != 2 {
		t.Errorf("nil cache must fill every time, calls=%d", calls)
	}
}
