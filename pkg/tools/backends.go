package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"
)

const backendTimeout = 20 * time.Second

// WeatherAPIClient implements WeatherBackend against weatherapi.com.
type WeatherAPIClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewWeatherAPIClient creates a weather backend.
func NewWeatherAPIClient(apiKey string) *WeatherAPIClient {
	return &WeatherAPIClient{
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1",
		client:  &http.Client{Timeout: backendTimeout},
	}
}

type weatherResponse struct {
	Location struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"location"`
	Current struct {
		TempC     float64 `json:"temp_c"`
		TempF     float64 `json:"temp_f"`
		Condition struct {
			Text string `json:"text"`
		} `json:"condition"`
		Humidity int `json:"humidity"`
	} `json:"current"`
	Forecast struct {
		ForecastDay []struct {
			Date string `json:"date"`
			Day  struct {
				MaxTempC  float64 `json:"maxtemp_c"`
				MinTempC  float64 `json:"mintemp_c"`
				MaxTempF  float64 `json:"maxtemp_f"`
				MinTempF  float64 `json:"mintemp_f"`
				Condition struct {
					Text string `json:"text"`
				} `json:"condition"`
			} `json:"day"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

func (c *WeatherAPIClient) Current(ctx context.Context, location, unit string) (string, error) {
	var resp weatherResponse
	if err := c.get(ctx, "/current.json", url.Values{"q": {location}}, &resp); err != nil {
		return "", err
	}

	temp, suffix := resp.Current.TempC, "°C"
	if unit == "fahrenheit" {
		temp, suffix = resp.Current.TempF, "°F"
	}
	return fmt.Sprintf("%s, %s: %s, %.1f%s, humidity %d%%",
		resp.Location.Name, resp.Location.Country,
		resp.Current.Condition.Text, temp, suffix, resp.Current.Humidity), nil
}

func (c *WeatherAPIClient) Forecast(ctx context.Context, location, unit string, days int) (string, error) {
	if days <= 0 {
		days = 3
	}
	params := url.Values{"q": {location}, "days": {fmt.Sprintf("%d", days)}}

	var resp weatherResponse
	if err := c.get(ctx, "/forecast.json", params, &resp); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Forecast for %s, %s:\n", resp.Location.Name, resp.Location.Country)
	for _, fd := range resp.Forecast.ForecastDay {
		min, max, suffix := fd.Day.MinTempC, fd.Day.MaxTempC, "°C"
		if unit == "fahrenheit" {
			min, max, suffix = fd.Day.MinTempF, fd.Day.MaxTempF, "°F"
		}
		fmt.Fprintf(&b, "%s: %s, %.1f%s to %.1f%s\n",
			fd.Date, fd.Day.Condition.Text, min, suffix, max, suffix)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (c *WeatherAPIClient) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create weather request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("weather API returned %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// SerperClient implements SearchBackend against the Serper search API.
type SerperClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewSerperClient creates a search backend.
func NewSerperClient(apiKey string) *SerperClient {
	return &SerperClient{
		apiKey:  apiKey,
		baseURL: "https://google.serper.dev/search",
		client:  &http.Client{Timeout: backendTimeout},
	}
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

func (c *SerperClient) Search(ctx context.Context, query string) (SearchResult, error) {
	payload, err := json.Marshal(map[string]string{"q": query})
	if err != nil {
		return SearchResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(string(payload)))
	if err != nil {
		return SearchResult{}, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return SearchResult{}, fmt.Errorf("search API returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return SearchResult{}, fmt.Errorf("failed to decode search response: %w", err)
	}

	result := SearchResult{}
	var summary strings.Builder
	for i, item := range parsed.Organic {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&summary, "%s: %s\n", item.Title, item.Snippet)
		result.Sources = append(result.Sources, Source{Title: item.Title, URL: item.Link})
	}
	result.Summary = strings.TrimRight(summary.String(), "\n")
	if result.Summary == "" {
		result.Summary = "No results found."
	}
	return result, nil
}

// PageFetcher implements CrawlerBackend with a plain HTTP client, reducing
// pages to their readable text.
type PageFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewPageFetcher creates a crawler backend.
func NewPageFetcher() *PageFetcher {
	return &PageFetcher{
		client:   &http.Client{Timeout: backendTimeout},
		maxBytes: 2 << 20,
	}
}

func (f *PageFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("invalid page URL %q", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create page request: %w", err)
	}
	req.Header.Set("User-Agent", "ai-gateway/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("page fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned %d", resp.StatusCode)
	}

	return ExtractText(io.LimitReader(resp.Body, f.maxBytes))
}

// ExtractText reduces an HTML document to its visible text, skipping script
// and style subtrees.
func ExtractText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				b.WriteString(text)
				b.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.TrimSpace(b.String()), nil
}

// SMTPMailer implements MailBackend over plain SMTP.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPMailer creates a mail backend.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (m *SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("recipient address is required")
	}

	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"Message-ID: <" + uuid.NewString() + "@" + m.host + ">",
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}
