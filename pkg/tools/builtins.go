package tools

import (
	"context"
	"fmt"
	"time"
)

// Canonical tool names the gateway exposes to providers.
const (
	ToolCurrentWeather  = "getCurrentWeather"
	ToolWeatherForecast = "getWeatherForecast"
	ToolCurrentTime     = "getCurrentTime"
	ToolWebSearch       = "getWebSearch"
	ToolPageContent     = "getPageContent"
	ToolKnowledgeBase   = "getKnowledgeBase"
	ToolSendEmail       = "sendEmail"
)

// WebToolNames lists the tools that reach the open internet, for the
// permission gate.
func WebToolNames() []string {
	return []string{ToolWebSearch, ToolPageContent}
}

// AllToolNames lists every builtin.
func AllToolNames() []string {
	return []string{
		ToolCurrentWeather, ToolWeatherForecast, ToolCurrentTime,
		ToolWebSearch, ToolPageContent, ToolKnowledgeBase, ToolSendEmail,
	}
}

// WeatherBackend answers weather lookups.
type WeatherBackend interface {
	Current(ctx context.Context, location, unit string) (string, error)
	Forecast(ctx context.Context, location, unit string, days int) (string, error)
}

// SearchBackend runs web searches.
type SearchBackend interface {
	Search(ctx context.Context, query string) (SearchResult, error)
}

// CrawlerBackend fetches readable page content.
type CrawlerBackend interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// KnowledgeBackend answers internal knowledge base queries.
type KnowledgeBackend interface {
	Query(ctx context.Context, query string) (string, error)
}

// MailBackend sends outbound mail.
type MailBackend interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Backends bundles the service implementations the builtins dispatch to.
// A nil backend leaves its tools unregistered.
type Backends struct {
	Weather   WeatherBackend
	Search    SearchBackend
	Crawler   CrawlerBackend
	Knowledge KnowledgeBackend
	Mail      MailBackend

	// Timezone is the default zone for getCurrentTime when the call
	// passes none. Empty means UTC.
	Timezone string
}

// RegisterBuiltins wires the builtin tool definitions into registry. Each
// handler pulls its positional arguments out of the normalized arg map.
func RegisterBuiltins(registry *Registry, b Backends) error {
	if b.Weather != nil {
		if err := registry.Register(Definition{
			Name:        ToolCurrentWeather,
			Description: "Get the current weather for a location.",
			Parameters: []Parameter{
				{Name: "location", Type: "string", Description: "City or place name", Required: true},
				{Name: "unit", Type: "string", Description: "celsius or fahrenheit", Default: "celsius"},
			},
			Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				return b.Weather.Current(ctx, stringArg(args, "location"), stringArgOr(args, "unit", "celsius"))
			},
		}); err != nil {
			return err
		}

		if err := registry.Register(Definition{
			Name:        ToolWeatherForecast,
			Description: "Get a multi-day weather forecast for a location.",
			Parameters: []Parameter{
				{Name: "location", Type: "string", Description: "City or place name", Required: true},
				{Name: "unit", Type: "string", Description: "celsius or fahrenheit", Default: "celsius"},
				{Name: "days", Type: "integer", Description: "Forecast length in days", Default: 3},
			},
			Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				return b.Weather.Forecast(ctx,
					stringArg(args, "location"),
					stringArgOr(args, "unit", "celsius"),
					intArgOr(args, "days", 3))
			},
		}); err != nil {
			return err
		}
	}

	defaultZone := b.Timezone
	if defaultZone == "" {
		defaultZone = "UTC"
	}
	if err := registry.Register(Definition{
		Name:        ToolCurrentTime,
		Description: "Get the current time in a timezone.",
		Parameters: []Parameter{
			{Name: "timezone", Type: "string", Description: "IANA timezone name", Default: defaultZone},
		},
		Handler: func(_ context.Context, args map[string]interface{}) (interface{}, error) {
			name := stringArgOr(args, "timezone", defaultZone)
			loc, err := time.LoadLocation(name)
			if err != nil {
				return nil, fmt.Errorf("unknown timezone %q", name)
			}
			return time.Now().In(loc).Format(time.RFC1123), nil
		},
	}); err != nil {
		return err
	}

	if b.Search != nil {
		if err := registry.Register(Definition{
			Name:        ToolWebSearch,
			Description: "Search the web and return a summary with sources.",
			Parameters: []Parameter{
				{Name: "query", Type: "string", Description: "Search query", Required: true},
			},
			Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				return b.Search.Search(ctx, stringArg(args, "query"))
			},
		}); err != nil {
			return err
		}
	}

	if b.Crawler != nil {
		if err := registry.Register(Definition{
			Name:        ToolPageContent,
			Description: "Fetch the readable content of a web page.",
			Parameters: []Parameter{
				{Name: "url", Type: "string", Description: "Page URL", Required: true},
			},
			Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				return b.Crawler.Fetch(ctx, stringArg(args, "url"))
			},
		}); err != nil {
			return err
		}
	}

	if b.Knowledge != nil {
		if err := registry.Register(Definition{
			Name:        ToolKnowledgeBase,
			Description: "Look up an answer in the internal knowledge base.",
			Parameters: []Parameter{
				{Name: "query", Type: "string", Description: "Question to answer", Required: true},
			},
			Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				return b.Knowledge.Query(ctx, stringArg(args, "query"))
			},
		}); err != nil {
			return err
		}
	}

	if b.Mail != nil {
		if err := registry.Register(Definition{
			Name:        ToolSendEmail,
			Description: "Send an email on the caller's behalf.",
			Parameters: []Parameter{
				{Name: "to", Type: "string", Description: "Recipient address", Required: true},
				{Name: "subject", Type: "string", Description: "Subject line", Required: true},
				{Name: "body", Type: "string", Description: "Message body", Required: true},
			},
			Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				err := b.Mail.Send(ctx,
					stringArg(args, "to"),
					stringArg(args, "subject"),
					stringArg(args, "body"))
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"sent": true}, nil
			},
		}); err != nil {
			return err
		}
	}

	return nil
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

func stringArgOr(args map[string]interface{}, key, fallback string) string {
	if s, ok := args[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func intArgOr(args map[string]interface{}, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
