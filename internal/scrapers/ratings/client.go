package ratings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"profrank-backend/internal/components/assert"
	"profrank-backend/internal/components/chrono"
	"profrank-backend/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
)

const (
	report_client_graphql_query = "client.graphql-query"
	report_client_new           = "client.new"
)

const DefaultEndpoint = "https://www.ratemyprofessors.com/graphql"

var tracer = otel.Tracer("scrapers/ratings")
var meter = otel.Meter("scrapers/ratings")

var graphqlRequestCounter, _ = meter.Int64Counter(
	"ratings.graphql.requests",
	metric.WithDescription("graphql requests made to the ratings service"),
)

type ClientOptions struct {
	Endpoint string
	// Headers are sent with every request, this is the only form of
	// authentication supported.
	Headers map[string]string
	Timeout time.Duration
	// RequestsPerSecond caps the request rate of the whole client, 0 disables
	// the limit.
	RequestsPerSecond float64
	Burst             int
	// CloudflareBypass wraps the transport so it presents itself like a
	// browser to a Cloudflare fronted endpoint.
	CloudflareBypass bool
}

// Client talks to the ratings graphql endpoint. It is safe for concurrent use.
type Client struct {
	http     *resty.Client
	endpoint string
	tel      telemetry.API
	clock    chrono.API
}

func NewClient(opts ClientOptions, tel telemetry.API, clock chrono.API) *Client {
	assert.NotNil(tel, "tel")
	assert.NotNil(clock, "clock")

	tel = telemetry.NewScopedAPI("ratings_scraper", tel)

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := resty.New()
	httpClient.SetTimeout(timeout)
	httpClient.SetHeader("user-agent", "profrank/1.0")
	httpClient.SetHeaders(opts.Headers)

	if opts.CloudflareBypass {
		httpClient.SetTransport(cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport))
		tel.ReportDebug(report_client_new, "cloudflare bypass enabled")
	}

	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		// burst >= 1 just means that no requests will be dropped, they wait instead
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel, "scrapers/ratings/http")

	return &Client{
		http:     httpClient,
		endpoint: endpoint,
		tel:      tel,
		clock:    clock,
	}
}

type graphqlRequest struct {
	Name     string `json:"operationName,omitempty"`
	Query    string `json:"query"`
	Variable any    `json:"variables"`
}

type graphqlResponse struct {
	Data   json.RawMessage     `json:"data"`
	Errors []graphqlErrorEntry `json:"errors"`
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// graphqlQuery posts a query and decodes its `data` into output. When the
// response has an errors list, whatever data came along with it is still
// decoded and a *GraphqlError is returned.
func graphqlQuery[O any](
	ctx context.Context,
	client *Client,
	name,
	query string,
	variables any,
	output *O,
) error {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("graphql:%s", name))
	defer span.End()

	span.SetAttributes(attribute.String("name", name))
	graphqlRequestCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", name)))
	client.tel.ReportDebug(report_client_graphql_query, name, variables)

	if variables == nil {
		variables = map[string]any{}
	}
	body, err := json.Marshal(graphqlRequest{
		Name:     name,
		Query:    query,
		Variable: variables,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to serialize json query")
		return fmt.Errorf("graphql %s: json marshal: %w", name, err)
	}
	span.SetAttributes(attribute.String("variables", string(body)))

	res, err := client.http.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetBody(body).
		Post(client.endpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return transportError(name, "fetch", err)
	}

	var parsed graphqlResponse
	err = json.Unmarshal(res.Body(), &parsed)
	if err != nil {
		if res.IsError() {
			err = fmt.Errorf("status %s", res.Status())
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse json response")
		return transportError(name, "unmarshal json", err)
	}
	if res.IsError() && len(parsed.Errors) == 0 {
		err = fmt.Errorf("status %s", res.Status())
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected status")
		return transportError(name, "status", err)
	}

	if !isNull(parsed.Data) {
		err = json.Unmarshal(parsed.Data, output)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to decode data")
			return transportError(name, "decode data", err)
		}
	}

	if len(parsed.Errors) > 0 {
		gqlErr := newGraphqlError(name, parsed.Errors)
		span.RecordError(gqlErr)
		span.SetStatus(codes.Error, "graphql errors")
		return gqlErr
	}

	return nil
}
