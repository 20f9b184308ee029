package uolsync

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mmdatafocus/ledgermirror_backend/models"
)

const (
	// maxPageWalk caps every pagination walk. A provider bug that keeps
	// advertising a next page must not turn a sync run into an infinite
	// loop; reaching the cap silently truncates the walk.
	maxPageWalk = 500

	// fetchAttempts bounds 429 retries. Exhausting them is intentional
	// escalation to the orchestrator, not a leak.
	fetchAttempts = 3
)

// ApiError is a non-2xx provider response.
type ApiError struct {
	Status  int
	Message string
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("uol api error %d: %s", e.Status, e.Message)
}

// Client is the single point of outbound HTTP access to the provider.
// Every call passes through the endpoint-appropriate rate limiter before the
// network call.
type Client struct {
	baseURL    string
	authHeader string
	http       *http.Client

	// limiter admits general traffic; listLimiter is a stricter gate for
	// the high-cost invoice listing endpoints. Independent state.
	limiter     *RateLimiter
	listLimiter *RateLimiter

	cooldown time.Duration
	pageSize int
}

func NewClient(provider *models.ProviderConfig) *Client {
	generalPerMin := intFromEnv("UOL_RATE_LIMIT_PER_MIN", 60)
	listPerMin := intFromEnv("UOL_LIST_RATE_LIMIT_PER_MIN", 10)

	cooldownSec := intFromEnv("UOL_COOLDOWN_SECONDS", 65)

	token := base64.StdEncoding.EncodeToString([]byte(provider.AuthEmail + ":" + provider.ApiKey))

	return &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(provider.BaseURL), "/"),
		authHeader:  "Basic " + token,
		http:        &http.Client{Timeout: 30 * time.Second},
		limiter:     NewRateLimiter(generalPerMin, time.Minute),
		listLimiter: NewRateLimiter(listPerMin, time.Minute),
		cooldown:    time.Duration(cooldownSec) * time.Second,
		pageSize:    intFromEnv("UOL_PAGE_SIZE", 100),
	}
}

// resolveURL normalizes a resource reference to exactly one outbound URL.
// The provider returns hrefs both as absolute URLs (carrying our own base)
// and as relative paths; a doubled base URL must never go on the wire.
func (c *Client) resolveURL(pathOrURL string) string {
	p := strings.TrimSpace(pathOrURL)
	if strings.HasPrefix(p, c.baseURL) {
		// Only strip at a path boundary; "<base>x/y" is a different host path,
		// not a resource under the base.
		rest := p[len(c.baseURL):]
		if rest == "" || rest[0] == '/' || rest[0] == '?' {
			p = rest
		}
	}
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	if strings.HasPrefix(p, "?") {
		return c.baseURL + p
	}
	return c.baseURL + "/" + strings.TrimLeft(p, "/")
}

// fetch is the retrying GET primitive every accessor funnels through.
// HTTP 429 waits out the rate window and retries up to fetchAttempts times;
// any other non-2xx fails immediately with an ApiError.
func (c *Client) fetch(ctx context.Context, pathOrURL string, params url.Values, limiter *RateLimiter) ([]byte, error) {
	endpoint := c.resolveURL(pathOrURL)
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}

	for attempt := 1; ; attempt++ {
		if err := limiter.Admit(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", c.authHeader)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt >= fetchAttempts {
				return nil, &ApiError{Status: resp.StatusCode, Message: "rate limit retries exhausted"}
			}
			if err := sleepCtx(ctx, c.cooldown); err != nil {
				return nil, err
			}
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &ApiError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		}
		return body, nil
	}
}

func (c *Client) getList(ctx context.Context, path string, page int, params url.Values, limiter *RateLimiter) (listEnvelope, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(c.pageSize))

	body, err := c.fetch(ctx, path, params, limiter)
	if err != nil {
		return listEnvelope{}, err
	}

	var env listEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return listEnvelope{}, err
	}
	return env, nil
}

func (c *Client) ListSalesInvoices(ctx context.Context, page int) (listEnvelope, error) {
	return c.getList(ctx, "/sales_invoices", page, nil, c.listLimiter)
}

func (c *Client) ListPurchaseInvoices(ctx context.Context, page int) (listEnvelope, error) {
	return c.getList(ctx, "/purchase_invoices", page, nil, c.listLimiter)
}

func (c *Client) ListContacts(ctx context.Context, page int) (listEnvelope, error) {
	return c.getList(ctx, "/contacts", page, nil, c.limiter)
}

func (c *Client) ListBankMovements(ctx context.Context, page int, dateFrom *time.Time) (listEnvelope, error) {
	params := url.Values{}
	if dateFrom != nil {
		params.Set("date_from", dateFrom.Format("2006-01-02"))
	}
	return c.getList(ctx, "/bank_movements", page, params, c.limiter)
}

func (c *Client) ListJournalRecords(ctx context.Context, page int, dateFrom, dateTo time.Time) (listEnvelope, error) {
	params := url.Values{}
	params.Set("date_from", dateFrom.Format("2006-01-02"))
	params.Set("date_to", dateTo.Format("2006-01-02"))
	return c.getList(ctx, "/journal_records", page, params, c.limiter)
}

func (c *Client) ListReceivables(ctx context.Context, page int) (listEnvelope, error) {
	return c.getList(ctx, "/receivables", page, nil, c.limiter)
}

// GetInvoiceDetail fetches the full invoice record; listings omit the VAT
// breakdown and the document subtype.
func (c *Client) GetInvoiceDetail(ctx context.Context, href string) (uolInvoiceDetail, []byte, error) {
	body, err := c.fetch(ctx, href, nil, c.limiter)
	if err != nil {
		return uolInvoiceDetail{}, nil, err
	}
	var detail uolInvoiceDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return uolInvoiceDetail{}, nil, err
	}
	return detail, body, nil
}

func (c *Client) GetContact(ctx context.Context, ref contactRef) (uolContact, error) {
	href := strings.TrimSpace(ref.Href)
	if href == "" {
		href = "/contacts/" + ref.ID.String()
	}
	body, err := c.fetch(ctx, href, nil, c.limiter)
	if err != nil {
		return uolContact{}, err
	}
	var contact uolContact
	if err := json.Unmarshal(body, &contact); err != nil {
		return uolContact{}, err
	}
	return contact, nil
}

// ListAllBankAccounts walks the whole bank account listing; the set is small
// and has no incremental semantics.
func (c *Client) ListAllBankAccounts(ctx context.Context) ([]uolBankAccount, error) {
	accounts := make([]uolBankAccount, 0)
	for page := 1; page <= maxPageWalk; page++ {
		env, err := c.getList(ctx, "/bank_accounts", page, nil, c.limiter)
		if err != nil {
			return nil, err
		}
		for _, raw := range env.Items {
			var account uolBankAccount
			if err := json.Unmarshal(raw, &account); err != nil {
				continue
			}
			accounts = append(accounts, account)
		}
		if !env.hasNext() {
			break
		}
	}
	return accounts, nil
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
