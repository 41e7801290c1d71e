//go:build pact
// +build pact

package consumer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	pacttest "github.com/Apurer/flash-sale-engine/test/pact"

	pactconsumer "github.com/pact-foundation/pact-go/v2/consumer"
	pactlog "github.com/pact-foundation/pact-go/v2/log"
	"github.com/pact-foundation/pact-go/v2/matchers"
	"github.com/stretchr/testify/require"
)

type productPayload struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Stock    int    `json:"stock"`
	IsActive bool   `json:"isActive"`
}

type orderRequest struct {
	UserID    int64 `json:"userId"`
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type orderPayload struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"userId"`
	ProductID   int64  `json:"productId"`
	Quantity    int    `json:"quantity"`
	TotalAmount string `json:"totalAmount"`
	Status      string `json:"status"`
}

type problemDetail struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail"`
	Extensions map[string]any `json:"extensions"`
}

type apiError struct {
	status    int
	title     string
	detail    string
	retryable bool
}

func (e apiError) Error() string {
	msg := e.title
	if msg == "" {
		msg = "api error"
	}
	if e.detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.detail)
	}
	return fmt.Sprintf("%s (status %d)", msg, e.status)
}

func TestStorefrontContract(t *testing.T) {
	pactlog.SetLogLevel("INFO")

	pact, err := pactconsumer.NewV2Pact(pactconsumer.MockHTTPProviderConfig{
		Consumer: pacttest.ConsumerName,
		Provider: pacttest.ProviderName,
		PactDir:  pacttest.PactDir(t),
		LogDir:   pacttest.LogDir(t),
	})
	require.NoError(t, err)

	jsonContentType := matchers.Regex("application/json; charset=utf-8", "application\\/json(?:;\\s?charset=utf-8)?")
	problemContentType := matchers.S("application/problem+json")
	money := func(example string) matchers.Matcher {
		return matchers.Term(example, `^\d+\.\d{2}$`)
	}
	placeTwo := orderRequest{UserID: pacttest.BuyerID, ProductID: pacttest.ProductID, Quantity: 2}

	pact.AddInteraction().
		Given(pacttest.StateProductOnSale).
		UponReceiving("a request for a product on sale").
		WithRequest("GET", fmt.Sprintf("/v1/products/%d", pacttest.ProductID)).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"id":       matchers.Like(pacttest.ProductID),
				"name":     matchers.Like(pacttest.ProductName),
				"price":    money(pacttest.ProductPrice),
				"stock":    matchers.Like(pacttest.ProductStock),
				"isActive": matchers.Like(true),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateProductOnSale).
		UponReceiving("an order within the available stock").
		WithRequest("POST", "/v1/orders", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.Header("Idempotency-Key", matchers.Like("checkout-7f3a"))
			b.JSONBody(matchers.Map{
				"userId":    matchers.Like(placeTwo.UserID),
				"productId": matchers.Like(placeTwo.ProductID),
				"quantity":  placeTwo.Quantity,
			})
		}).
		WillRespondWith(http.StatusCreated, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"id":          matchers.Like(int64(1)),
				"userId":      matchers.Like(placeTwo.UserID),
				"productId":   matchers.Like(placeTwo.ProductID),
				"quantity":    matchers.Like(placeTwo.Quantity),
				"totalAmount": money("120.00"),
				"status":      matchers.S("PENDING"),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateProductSoldOut).
		UponReceiving("an order for a sold out product").
		WithRequest("POST", "/v1/orders", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(matchers.Map{
				"userId":    matchers.Like(placeTwo.UserID),
				"productId": matchers.Like(placeTwo.ProductID),
				"quantity":  1,
			})
		}).
		WillRespondWith(http.StatusConflict, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", problemContentType)
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/conflict"),
				"title":  matchers.S("Conflict"),
				"status": matchers.Like(http.StatusConflict),
				"extensions": matchers.Map{
					"retryable": matchers.Like(true),
				},
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateCatalogEmpty).
		UponReceiving("a request for a missing product").
		WithRequest("GET", fmt.Sprintf("/v1/products/%d", pacttest.ProductID)).
		WillRespondWith(http.StatusNotFound, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", problemContentType)
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/not-found"),
				"title":  matchers.S("Resource Not Found"),
				"status": matchers.Like(http.StatusNotFound),
			})
		})

	err = pact.ExecuteTest(t, func(config pactconsumer.MockServerConfig) error {
		client := newStorefrontClient(config)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		product, err := client.GetProduct(ctx, pacttest.ProductID)
		if err != nil {
			return fmt.Errorf("get product: %w", err)
		}
		if !product.IsActive || product.Stock == 0 {
			return fmt.Errorf("expected an active product with stock, got %+v", product)
		}

		order, err := client.PlaceOrder(ctx, placeTwo, "checkout-7f3a")
		if err != nil {
			return fmt.Errorf("place order: %w", err)
		}
		if order.Status != "PENDING" || order.TotalAmount != "120.00" {
			return fmt.Errorf("unexpected order %+v", order)
		}

		_, err = client.PlaceOrder(ctx, orderRequest{UserID: pacttest.BuyerID, ProductID: pacttest.ProductID, Quantity: 1}, "")
		soldOut, ok := err.(apiError)
		if !ok || soldOut.status != http.StatusConflict || !soldOut.retryable {
			return fmt.Errorf("expected retryable 409 for sold out product, got %v", err)
		}

		_, err = client.GetProduct(ctx, pacttest.ProductID)
		missing, ok := err.(apiError)
		if !ok || missing.status != http.StatusNotFound {
			return fmt.Errorf("expected 404 for missing product, got %v", err)
		}
		return nil
	})
	require.NoError(t, err)
}

type storefrontClient struct {
	baseURL    string
	httpClient *http.Client
}

func newStorefrontClient(config pactconsumer.MockServerConfig) *storefrontClient {
	host := config.Host
	if host == "" {
		host = "localhost"
	}
	transport := &http.Transport{TLSClientConfig: config.TLSConfig}
	return &storefrontClient{
		baseURL:    fmt.Sprintf("http://%s:%d", host, config.Port),
		httpClient: &http.Client{Transport: transport, Timeout: 10 * time.Second},
	}
}

func (c *storefrontClient) GetProduct(ctx context.Context, id int64) (*productPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/products/%d", c.baseURL, id), nil)
	if err != nil {
		return nil, err
	}
	var product productPayload
	if err := c.do(req, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *storefrontClient) PlaceOrder(ctx context.Context, order orderRequest, idempotencyKey string) (*orderPayload, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	var placed orderPayload
	if err := c.do(req, &placed); err != nil {
		return nil, err
	}
	return &placed, nil
}

func (c *storefrontClient) do(req *http.Request, out any) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(res)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func decodeAPIError(res *http.Response) error {
	var problem problemDetail
	_ = json.NewDecoder(res.Body).Decode(&problem)
	status := problem.Status
	if status == 0 {
		status = res.StatusCode
	}
	retryable, _ := problem.Extensions["retryable"].(bool)
	return apiError{status: status, title: problem.Title, detail: problem.Detail, retryable: retryable}
}
