package flashsaleserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	saleshttpmapper "github.com/Apurer/flash-sale-engine/internal/domains/sales/adapters/http/mapper"
	salesdomain "github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
	salesports "github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
	apierrors "github.com/Apurer/flash-sale-engine/internal/shared/errors"
)

const (
	defaultPage  = 1
	defaultLimit = 20
)

// ProductAPI wires HTTP transport with the catalog use cases of the sales service.
type ProductAPI struct {
	service salesports.Service
}

// NewProductAPI creates a ProductAPI backed by the provided service.
func NewProductAPI(service salesports.Service) ProductAPI {
	return ProductAPI{service: service}
}

// Post /v1/products
// Create a product
func (api *ProductAPI) CreateProduct(c *gin.Context) {
	var payload saleshttpmapper.CreateProductRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondProblem(c, apierrors.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	input, err := saleshttpmapper.ToCreateProductInput(payload)
	if err != nil {
		respondProblem(c, apierrors.ErrValidation.WithDetail(err.Error()))
		return
	}
	product, err := api.service.CreateProduct(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saleshttpmapper.FromDomainProduct(product))
}

// Get /v1/products
// List active products
func (api *ProductAPI) ListProducts(c *gin.Context) {
	page, ok := bindQueryInt(c, "page", defaultPage)
	if !ok {
		return
	}
	limit, ok := bindQueryInt(c, "limit", defaultLimit)
	if !ok {
		return
	}
	query := salesports.ProductQuery{Page: page, Limit: limit, Keyword: strings.TrimSpace(c.Query("keyword"))}
	result, err := api.service.ListProducts(c.Request.Context(), query)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, saleshttpmapper.FromProductPage(result))
}

// Get /v1/products/:productId
// Find product by ID
func (api *ProductAPI) GetProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "productId")
	if !ok {
		return
	}
	product, err := api.service.GetProduct(c.Request.Context(), id)
	if err != nil {
		if isNotFound(err) {
			respondProblem(c, apierrors.NewNotFoundProblem("product", id))
			return
		}
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, saleshttpmapper.FromDomainProduct(product))
}

// Put /v1/products/:productId/price
// Replace the product price
func (api *ProductAPI) UpdatePrice(c *gin.Context) {
	var payload saleshttpmapper.PriceRequest
	api.mutate(c, &payload, func(ctx context.Context, id int64) (*salesdomain.Product, error) {
		price, err := saleshttpmapper.ToPrice(payload)
		if err != nil {
			return nil, requestError{err}
		}
		return api.service.UpdatePrice(ctx, id, price)
	})
}

// Post /v1/products/:productId/discount
// Reduce the price by a percentage
func (api *ProductAPI) ApplyDiscount(c *gin.Context) {
	var payload saleshttpmapper.DiscountRequest
	api.mutate(c, &payload, func(ctx context.Context, id int64) (*salesdomain.Product, error) {
		percent, err := saleshttpmapper.ToDiscountPercent(payload)
		if err != nil {
			return nil, requestError{err}
		}
		return api.service.ApplyDiscount(ctx, id, percent)
	})
}

// Put /v1/products/:productId/stock
// Replace the stock level
func (api *ProductAPI) UpdateStock(c *gin.Context) {
	var payload saleshttpmapper.StockRequest
	api.mutate(c, &payload, func(ctx context.Context, id int64) (*salesdomain.Product, error) {
		stock, err := saleshttpmapper.ToStock(payload)
		if err != nil {
			return nil, requestError{err}
		}
		return api.service.UpdateStock(ctx, id, stock)
	})
}

// Post /v1/products/:productId/activate
func (api *ProductAPI) ActivateProduct(c *gin.Context) {
	api.mutate(c, nil, api.service.ActivateProduct)
}

// Post /v1/products/:productId/deactivate
// Soft-delete: the product stays fetchable by id
func (api *ProductAPI) DeactivateProduct(c *gin.Context) {
	api.mutate(c, nil, api.service.DeactivateProduct)
}

// Post /v1/products/:productId/images
// Attach an image URL
func (api *ProductAPI) AttachImage(c *gin.Context) {
	var payload saleshttpmapper.ImageRequest
	api.mutate(c, &payload, func(ctx context.Context, id int64) (*salesdomain.Product, error) {
		return api.service.AttachImage(ctx, id, payload.URL)
	})
}

// mutate binds the path id and optional JSON body, then runs a single-field mutation.
func (api *ProductAPI) mutate(c *gin.Context, payload any, run func(ctx context.Context, id int64) (*salesdomain.Product, error)) {
	id, ok := parseIDParam(c, "productId")
	if !ok {
		return
	}
	if payload != nil {
		if err := c.ShouldBindJSON(payload); err != nil {
			respondProblem(c, apierrors.ErrBadRequest.WithDetail(err.Error()))
			return
		}
	}
	product, err := run(c.Request.Context(), id)
	if err != nil {
		if reqErr, ok := err.(requestError); ok {
			respondProblem(c, apierrors.ErrValidation.WithDetail(reqErr.Error()))
			return
		}
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, saleshttpmapper.FromDomainProduct(product))
}

// requestError marks a body that parsed but is missing a required field.
type requestError struct{ err error }

func (e requestError) Error() string { return e.err.Error() }
