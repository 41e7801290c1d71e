package flashsaleserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
}

// NewRouter returns a new router.
func NewRouter(handleFunctions ApiHandleFunctions) *gin.Engine {
	return NewRouterWithGinEngine(gin.Default(), handleFunctions)
}

// NewRouterWithGinEngine adds the routes to an existing gin engine.
func NewRouterWithGinEngine(router *gin.Engine, handleFunctions ApiHandleFunctions) *gin.Engine {
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		switch route.Method {
		case http.MethodGet:
			router.GET(route.Pattern, route.HandlerFunc)
		case http.MethodPost:
			router.POST(route.Pattern, route.HandlerFunc)
		case http.MethodPut:
			router.PUT(route.Pattern, route.HandlerFunc)
		case http.MethodPatch:
			router.PATCH(route.Pattern, route.HandlerFunc)
		case http.MethodDelete:
			router.DELETE(route.Pattern, route.HandlerFunc)
		}
	}
	return router
}

// DefaultHandleFunc answers routes whose handler was not wired.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

// ApiHandleFunctions groups the handlers of every API section.
type ApiHandleFunctions struct {
	// Routes for the products part of the API
	ProductAPI ProductAPI
	// Routes for the orders part of the API
	OrderAPI OrderAPI
	// Routes for the users part of the API
	UserAPI UserAPI
	// Routes for liveness and readiness
	HealthAPI HealthAPI
}

func getRoutes(handleFunctions ApiHandleFunctions) []Route {
	return []Route{
		{"CreateProduct", http.MethodPost, "/v1/products", handleFunctions.ProductAPI.CreateProduct},
		{"ListProducts", http.MethodGet, "/v1/products", handleFunctions.ProductAPI.ListProducts},
		{"GetProduct", http.MethodGet, "/v1/products/:productId", handleFunctions.ProductAPI.GetProduct},
		{"UpdatePrice", http.MethodPut, "/v1/products/:productId/price", handleFunctions.ProductAPI.UpdatePrice},
		{"ApplyDiscount", http.MethodPost, "/v1/products/:productId/discount", handleFunctions.ProductAPI.ApplyDiscount},
		{"UpdateStock", http.MethodPut, "/v1/products/:productId/stock", handleFunctions.ProductAPI.UpdateStock},
		{"ActivateProduct", http.MethodPost, "/v1/products/:productId/activate", handleFunctions.ProductAPI.ActivateProduct},
		{"DeactivateProduct", http.MethodPost, "/v1/products/:productId/deactivate", handleFunctions.ProductAPI.DeactivateProduct},
		{"AttachImage", http.MethodPost, "/v1/products/:productId/images", handleFunctions.ProductAPI.AttachImage},
		{"PlaceOrder", http.MethodPost, "/v1/orders", handleFunctions.OrderAPI.PlaceOrder},
		{"GetOrder", http.MethodGet, "/v1/orders/:orderId", handleFunctions.OrderAPI.GetOrder},
		{"RecordPayment", http.MethodPost, "/v1/orders/:orderId/payment", handleFunctions.OrderAPI.RecordPayment},
		{"ListUserOrders", http.MethodGet, "/v1/users/:userId/orders", handleFunctions.OrderAPI.ListUserOrders},
		{"RegisterUser", http.MethodPost, "/v1/users", handleFunctions.UserAPI.RegisterUser},
		{"GetUser", http.MethodGet, "/v1/users/:userId", handleFunctions.UserAPI.GetUser},
		{"Healthz", http.MethodGet, "/healthz", handleFunctions.HealthAPI.Healthz},
	}
}
