// Package handler provides HTTP handlers for product-related operations.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/abgdnv/productdesk/internal/config"
	"github.com/abgdnv/productdesk/internal/platform/web"
	"github.com/abgdnv/productdesk/internal/product/auth"
	producterrors "github.com/abgdnv/productdesk/internal/product/errors"
	"github.com/abgdnv/productdesk/internal/product/service"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ProductAPI defines HTTP handlers for product-related endpoints.
type ProductAPI interface {
	FindAll(w http.ResponseWriter, r *http.Request)
	FindByID(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	DeleteByID(w http.ResponseWriter, r *http.Request)

	HealthCheck(w http.ResponseWriter, r *http.Request)
}

type api struct {
	service    service.ProductService
	pagination config.PaginationConfig
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewAPI creates a new instance of ProductAPI with the provided service.
func NewAPI(service service.ProductService, pagination config.PaginationConfig, logger *slog.Logger) ProductAPI {
	return &api{
		service:    service,
		pagination: pagination,
		validate:   newValidator(),
		logger:     logger.With("component", "api"),
	}
}

// productResponse is the wire form of a product. Prices are decimal strings with two places.
type productResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

// pageResponse is the paginated envelope of the collection endpoint.
type pageResponse struct {
	Count    int64             `json:"count"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
	Results  []productResponse `json:"results"`
}

// FindAll retrieves a page of products.
func (a *api) FindAll(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseValidate(r, w, a.logger, "limit", a.pagination.DefaultLimit, gt(0))
	if !ok {
		return
	}
	limit = min(limit, a.pagination.MaxLimit)
	offset, ok := parseValidate(r, w, a.logger, "offset", 0, gte(0))
	if !ok {
		return
	}
	a.logger.DebugContext(r.Context(), "Received request to find all products", "limit", limit, "offset", offset)
	page, err := a.service.FindAll(r.Context(), offset, limit)
	if err != nil {
		a.logger.ErrorContext(r.Context(), "Error retrieving product list", "error", err)
		web.RespondError(w, a.logger, http.StatusInternalServerError, "Failed to fetch products")
		return
	}

	resp := pageResponse{
		Count:   page.Total,
		Results: make([]productResponse, 0, len(page.Items)),
	}
	for _, item := range page.Items {
		resp.Results = append(resp.Results, toResponse(item))
	}
	if int64(offset)+int64(limit) < page.Total {
		resp.Next = pageURL(r, limit, offset+limit)
	}
	if offset > 0 {
		resp.Previous = pageURL(r, limit, max(offset-limit, 0))
	}
	a.logger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(page.Items))
	web.RespondJSON(w, a.logger, http.StatusOK, resp)
}

// FindByID retrieves a single product by its ID.
func (a *api) FindByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, a.logger)
	if !ok {
		return
	}
	a.logger.DebugContext(r.Context(), "Received request to find product", "ID", id)
	product, err := a.service.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, producterrors.ErrProductNotFound) {
			a.logger.DebugContext(r.Context(), "Product not found", "ID", id)
			web.RespondError(w, a.logger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", id))
			return
		}
		a.logger.ErrorContext(r.Context(), "Error retrieving product", "ID", id, "error", err)
		web.RespondError(w, a.logger, http.StatusInternalServerError, fmt.Sprintf("Failed to fetch product with ID %d", id))
		return
	}
	web.RespondJSON(w, a.logger, http.StatusOK, toResponse(*product))
}

// Create handles the creation of a new product.
func (a *api) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := a.loggerWithUser(r)
	var productCreateDto service.ProductCreateDto
	if err := json.NewDecoder(r.Body).Decode(&productCreateDto); err != nil {
		mLogger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to create product", "name", productCreateDto.Name)
	if !validateStruct(a.validate, mLogger, w, r, productCreateDto) {
		return
	}

	newProduct, err := a.service.Create(r.Context(), productCreateDto)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error creating product", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to create product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product created successfully", "ID", newProduct.ID, "Name", newProduct.Name)
	web.RespondJSON(w, mLogger, http.StatusCreated, toResponse(*newProduct))
}

// DeleteByID deletes a product by its ID.
func (a *api) DeleteByID(w http.ResponseWriter, r *http.Request) {
	mLogger := a.loggerWithUser(r)
	id, ok := parseID(w, r, mLogger)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to delete product", "ID", id)
	if err := a.service.DeleteByID(r.Context(), id); err != nil {
		if errors.Is(err, producterrors.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found for deletion", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error deleting product", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to delete product with ID %d", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck is a simple health check endpoint.
func (a *api) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// loggerWithUser tags records with the authenticated subject of the request.
func (a *api) loggerWithUser(r *http.Request) *slog.Logger {
	return a.logger.With("user", auth.ContextUserID(r.Context()))
}

// validateStruct responds with 400 and the failing fields when v is invalid.
func validateStruct(validate *validator.Validate, logger *slog.Logger, w http.ResponseWriter, r *http.Request, v any) bool {
	err := validate.Struct(v)
	if err == nil {
		return true
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		errorResponse := make(map[string]string)
		for _, fieldErr := range validationErrors {
			errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
		}
		logger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
		web.RespondJSON(w, logger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
		return false
	}
	logger.ErrorContext(r.Context(), "Error validating request body", "error", err)
	web.RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
	return false
}

func toResponse(p service.ProductDto) productResponse {
	return productResponse{ID: p.ID, Name: p.Name, Price: p.Price.StringFixed(2)}
}

// newValidator reports fields by their JSON names and validates decimals as float64.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// pageURL builds the absolute URL of another page of the current request.
func pageURL(r *http.Request, limit, offset int32) *string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	q := r.URL.Query()
	q.Set("limit", strconv.FormatInt(int64(limit), 10))
	if offset > 0 {
		q.Set("offset", strconv.FormatInt(int64(offset), 10))
	} else {
		q.Del("offset")
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
	s := u.String()
	return &s
}

// parseID extracts and validates the product ID from the request path. Returns the ID and a boolean indicating success.
func parseID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (int64, bool) {
	pathValueID := r.PathValue("id")
	id, err := strconv.ParseInt(pathValueID, 10, 64)
	if err != nil || id <= 0 {
		web.RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid product ID: %s", pathValueID))
		return 0, false
	}
	return id, true
}

// parseValidate reads an optional int32 query parameter, falling back to def when absent.
func parseValidate(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, def int32, pValidator ParamValidator) (int32, bool) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return def, true
	}
	intValue, err := strconv.ParseInt(value, 10, 32)
	if err != nil || !pValidator(intValue) {
		web.RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s number: %s", key, value))
		return 0, false
	}
	return int32(intValue), true
}

// ParamValidator is a function type that validates a parameter.
type ParamValidator func(valueToTest int64) bool

func newComparisonValidator(valueInClosure int64, compareFn func(argValue, closedValue int64) bool) ParamValidator {
	return func(argValue int64) bool {
		return compareFn(argValue, valueInClosure)
	}
}

// gte returns a ParamValidator that checks if the argument is greater than or equal to the value captured in the closure.
func gte(valToCompareAgainst int64) ParamValidator {
	return newComparisonValidator(valToCompareAgainst, func(argValue, closedValue int64) bool {
		return argValue >= closedValue
	})
}

// gt returns a ParamValidator that checks if the argument is greater than the value captured in the closure.
func gt(valToCompareAgainst int64) ParamValidator {
	return newComparisonValidator(valToCompareAgainst, func(argValue, closedValue int64) bool {
		return argValue > closedValue
	})
}
