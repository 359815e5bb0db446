package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/abgdnv/productdesk/internal/client/api"
	"github.com/go-playground/validator/v10"
)

const collectionPath = "/products/"

// Requester sends a request to the product API.
type Requester interface {
	Request(ctx context.Context, method, path string, body any, opts ...api.RequestOption) (json.RawMessage, error)
}

// OperationError is returned for failures that are not one of the api domain errors.
type OperationError struct {
	Message string
	Err     error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateCreate checks the input of a new product: a name of at most 100
// characters and a positive price. It fails with an *api.ValidationError.
func ValidateCreate(name string, price float64) error {
	err := validate.Struct(createRequest{Name: name, Price: price})
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fe := validationErrors[0]
		return &api.ValidationError{Field: fe.Field(), Message: "failed on rule: " + fe.Tag()}
	}
	return err
}

// Repository lists, creates and removes products through the product API.
type Repository struct {
	client Requester
	logger *slog.Logger
}

func NewRepository(client Requester, logger *slog.Logger) *Repository {
	return &Repository{
		client: client,
		logger: logger.With("component", "product_repository"),
	}
}

// List returns the products of the collection in server order. The result is never nil.
func (r *Repository) List(ctx context.Context) ([]Product, error) {
	raw, err := r.client.Request(ctx, http.MethodGet, collectionPath, nil)
	if err != nil {
		return nil, r.wrap(ctx, "failed to fetch products", err)
	}
	var p page
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, r.wrap(ctx, "failed to fetch products", fmt.Errorf("%w: %v", api.ErrInvalidResponse, err))
	}
	if p.Results == nil {
		return []Product{}, nil
	}
	return p.Results, nil
}

// Create validates the input locally and adds a product to the collection.
// Invalid input fails with an *api.ValidationError without a network call.
func (r *Repository) Create(ctx context.Context, name string, price float64) (*Product, error) {
	if err := ValidateCreate(name, price); err != nil {
		return nil, r.wrap(ctx, "failed to create product", err)
	}
	req := createRequest{Name: name, Price: price}

	raw, err := r.client.Request(ctx, http.MethodPost, collectionPath, req)
	if err != nil {
		return nil, r.wrap(ctx, "failed to create product", err)
	}
	var created Product
	if err := json.Unmarshal(raw, &created); err != nil {
		return nil, r.wrap(ctx, "failed to create product", fmt.Errorf("%w: %v", api.ErrInvalidResponse, err))
	}
	return &created, nil
}

// Remove deletes the product with the given id. A missing product fails with api.ErrNotFound.
func (r *Repository) Remove(ctx context.Context, id int64) error {
	if _, err := r.client.Request(ctx, http.MethodDelete, fmt.Sprintf("%s%d/", collectionPath, id), nil); err != nil {
		return r.wrap(ctx, "failed to delete product", err)
	}
	return nil
}

// wrap passes domain errors through and hides everything else behind msg.
func (r *Repository) wrap(ctx context.Context, msg string, err error) error {
	if isDomainError(err) {
		return err
	}
	r.logger.WarnContext(ctx, msg, "error", err)
	return &OperationError{Message: msg, Err: err}
}

func isDomainError(err error) bool {
	return errors.Is(err, api.ErrUnauthenticated) ||
		errors.Is(err, api.ErrSessionExpired) ||
		errors.Is(err, api.ErrNotFound) ||
		errors.Is(err, api.ErrValidationFailed)
}
