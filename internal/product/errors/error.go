// Package errors provides the sentinel errors of the product service.
package errors

import "errors"

var ErrProductNotFound = errors.New("product not found")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrInvalidToken = errors.New("invalid token")
