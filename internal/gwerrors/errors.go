// Package gwerrors contains all common errors used by the console.
package gwerrors

import "fmt"

var ErrSessionExpired = fmt.Errorf("the session is expired, please log in again")
var ErrMissingCredentials = fmt.Errorf("the required credentials cannot be found")
var ErrInvalidCredentials = fmt.Errorf("invalid username or password")
var ErrTokenNotFound = fmt.Errorf("the token cannot be found")
var ErrRefreshFailed = fmt.Errorf("refreshing the access token failed")
var ErrNotFound = fmt.Errorf("the requested resource cannot be found")
var ErrMissingDBResource = fmt.Errorf("the requested resource cannot be found in the DB")
var ErrValidation = fmt.Errorf("validation failed")
