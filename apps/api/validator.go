package main

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"

	"github.com/zenGate-Global/palmyra-taskhub/platform/go/httpapi"
	platformmiddleware "github.com/zenGate-Global/palmyra-taskhub/platform/go/middleware"
)

// newSpecValidator builds the request validator for the contract. Rejections use the API envelope.
func newSpecValidator(spec *openapi3.T) func(http.Handler) http.Handler {
	return oapimiddleware.OapiRequestValidatorWithOptions(spec, &oapimiddleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: platformmiddleware.ValidateAuthenticationViaSwagger,
		},
		ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
			httpapi.Fail(w, statusCode, message)
		},
	})
}
