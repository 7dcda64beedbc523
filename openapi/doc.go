// Package openapi describes an HTTP API as an OpenAPI v3.1.0 document and
// serves it, with a Swagger UI page, from a gorilla/mux router.
//
//	openapi.Handle(r, "/docs", &openapi.Document{
//	    OpenAPI: "3.1.0",
//	    Info:    openapi.Info{Title: "Portal", Version: "1.0.0"},
//	}, nil)
//
// See: https://spec.openapis.org/oas/v3.1.0
package openapi
