package server

import (
	"github.com/ronakseth96/reg-pilot-api/openapi"
)

var signedHeaders = []*openapi.Parameter{
	{Name: "Signature", In: "header", Required: true, Description: "Signify signature over the covered components.", Schema: &openapi.Schema{Type: "string"}},
	{Name: "Signature-Input", In: "header", Required: true, Description: "Covered components and parameters under the signify label.", Schema: &openapi.Schema{Type: "string"}},
	{Name: "Signify-Resource", In: "header", Required: true, Description: "Identifier of the signer.", Schema: &openapi.Schema{Type: "string"}},
	{Name: "Signify-Timestamp", In: "header", Required: true, Description: "Signing time.", Schema: &openapi.Schema{Type: "string", Format: "date-time"}},
}

func signedParams(params ...*openapi.Parameter) []*openapi.Parameter {
	return append(params, signedHeaders...)
}

func jsonResponse(description, schema string) *openapi.Response {
	return &openapi.Response{Description: description, Content: openapi.JSONContent(openapi.Ref(schema))}
}

// apiDocument describes the portal routes.
func apiDocument() *openapi.Document {
	aid := openapi.PathParam("aid", "Autonomous identifier of the submitter.")
	dig := openapi.PathParam("dig", "Report digest, sha256-<hex>.")

	failures := map[string]*openapi.Response{
		"400": jsonResponse("Malformed request or digest", "Message"),
		"401": jsonResponse("Signature headers rejected", "Message"),
		"403": jsonResponse("Identity may not access the report", "Message"),
		"502": jsonResponse("Verifier unavailable", "Message"),
	}

	with := func(ok map[string]*openapi.Response) map[string]*openapi.Response {
		for code, resp := range failures {
			ok[code] = resp
		}

		return ok
	}

	return &openapi.Document{
		OpenAPI: "3.1.0",
		Info: openapi.Info{
			Title:       "Regulatory Report Submission Portal",
			Description: "Signed report submission backed by vLEI credentials.",
			Version:     "1.0.0",
		},
		Tags: []openapi.Tag{{Name: "login"}, {Name: "reports"}, {Name: "health"}},
		Paths: map[string]*openapi.PathItem{
			"/ping": {Get: &openapi.Operation{
				Tags:        []string{"health"},
				OperationID: "ping",
				Responses: map[string]*openapi.Response{"200": {
					Description: "Pong",
					Content:     map[string]*openapi.MediaType{"text/plain": {Example: "Pong"}},
				}},
			}},
			"/login": {Post: &openapi.Operation{
				Tags:        []string{"login"},
				OperationID: "login",
				Summary:     "Present a vLEI credential",
				RequestBody: &openapi.RequestBody{Required: true, Content: openapi.JSONContent(openapi.Ref("LoginRequest"))},
				Responses:   with(map[string]*openapi.Response{"200": jsonResponse("Credential accepted", "Credential")}),
			}},
			"/checklogin/{aid}": {Get: &openapi.Operation{
				Tags:        []string{"login"},
				OperationID: "checkLogin",
				Parameters:  []*openapi.Parameter{aid},
				Responses:   with(map[string]*openapi.Response{"200": jsonResponse("Login state", "Credential")}),
			}},
			"/upload/{aid}/{dig}": {
				Post: &openapi.Operation{
					Tags:        []string{"reports"},
					OperationID: "upload",
					Summary:     "Submit a signed report package",
					Parameters:  signedParams(aid, dig),
					RequestBody: &openapi.RequestBody{Required: true, Content: map[string]*openapi.MediaType{
						"multipart/form-data": {Schema: &openapi.Schema{
							Type:       "object",
							Properties: map[string]*openapi.Schema{"upload": {Type: "string", Format: "binary"}},
							Required:   []string{"upload"},
						}},
						"application/zip": {Schema: &openapi.Schema{Type: "string", Format: "binary"}},
					}},
					Responses: with(map[string]*openapi.Response{"200": jsonResponse("Report verification status", "UploadStatus")}),
				},
				Get: &openapi.Operation{
					Tags:        []string{"reports"},
					OperationID: "checkUpload",
					Parameters:  signedParams(aid, dig),
					Responses:   with(map[string]*openapi.Response{"200": jsonResponse("Report verification status", "UploadStatus")}),
				},
			},
			"/status/{aid}": {Get: &openapi.Operation{
				Tags:        []string{"reports"},
				OperationID: "status",
				Parameters: signedParams(aid, &openapi.Parameter{
					Name:   "scope",
					In:     "query",
					Schema: &openapi.Schema{Type: "string", Enum: []any{"own", "organization"}},
				}),
				Responses: with(map[string]*openapi.Response{"200": {
					Description: "Reports visible to the identity",
					Content:     openapi.JSONContent(&openapi.Schema{Type: "array", Items: openapi.Ref("Report")}),
				}}),
			}},
			"/status/{aid}/drop": {Post: &openapi.Operation{
				Tags:        []string{"reports"},
				OperationID: "dropStatus",
				Parameters:  signedParams(aid),
				Responses: with(map[string]*openapi.Response{"202": {
					Description: "Report list cleared",
					Content: openapi.JSONContent(&openapi.Schema{Type: "object", Properties: map[string]*openapi.Schema{
						"status": {Type: "string", Example: "success"},
						"aid":    {Type: "string"},
					}}),
				}}),
			}},
		},
		Components: &openapi.Components{
			Schemas: map[string]*openapi.Schema{
				"Message": {Type: "object", Properties: map[string]*openapi.Schema{"msg": {Type: "string"}}},
				"LoginRequest": {
					Type:     "object",
					Required: []string{"said", "vlei"},
					Properties: map[string]*openapi.Schema{
						"said": {Type: "string", Description: "SAID of the credential."},
						"vlei": {Type: "string", Description: "vLEI ECR credential as CESR."},
					},
				},
				"Credential": {Type: "object", Properties: map[string]*openapi.Schema{
					"aid":  {Type: "string"},
					"said": {Type: "string"},
					"lei":  {Type: "string"},
					"msg":  {Type: "string"},
				}},
				"UploadStatus": {Type: "object", Description: "Verification status as reported by the verifier."},
				"Report": {
					Type:     "object",
					Required: []string{"aid", "dig", "received_at"},
					Properties: map[string]*openapi.Schema{
						"aid":         {Type: "string"},
						"dig":         {Type: "string"},
						"report":      openapi.Ref("UploadStatus"),
						"received_at": {Type: "string", Format: "date-time"},
					},
				},
			},
		},
	}
}
