package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/ronakseth96/reg-pilot-api/auth"
	"github.com/ronakseth96/reg-pilot-api/registry"
)

// uploadField is the multipart form field carrying the report file.
const uploadField = "upload"

var errNoUploadPart = errors.New("server: multipart body has no upload part")

type loginRequest struct {
	SAID string `json:"said"`
	VLEI string `json:"vlei"`
}

// credentialState is the part of a verifier login response that maps an
// identity to its organization.
type credentialState struct {
	AID string `json:"aid"`
	LEI string `json:"lei"`
}

type dropResponse struct {
	Status string `json:"status"`
	AID    string `json:"aid"`
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "Pong")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(ct); err != nil || mediaType != "application/json" {
		writeMessage(w, http.StatusBadRequest,
			fmt.Sprintf("invalid content type=%s for VC presentation, should be application/json", ct))

		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if isTooLarge(err) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}

		writeMessage(w, http.StatusBadRequest, "invalid JSON body")

		return
	}

	switch {
	case req.SAID == "":
		writeMessage(w, http.StatusBadRequest, "requests with a said is required")
		return
	case req.VLEI == "":
		writeMessage(w, http.StatusBadRequest, "requests with vlei ecr cesr is required")
		return
	}

	resp, err := s.verifier.Login(r.Context(), req.SAID, req.VLEI)
	if err != nil {
		writeVerifierError(w, r, "login", err)
		return
	}

	s.registerCredential(r, resp.Body)
	writeRaw(w, http.StatusOK, resp.Body)
}

func (s *Server) handleCheckLogin(w http.ResponseWriter, r *http.Request) {
	aid := mux.Vars(r)["aid"]

	resp, err := s.verifier.CheckLogin(r.Context(), aid)
	if err != nil {
		writeVerifierError(w, r, "check login", err)
		return
	}

	s.registerCredential(r, resp.Body)
	writeRaw(w, http.StatusOK, resp.Body)
}

// registerCredential maps aid to lei when the verifier response names both.
func (s *Server) registerCredential(r *http.Request, body json.RawMessage) {
	var state credentialState
	if err := json.Unmarshal(body, &state); err != nil || state.AID == "" || state.LEI == "" {
		return
	}

	s.engine.Register(state.AID, state.LEI)
	zerolog.Ctx(r.Context()).Info().Str("aid", state.AID).Str("lei", state.LEI).Msg("identity registered")
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	aid, dig := vars["aid"], vars["dig"]
	logger := zerolog.Ctx(r.Context())

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		if isTooLarge(err) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}

		writeMessage(w, http.StatusBadRequest, "could not read request body")

		return
	}

	contentType := r.Header.Get("Content-Type")

	report, err := extractReport(contentType, raw)
	if err != nil {
		logger.Info().Err(err).Str("aid", aid).Msg("upload body rejected")
		writeMessage(w, http.StatusBadRequest, "upload file part is required")

		return
	}

	if err := s.engine.VerifyDigest(report, dig); err != nil {
		auth.WriteError(w, r, err)
		return
	}

	resp, err := s.verifier.Upload(r.Context(), aid, dig, contentType, raw)
	if err != nil {
		writeVerifierError(w, r, "upload", err)
		return
	}

	s.engine.RecordReport(aid, dig, resp.Body)
	logger.Info().Str("aid", aid).Str("dig", dig).Msg("report accepted")

	writeRaw(w, http.StatusOK, resp.Body)
}

func (s *Server) handleCheckUpload(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	aid, dig := vars["aid"], vars["dig"]

	if _, err := s.engine.AuthorizeDigest(r, aid, dig); err != nil {
		auth.WriteError(w, r, err)
		return
	}

	resp, err := s.verifier.CheckUpload(r.Context(), aid, dig)
	if err != nil {
		writeVerifierError(w, r, "check upload", err)
		return
	}

	writeRaw(w, http.StatusOK, resp.Body)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	res, _ := auth.ResultFromContext(r.Context())

	scope, err := auth.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	reports := s.engine.ListReports(res.Identity, scope)
	if reports == nil {
		reports = []registry.Report{}
	}

	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	res, _ := auth.ResultFromContext(r.Context())

	s.engine.ClearReports(res.Identity)
	zerolog.Ctx(r.Context()).Info().Str("aid", res.Identity).Msg("report status dropped")

	writeJSON(w, http.StatusAccepted, dropResponse{Status: "success", AID: res.Identity})
}

// extractReport returns the report file from a multipart body, or the body
// itself for any other content type.
func extractReport(contentType string, body []byte) ([]byte, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" {
		return body, nil
	}

	mr := multipart.NewReader(bytes.NewReader(body), params["boundary"])

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, errNoUploadPart
		}

		if err != nil {
			return nil, fmt.Errorf("server: read multipart body: %w", err)
		}

		if part.FormName() != uploadField {
			continue
		}

		return io.ReadAll(part)
	}
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
