package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"staymate/internal/access/gate"
	apperrors "staymate/pkg/errors"
	"staymate/pkg/logger"
	"staymate/pkg/middleware"
	"staymate/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAccessService struct {
	openFunc           func(ctx context.Context, userID string, channel model.ChannelID) (gate.Status, error)
	verifyLocationFunc func(ctx context.Context, userID string, channel model.ChannelID, location gate.ReportedLocation, venueID string) (gate.Status, error)
	verifyDocumentFunc func(ctx context.Context, userID string, channel model.ChannelID, receiptKey, venueID string) (gate.Status, error)
	closed             []model.ChannelID
}

func (m *mockAccessService) Open(ctx context.Context, userID string, channel model.ChannelID) (gate.Status, error) {
	return m.openFunc(ctx, userID, channel)
}

func (m *mockAccessService) VerifyLocation(ctx context.Context, userID string, channel model.ChannelID, location gate.ReportedLocation, venueID string) (gate.Status, error) {
	return m.verifyLocationFunc(ctx, userID, channel, location, venueID)
}

func (m *mockAccessService) VerifyDocument(ctx context.Context, userID string, channel model.ChannelID, receiptKey, venueID string) (gate.Status, error) {
	return m.verifyDocumentFunc(ctx, userID, channel, receiptKey, venueID)
}

func (m *mockAccessService) Status(userID string, channel model.ChannelID) gate.Status {
	return gate.Status{ChannelID: channel, State: gate.Locked}
}

func (m *mockAccessService) Close(userID string, channel model.ChannelID) {
	m.closed = append(m.closed, channel)
}

func (m *mockAccessService) IsGranted(ctx context.Context, userID string, channel model.ChannelID) (bool, error) {
	return false, nil
}

func (m *mockAccessService) Stop() {}

func serve(svc *mockAccessService, method, path, body string) *httptest.ResponseRecorder {
	router := httprouter.New()
	NewAccessHandler(svc, logger.Discard()).RegisterRoutes(router)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUser(req.Context(), "u1", "Ana"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestOpen_GrantedByKey(t *testing.T) {
	svc := &mockAccessService{openFunc: func(ctx context.Context, userID string, channel model.ChannelID) (gate.Status, error) {
		assert.Equal(t, "u1", userID)
		return gate.Status{ChannelID: channel, State: gate.Granted, Method: gate.MethodDigitalKey}, nil
	}}

	rec := serve(svc, http.MethodPost, "/api/v1/channels/lobby:hotel:h1/access/open", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data gate.Status `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, gate.Granted, resp.Data.State)
	assert.Equal(t, model.ChannelID("lobby:hotel:h1"), resp.Data.ChannelID)
}

func TestVerifyLocation_DeniedCarriesDistance(t *testing.T) {
	distance := 3.1
	svc := &mockAccessService{verifyLocationFunc: func(ctx context.Context, userID string, channel model.ChannelID, location gate.ReportedLocation, venueID string) (gate.Status, error) {
		assert.InDelta(t, 48.85, location.Lat, 1e-9)
		return gate.Status{ChannelID: channel, State: gate.Denied, Reason: "You are 3.1 km away", DistanceKm: &distance}, nil
	}}

	rec := serve(svc, http.MethodPost, "/api/v1/channels/lobby:hotel:h1/access/location", `{"lat":48.85,"lng":2.35}`)

	require.Equal(t, http.StatusForbidden, rec.Code)
	var resp struct {
		Code    string         `json:"code"`
		Error   string         `json:"error"`
		Details map[string]any `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.CodeVerificationFailed, resp.Code)
	assert.Contains(t, resp.Error, "3.1")
	assert.InDelta(t, 3.1, resp.Details["distance_km"], 1e-9)
}

func TestVerifyDocument_RequiresReceiptKey(t *testing.T) {
	svc := &mockAccessService{verifyDocumentFunc: func(ctx context.Context, userID string, channel model.ChannelID, receiptKey, venueID string) (gate.Status, error) {
		t.Fatal("service must not be called")
		return gate.Status{}, nil
	}}

	rec := serve(svc, http.MethodPost, "/api/v1/channels/lobby:hotel:h1/access/document", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOpen_InvalidChannel(t *testing.T) {
	rec := serve(&mockAccessService{}, http.MethodPost, "/api/v1/channels/nonsense/access/open", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClose_ForgetsSession(t *testing.T) {
	svc := &mockAccessService{}

	rec := serve(svc, http.MethodDelete, "/api/v1/channels/lobby:city:lisbon/access", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []model.ChannelID{"lobby:city:lisbon"}, svc.closed)
}
