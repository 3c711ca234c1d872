package service

import (
	"context"
	"testing"
	"time"

	"staymate/internal/access/gate"
	"staymate/pkg/client"
	"staymate/pkg/clock"
	apperrors "staymate/pkg/errors"
	"staymate/pkg/logger"
	"staymate/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

type stubKeys struct {
	key *model.DigitalKey
}

func (s *stubKeys) ActiveKeyFor(ctx context.Context, userID string, channel model.ChannelID) (*model.DigitalKey, error) {
	return s.key, nil
}

func (s *stubKeys) Grant(ctx context.Context, userID string, conf *model.BookingConfirmation) (*model.DigitalKey, bool, error) {
	return &model.DigitalKey{HotelID: conf.HotelID, Status: model.KeyActive}, true, nil
}

type stubVenues struct{}

func (stubVenues) GetByID(ctx context.Context, id string) (*model.Venue, error) {
	return &model.Venue{ID: id, Name: "Grand Hall", City: "Lisbon", Latitude: 38.7223, Longitude: -9.1393}, nil
}

type stubVerifier struct{}

func (stubVerifier) Verify(ctx context.Context, imageURL, venueName, city string) (client.ReceiptVerdict, error) {
	return client.ReceiptVerdict{Verified: true}, nil
}

type stubReceipts struct{}

func (stubReceipts) PresignDownload(ctx context.Context, key string) (string, error) {
	return "https://bucket.example/" + key, nil
}

func newTestService(keys *stubKeys, clk *clock.FakeClock) *accessService {
	return newAccessService(gate.Deps{
		Keys:     keys,
		Venues:   stubVenues{},
		Verifier: stubVerifier{},
		Receipts: stubReceipts{},
	}, gate.Options{
		RadiusKm: 3,
		Clock:    clk,
		Log:      logger.Discard(),
	}, 30*time.Minute)
}

func TestIsGranted_FastPathAndSessionReuse(t *testing.T) {
	keys := &stubKeys{key: &model.DigitalKey{HotelID: "h1", Status: model.KeyActive}}
	svc := newTestService(keys, clock.Fake(testNow))
	defer svc.Stop()
	ctx := context.Background()

	ok, err := svc.IsGranted(ctx, "u1", model.HotelLobby("h1"))
	require.NoError(t, err)
	assert.True(t, ok)

	keys.key = nil
	ok, err = svc.IsGranted(ctx, "u1", model.HotelLobby("h1"))
	require.NoError(t, err)
	assert.True(t, ok, "granted session is reused")

	ok, err = svc.IsGranted(ctx, "u2", model.HotelLobby("h1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsGranted_PrivateChannelRejected(t *testing.T) {
	svc := newTestService(&stubKeys{}, clock.Fake(testNow))
	defer svc.Stop()

	_, err := svc.IsGranted(context.Background(), "u1", model.PrivateChannel("u1", "u2"))

	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestSessions_ExpireWhenIdle(t *testing.T) {
	clk := clock.Fake(testNow)
	svc := newTestService(&stubKeys{}, clk)
	defer svc.Stop()
	ctx := context.Background()
	channel := model.HotelLobby("h1")

	st, err := svc.VerifyLocation(ctx, "u1", channel, gate.ReportedLocation{Lat: 38.7223, Lng: -9.1393}, "")
	require.NoError(t, err)
	require.Equal(t, gate.Granted, st.State)

	clk.Advance(20 * time.Minute)
	assert.Equal(t, 0, svc.expire())
	assert.Equal(t, gate.Granted, svc.Status("u1", channel).State)

	clk.Advance(31 * time.Minute)
	assert.Equal(t, 1, svc.expire())
	assert.Equal(t, gate.Locked, svc.Status("u1", channel).State)
}

func TestClose_ResetsSession(t *testing.T) {
	svc := newTestService(&stubKeys{}, clock.Fake(testNow))
	defer svc.Stop()
	ctx := context.Background()
	channel := model.HotelLobby("h1")

	_, err := svc.VerifyLocation(ctx, "u1", channel, gate.ReportedLocation{Lat: 38.7223, Lng: -9.1393}, "")
	require.NoError(t, err)

	ok, err := svc.IsGranted(ctx, "u1", channel)
	require.NoError(t, err)
	require.True(t, ok)

	svc.Close("u1", channel)

	ok, err = svc.IsGranted(ctx, "u1", channel)
	require.NoError(t, err)
	assert.False(t, ok, "open streams re-checking access see the closed gate")
	assert.Equal(t, gate.Locked, svc.Status("u1", channel).State)
}

func TestVerifyDocument_ReceiptOwnership(t *testing.T) {
	svc := newTestService(&stubKeys{}, clock.Fake(testNow))
	defer svc.Stop()
	ctx := context.Background()

	_, err := svc.VerifyDocument(ctx, "u1", model.HotelLobby("h1"), "receipts/u2/2026/07/01/x.jpg", "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	st, err := svc.VerifyDocument(ctx, "u1", model.HotelLobby("h1"), "receipts/u1/2026/07/01/x.jpg", "")
	require.NoError(t, err)
	assert.Equal(t, gate.Granted, st.State)
}

func TestVerifyLocation_InvalidCoordinates(t *testing.T) {
	svc := newTestService(&stubKeys{}, clock.Fake(testNow))
	defer svc.Stop()

	_, err := svc.VerifyLocation(context.Background(), "u1", model.HotelLobby("h1"), gate.ReportedLocation{Lat: 123}, "")

	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}
