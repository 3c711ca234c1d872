// Package gate holds the per user and channel admission state machine.
package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	accesserrors "staymate/internal/access/errors"
	"staymate/pkg/client"
	"staymate/pkg/clock"
	apperrors "staymate/pkg/errors"
	"staymate/pkg/geo"
	"staymate/pkg/logger"
	"staymate/pkg/model"

	"github.com/google/uuid"
)

type State string

const (
	Locked              State = "locked"
	VerifyingByLocation State = "verifying_by_location"
	VerifyingByDocument State = "verifying_by_document"
	Granted             State = "granted"
	Denied              State = "denied"
)

// Method records how a gate reached Granted.
type Method string

const (
	MethodDigitalKey Method = "digital_key"
	MethodLocation   Method = "location"
	MethodDocument   Method = "document"
	// MethodVerifierDown is only used when fail-open is configured.
	MethodVerifierDown Method = "verifier_unavailable"
)

const (
	ReasonLocationUnsupported = "Location is not available on this device. Verify with your booking receipt instead."
	ReasonPermissionDenied    = "Location permission was denied. Allow location access or verify with your booking receipt."
	ReasonLocationFailed      = "Your location could not be determined. Try again."
	ReasonVerifierUnavailable = "verification service unavailable"
	ReasonReceiptRejected     = "The receipt could not be verified for this hotel."
	ReasonReceiptUnreadable   = "The receipt image could not be read. Upload it again."
	ReasonKeyNotSaved         = "Your receipt was verified but the key could not be saved. Try again."
	ReasonVenueRequired       = "Choose the hotel you are staying at in this city."
	ReasonVenueNotInCity      = "That hotel is not in this city."
	ReasonVenueUnknown        = "This hotel is not available for verification."
	ReasonVenueUnavailable    = "Hotel details could not be loaded. Try again."
	ReasonStayEnded           = "This booking has already ended."
)

// receiptKeyValidity bounds a key synthesized from a receipt that carried
// no stay dates.
const receiptKeyValidity = 24 * time.Hour

type Keys interface {
	ActiveKeyFor(ctx context.Context, userID string, channel model.ChannelID) (*model.DigitalKey, error)
	Grant(ctx context.Context, userID string, conf *model.BookingConfirmation) (*model.DigitalKey, bool, error)
}

type Venues interface {
	GetByID(ctx context.Context, id string) (*model.Venue, error)
}

type ReceiptVerifier interface {
	Verify(ctx context.Context, imageURL, venueName, city string) (client.ReceiptVerdict, error)
}

// Receipts turns an uploaded receipt object key into a URL the verifier
// can fetch.
type Receipts interface {
	PresignDownload(ctx context.Context, key string) (string, error)
}

type Deps struct {
	Keys     Keys
	Venues   Venues
	Verifier ReceiptVerifier
	Receipts Receipts
}

type Options struct {
	RadiusKm float64
	FailOpen bool
	Clock    clock.Clock
	Log      *logger.Logger
}

type Status struct {
	ChannelID  model.ChannelID   `json:"channel_id"`
	State      State             `json:"state"`
	Method     Method            `json:"method,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	DistanceKm *float64          `json:"distance_km,omitempty"`
	Key        *model.DigitalKey `json:"key,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Gate decides whether one user may take part in one channel. Verification
// calls block on their collaborators without holding the lock, so a result
// is applied only if the gate is still open and no newer attempt started.
type Gate struct {
	mu         sync.Mutex
	userID     string
	channel    model.ChannelID
	status     Status
	generation uint64
	closed     bool

	deps Deps
	opts Options
	log  *logger.Logger
}

func New(userID string, channel model.ChannelID, deps Deps, opts Options) *Gate {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}
	return &Gate{
		userID:  userID,
		channel: channel,
		status: Status{
			ChannelID: channel,
			State:     Locked,
			UpdatedAt: opts.Clock.Now(),
		},
		deps: deps,
		opts: opts,
		log:  opts.Log.With("user_id", userID, "channel_id", channel.String()),
	}
}

func (g *Gate) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// AllowsMessaging reports whether the user may send to and receive from the
// channel.
func (g *Gate) AllowsMessaging() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.closed && g.status.State == Granted
}

// Close tears the gate down. Results of verifications still in flight are
// dropped when they arrive.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.generation++
}

func (g *Gate) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// Open grants immediately when the user holds an active key for the venue
// or city. Otherwise the state is left as is.
func (g *Gate) Open(ctx context.Context) (Status, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return Status{}, accesserrors.ErrStale
	}
	if g.status.State == Granted {
		defer g.mu.Unlock()
		return g.status, nil
	}
	gen := g.generation
	g.mu.Unlock()

	if !g.channel.IsLobby() {
		return g.Status(), accesserrors.ErrNotLobby
	}

	key, err := g.deps.Keys.ActiveKeyFor(ctx, g.userID, g.channel)
	if err != nil {
		g.log.Warn("Digital key lookup failed", "error", err)
		return g.Status(), err
	}

	return g.finish(gen, func(s *Status) {
		if key != nil {
			g.toGranted(s, MethodDigitalKey, key, nil)
			g.log.Info("Access granted by digital key", "booking_reference", key.BookingReference)
		}
	})
}

// VerifyByLocation grants when the device is strictly closer than the
// configured radius to the venue. venueID picks the hotel in a city lobby and
// is ignored for hotel lobbies.
func (g *Gate) VerifyByLocation(ctx context.Context, provider LocationProvider, venueID string) (Status, error) {
	gen, st, proceed, err := g.begin(VerifyingByLocation)
	if !proceed {
		return st, err
	}

	venue, reason, err := g.resolveVenue(ctx, venueID)
	if reason != "" {
		st, staleErr := g.deny(gen, reason, nil)
		return st, firstErr(staleErr, err)
	}

	pos, err := provider.CurrentPosition(ctx)
	if err != nil {
		switch {
		case errors.Is(err, accesserrors.ErrLocationUnsupported):
			return g.deny(gen, ReasonLocationUnsupported, nil)
		case errors.Is(err, accesserrors.ErrPermissionDenied):
			return g.deny(gen, ReasonPermissionDenied, nil)
		default:
			g.log.Warn("Location lookup failed", "error", err)
			return g.deny(gen, ReasonLocationFailed, nil)
		}
	}

	distance := geo.DistanceKm(pos, geo.Point{Lat: venue.Latitude, Lng: venue.Longitude})
	if distance < g.opts.RadiusKm {
		return g.finish(gen, func(s *Status) {
			g.toGranted(s, MethodLocation, nil, &distance)
			g.log.Info("Access granted by location", "venue_id", venue.ID, "distance_km", distance)
		})
	}

	g.log.Info("Access denied by location", "venue_id", venue.ID, "distance_km", distance)
	return g.deny(gen, OutOfRangeReason(distance, g.opts.RadiusKm, venue.Name), &distance)
}

// VerifyByDocument asks the receipt verifier about an uploaded receipt and,
// on success, stores a digital key before granting.
func (g *Gate) VerifyByDocument(ctx context.Context, receiptKey, venueID string) (Status, error) {
	gen, st, proceed, err := g.begin(VerifyingByDocument)
	if !proceed {
		return st, err
	}

	venue, reason, err := g.resolveVenue(ctx, venueID)
	if reason != "" {
		st, staleErr := g.deny(gen, reason, nil)
		return st, firstErr(staleErr, err)
	}

	imageURL, err := g.deps.Receipts.PresignDownload(ctx, receiptKey)
	if err != nil {
		g.log.Warn("Failed to presign receipt", "receipt_key", receiptKey, "error", err)
		return g.deny(gen, ReasonReceiptUnreadable, nil)
	}

	verdict, err := g.deps.Verifier.Verify(ctx, imageURL, venue.Name, venue.City)
	if err != nil {
		g.log.Warn("Receipt verifier unreachable", "fail_open", g.opts.FailOpen, "error", err)
		if g.opts.FailOpen {
			return g.finish(gen, func(s *Status) {
				g.toGranted(s, MethodVerifierDown, nil, nil)
			})
		}
		return g.deny(gen, ReasonVerifierUnavailable, nil)
	}

	if !verdict.Verified {
		reason := strings.TrimSpace(verdict.Reason)
		if reason == "" {
			reason = ReasonReceiptRejected
		}
		g.log.Info("Receipt rejected", "venue_id", venue.ID, "reason", reason)
		return g.deny(gen, reason, nil)
	}

	if !g.current(gen) {
		return Status{}, accesserrors.ErrStale
	}

	now := g.opts.Clock.Now().UTC()
	conf := confirmationFromReceipt(venue, verdict.Booking, now)
	if !conf.CheckOut.After(now) {
		return g.deny(gen, ReasonStayEnded, nil)
	}
	key, _, err := g.deps.Keys.Grant(ctx, g.userID, conf)
	if err != nil {
		g.log.Error("Failed to store digital key from receipt", "venue_id", venue.ID, "error", err)
		st, staleErr := g.deny(gen, ReasonKeyNotSaved, nil)
		return st, firstErr(staleErr, err)
	}
	if !g.current(gen) {
		// The key stays stored; the next Open grants through it.
		g.log.Info("Gate closed while storing digital key", "venue_id", venue.ID, "booking_reference", conf.BookingReference)
		return Status{}, accesserrors.ErrStale
	}

	return g.finish(gen, func(s *Status) {
		g.toGranted(s, MethodDocument, key, nil)
		g.log.Info("Access granted by receipt", "venue_id", venue.ID, "booking_reference", conf.BookingReference)
	})
}

// OutOfRangeReason formats the distance with one decimal.
func OutOfRangeReason(distanceKm, radiusKm float64, venueName string) string {
	if venueName == "" {
		venueName = "the hotel"
	}
	return fmt.Sprintf("You are %.1f km away from %s. You need to be within %.1f km to join this lobby.", distanceKm, venueName, radiusKm)
}

// begin moves the gate into a verifying state and returns the attempt
// generation. proceed is false when the gate is closed or already granted.
func (g *Gate) begin(next State) (uint64, Status, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return 0, Status{}, false, accesserrors.ErrStale
	}
	if g.status.State == Granted {
		return 0, g.status, false, nil
	}
	if !g.channel.IsLobby() {
		return 0, g.status, false, accesserrors.ErrNotLobby
	}

	g.generation++
	g.status = Status{
		ChannelID: g.channel,
		State:     next,
		UpdatedAt: g.opts.Clock.Now(),
	}
	return g.generation, g.status, true, nil
}

func (g *Gate) current(gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.closed && gen == g.generation
}

func (g *Gate) finish(gen uint64, apply func(s *Status)) (Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed || gen != g.generation {
		g.log.Debug("Discarding stale verification result")
		return Status{}, accesserrors.ErrStale
	}
	apply(&g.status)
	return g.status, nil
}

func (g *Gate) deny(gen uint64, reason string, distance *float64) (Status, error) {
	return g.finish(gen, func(s *Status) {
		*s = Status{
			ChannelID:  g.channel,
			State:      Denied,
			Reason:     reason,
			DistanceKm: distance,
			UpdatedAt:  g.opts.Clock.Now(),
		}
	})
}

func (g *Gate) toGranted(s *Status, method Method, key *model.DigitalKey, distance *float64) {
	*s = Status{
		ChannelID:  g.channel,
		State:      Granted,
		Method:     method,
		DistanceKm: distance,
		Key:        key,
		UpdatedAt:  g.opts.Clock.Now(),
	}
}

// resolveVenue returns a denial reason for problems the user can fix, and an
// error as well when the cause was infrastructure.
func (g *Gate) resolveVenue(ctx context.Context, venueID string) (*model.Venue, string, error) {
	if g.channel.Kind() == model.ChannelHotelLobby {
		venueID = g.channel.VenueID()
	}
	if venueID == "" {
		return nil, ReasonVenueRequired, nil
	}

	venue, err := g.deps.Venues.GetByID(ctx, venueID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return nil, ReasonVenueUnknown, nil
		}
		g.log.Error("Failed to load venue", "venue_id", venueID, "error", err)
		return nil, ReasonVenueUnavailable, err
	}

	if g.channel.Kind() == model.ChannelCityLobby && model.CitySlug(venue.City) != g.channel.CitySlug() {
		return nil, ReasonVenueNotInCity, nil
	}
	return venue, "", nil
}

func confirmationFromReceipt(venue *model.Venue, booking *client.ExtractedBooking, now time.Time) *model.BookingConfirmation {
	conf := &model.BookingConfirmation{
		HotelID:   venue.ID,
		HotelName: venue.Name,
		City:      venue.City,
		CheckIn:   now,
		CheckOut:  now.Add(receiptKeyValidity),
	}
	if booking != nil {
		conf.RoomType = booking.RoomType
		conf.BookingReference = strings.TrimSpace(booking.BookingReference)
		if !booking.CheckIn.IsZero() && booking.CheckOut.After(booking.CheckIn) {
			conf.CheckIn = booking.CheckIn.UTC()
			conf.CheckOut = booking.CheckOut.UTC()
		}
	}
	if conf.BookingReference == "" {
		conf.BookingReference = "RCPT-" + strings.ToUpper(uuid.NewString()[:8])
	}
	return conf
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
