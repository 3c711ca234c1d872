package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const receiptVerifyPath = "/v1/receipts/verify"

// ErrVerifierUnavailable is returned when the verifier could not be reached
// or answered with a server error. A negative verdict is not an error.
var ErrVerifierUnavailable = errors.New("receipt verifier unavailable")

type ReceiptVerificationRequest struct {
	ImageURL  string `json:"image_url"`
	VenueName string `json:"venue_name"`
	City      string `json:"city"`
}

// ExtractedBooking is what the verifier read off the receipt, when it could.
type ExtractedBooking struct {
	BookingReference string    `json:"booking_reference"`
	RoomType         string    `json:"room_type"`
	CheckIn          time.Time `json:"check_in"`
	CheckOut         time.Time `json:"check_out"`
}

type ReceiptVerdict struct {
	Verified bool              `json:"verified"`
	Reason   string            `json:"reason"`
	Booking  *ExtractedBooking `json:"booking,omitempty"`
}

type ReceiptVerifier struct {
	http *HttpClient
}

func NewReceiptVerifier(httpClient *HttpClient) *ReceiptVerifier {
	return &ReceiptVerifier{http: httpClient}
}

func (v *ReceiptVerifier) Verify(ctx context.Context, imageURL, venueName, city string) (ReceiptVerdict, error) {
	resp, err := v.http.POST(ctx, receiptVerifyPath, ReceiptVerificationRequest{
		ImageURL:  imageURL,
		VenueName: venueName,
		City:      city,
	})
	if err != nil {
		return ReceiptVerdict{}, fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return ReceiptVerdict{}, fmt.Errorf("%w: %s", ErrVerifierUnavailable, GetErrorMessage(resp))
	}
	if resp.StatusCode != http.StatusOK {
		return ReceiptVerdict{Verified: false, Reason: GetErrorMessage(resp)}, nil
	}

	var verdict ReceiptVerdict
	if err := resp.DecodeJSON(&verdict); err != nil {
		return ReceiptVerdict{}, fmt.Errorf("%w: malformed response: %v", ErrVerifierUnavailable, err)
	}
	return verdict, nil
}
