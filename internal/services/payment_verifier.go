package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"busbooking/internal/utils"

	"github.com/golang-jwt/jwt/v5"
)

const maxGatewayRefLen = 255

var (
	ErrPaymentTokenMissing  = errors.New("payment token is required")
	ErrPaymentTokenInvalid  = errors.New("payment token is invalid")
	ErrPaymentTokenMismatch = errors.New("payment token does not cover this request")
)

// PaymentConfirmation is what the gateway vouched for.
type PaymentConfirmation struct {
	Reference string
}

// PaymentVerifier checks the gateway's confirmation token before any booking is confirmed.
type PaymentVerifier interface {
	Verify(ctx context.Context, token, userID string, bookingIDs []string) (PaymentConfirmation, error)
}

// PaymentClaims is the payload the gateway signs for a successful charge.
type PaymentClaims struct {
	BookingIDs []string `json:"booking_ids"`
	Reference  string   `json:"ref"`
	jwt.RegisteredClaims
}

// SignedTokenVerifier accepts HS256 tokens issued to the paying user that
// cover every booking in the request.
type SignedTokenVerifier struct {
	Secret []byte
}

func (v SignedTokenVerifier) Verify(_ context.Context, token, userID string, bookingIDs []string) (PaymentConfirmation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return PaymentConfirmation{}, ErrPaymentTokenMissing
	}
	claims := &PaymentClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return PaymentConfirmation{}, fmt.Errorf("%w: %v", ErrPaymentTokenInvalid, err)
	}
	if claims.Subject != userID {
		return PaymentConfirmation{}, fmt.Errorf("%w: issued to another user", ErrPaymentTokenMismatch)
	}
	covered := make(map[string]struct{}, len(claims.BookingIDs))
	for _, id := range claims.BookingIDs {
		covered[id] = struct{}{}
	}
	for _, id := range bookingIDs {
		if _, ok := covered[id]; !ok {
			return PaymentConfirmation{}, fmt.Errorf("%w: booking %s not paid", ErrPaymentTokenMismatch, id)
		}
	}
	ref := claims.Reference
	if ref == "" {
		ref = claims.ID
	}
	if ref == "" {
		return PaymentConfirmation{}, fmt.Errorf("%w: missing gateway reference", ErrPaymentTokenInvalid)
	}
	return PaymentConfirmation{Reference: utils.TruncateUTF8(ref, maxGatewayRefLen)}, nil
}

// PassthroughVerifier trusts any non-empty token and records it as the
// gateway reference. Used when no signing secret is configured.
type PassthroughVerifier struct{}

func (PassthroughVerifier) Verify(_ context.Context, token, _ string, _ []string) (PaymentConfirmation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return PaymentConfirmation{}, ErrPaymentTokenMissing
	}
	return PaymentConfirmation{Reference: utils.TruncateUTF8(token, maxGatewayRefLen)}, nil
}

// NewPaymentVerifier picks the signed verifier when a secret is set.
func NewPaymentVerifier(secret string) PaymentVerifier {
	if strings.TrimSpace(secret) == "" {
		return PassthroughVerifier{}
	}
	return SignedTokenVerifier{Secret: []byte(secret)}
}
