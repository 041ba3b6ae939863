package transfer

import "github.com/golang-jwt/jwt/v5"

// DeviceClaims is the payload of the signed device identity cookie.
type DeviceClaims struct {
	DeviceID string `json:"device_id"`
	jwt.RegisteredClaims
}
