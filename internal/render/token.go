package render

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TrackingInfo identifies the mail a tracker callback belongs to.
type TrackingInfo struct {
	CampaignID  string
	GroupID     string
	RecipientID string
}

// TokenCodec signs and verifies the correlation tokens embedded in tracked
// links and the open pixel.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), ttl: ttl}
}

func (c *TokenCodec) Generate(campaignID, groupID, recipientID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"cid": campaignID,
		"gid": groupID,
		"rid": recipientID,
		"iat": now.Unix(),
		"exp": now.Add(c.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

func (c *TokenCodec) Verify(token string) (TrackingInfo, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return TrackingInfo{}, fmt.Errorf("invalid tracking token: %w", err)
	}

	info := TrackingInfo{}
	if cid, ok := claims["cid"].(string); ok {
		info.CampaignID = cid
	}
	if gid, ok := claims["gid"].(string); ok {
		info.GroupID = gid
	}
	if rid, ok := claims["rid"].(string); ok {
		info.RecipientID = rid
	}
	if info.CampaignID == "" || info.GroupID == "" || info.RecipientID == "" {
		return TrackingInfo{}, fmt.Errorf("tracking token missing claims")
	}
	return info, nil
}
