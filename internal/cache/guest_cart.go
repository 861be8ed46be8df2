package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/models"
)

// Guest carts live in Redis under "guest_cart:<token>" and expire after 30
// days of inactivity. The token travels in the X-Guest-Token header.
const (
	guestCartKeyPrefix = "guest_cart:"
	guestCartTTL       = 30 * 24 * time.Hour
)

var ErrGuestCartNotFound = errors.New("guest cart not found")

// NewGuestCart mints an empty cart with a fresh random token. Nothing is
// written until the first save.
func NewGuestCart() *models.GuestCart {
	return &models.GuestCart{
		Token:      uuid.NewString(),
		NextItemID: 1,
		UpdatedAt:  time.Now(),
	}
}

// GetGuestCart loads a guest cart by token.
func GetGuestCart(ctx context.Context, rdb *redis.Client, token string) (*models.GuestCart, error) {
	raw, err := rdb.Get(ctx, guestCartKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrGuestCartNotFound
	}
	if err != nil {
		return nil, err
	}

	var cart models.GuestCart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// SaveGuestCart writes the cart back and refreshes its TTL.
func SaveGuestCart(ctx context.Context, rdb *redis.Client, cart *models.GuestCart) error {
	cart.UpdatedAt = time.Now()
	raw, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, guestCartKeyPrefix+cart.Token, raw, guestCartTTL).Err()
}

// DeleteGuestCart removes the cart, e.g. after a merge into a user cart.
func DeleteGuestCart(ctx context.Context, rdb *redis.Client, token string) error {
	return rdb.Del(ctx, guestCartKeyPrefix+token).Err()
}
