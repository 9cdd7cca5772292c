package storage

import "context"

// Store is the key-value contract the ledgers persist through. Values are
// serialized JSON documents. Get reports found=false for an absent key.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Keys shared with the original web client's storage layout
const (
	SoldItemsKey          = "soldItems"
	UsersKey              = "users"
	CurrentUserKey        = "current_user"
	LegacyProductsKey     = "products"
	LastCartUpdateKey     = "last_cart_update"
	LastProductsUpdateKey = "last_products_update"
)

// ProductsKey is the per-user products namespace
func ProductsKey(user string) string {
	return "products_" + user
}

// CartKey is the per-user cart namespace
func CartKey(user string) string {
	return "cart_" + user
}
