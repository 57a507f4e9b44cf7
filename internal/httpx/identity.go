package httpx

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/organicgreen/go-shop/internal/shop"
)

const (
	headerUserID       = "X-User-Id"
	headerSessionToken = "X-Session-Token"
)

// identityFrom resolves the caller's identity. The upstream auth layer sets
// X-User-Id for authenticated requests; anonymous callers carry an opaque
// X-Session-Token. A missing token is minted here and echoed back so the
// client can keep it.
func identityFrom(w http.ResponseWriter, r *http.Request) shop.Identity {
	if userID := r.Header.Get(headerUserID); userID != "" {
		return shop.UserIdentity(userID)
	}
	token := r.Header.Get(headerSessionToken)
	if token == "" {
		token = uuid.NewString()
	}
	w.Header().Set(headerSessionToken, token)
	return shop.SessionIdentity(token)
}

// ownerKey is the cache-scope component of an identity: the user id or the
// session token, whichever owns the cart and orders.
func ownerKey(id shop.Identity) string {
	if id.Authenticated() {
		return id.UserID
	}
	return id.SessionToken
}
