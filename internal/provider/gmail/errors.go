package gmail

import (
	"errors"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/lu-zhengda/mailboard/internal/provider"
)

// classify wraps a Gmail API failure in a typed provider.Error so callers
// dispatch on kind instead of matching message text.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	// Token refresh failures surface as oauth2.RetrieveError with the
	// OAuth error code set. "invalid_grant" means the refresh token was
	// expired or revoked; that is terminal for the account.
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		switch re.ErrorCode {
		case "invalid_grant", "invalid_client", "unauthorized_client":
			return &provider.Error{Kind: provider.KindAuthExpired, Op: op, Err: err}
		}
		return &provider.Error{Kind: provider.KindTransient, Op: op, Err: err}
	}

	var ge *googleapi.Error
	if errors.As(err, &ge) {
		switch ge.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &provider.Error{Kind: provider.KindAuthExpired, Op: op, Err: err}
		case http.StatusTooManyRequests:
			return &provider.Error{Kind: provider.KindRateLimited, Op: op, Err: err}
		case http.StatusNotFound:
			return provider.ErrNotFound
		}
		return &provider.Error{Kind: provider.KindTransient, Op: op, Err: err}
	}

	return &provider.Error{Kind: provider.KindTransient, Op: op, Err: err}
}
