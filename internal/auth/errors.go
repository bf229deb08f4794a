package auth

import (
	"errors"

	"golang.org/x/oauth2"
)

// asRetrieveError unwraps err looking for an *oauth2.RetrieveError, writing
// it into target when found.
func asRetrieveError(err error, target **oauth2.RetrieveError) bool {
	return errors.As(err, target)
}
