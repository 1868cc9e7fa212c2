package heaven

import "errors"

// Crawl-fatal error kinds. Failures on individual rows or detail pages
// are absorbed by the crawl and never surface as one of these.
var (
	ErrConnection          = errors.New("portal connection error")
	ErrInvalidCredentials  = errors.New("account id or password is incorrect")
	ErrUnexpectedResponse  = errors.New("portal returned an unrecognized response")
	ErrMissingSessionToken = errors.New("login accepted but no session cookie was issued")
)

const excerptLimit = 800

// excerpt truncates a response body for diagnostics without splitting
// a multibyte character.
func excerpt(body string) string {
	runes := []rune(body)
	if len(runes) <= excerptLimit {
		return body
	}
	return string(runes[:excerptLimit])
}
