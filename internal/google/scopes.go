package google

// DefaultOAuthScopes are requested when a person connects their calendar.
//
// The scopes provide access to:
//   - the account email, used to find the person in the LMS
//   - Google Calendar events
var DefaultOAuthScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",

	"https://www.googleapis.com/auth/calendar.events",
}
