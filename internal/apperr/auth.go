package apperr

// Identity error codes.
const (
	AuthUserNotFound       = "auth/user-not-found"
	AuthWrongPassword      = "auth/wrong-password"
	AuthEmailInUse         = "auth/email-already-in-use"
	AuthWeakPassword       = "auth/weak-password"
	AuthInvalidEmail       = "auth/invalid-email"
	AuthInvalidDisplayName = "auth/invalid-display-name"
	AuthMissingPassword    = "auth/missing-password"
	AuthInvalidCredential  = "auth/invalid-credential"
	AuthTokenExpired       = "auth/user-token-expired"
	AuthInsufficientPerm   = "auth/insufficient-permission"
	AuthUnavailable        = "auth/unavailable"
	AuthUnknown            = "auth/unknown"
)

var authMessages = map[string]string{
	AuthUserNotFound:       "No account found with this email address.",
	AuthWrongPassword:      "Incorrect password. Please try again.",
	AuthEmailInUse:         "An account with this email already exists.",
	AuthWeakPassword:       "Password should be at least 8 characters long.",
	AuthInvalidEmail:       "Please enter a valid email address.",
	AuthInvalidDisplayName: "Display name can only contain letters and spaces.",
	AuthMissingPassword:    "Password is required.",
	AuthInvalidCredential:  "Invalid credentials.",
	AuthTokenExpired:       "Your session has expired. Please sign in again.",
	AuthInsufficientPerm:   "You do not have permission to perform this action.",
	AuthUnavailable:        "Service is currently unavailable. Please try again later.",
	AuthUnknown:            "An unknown error occurred. Please try again.",
}

// AuthMessage maps an identity error code to a user-readable string.
func AuthMessage(code string) string {
	if msg, ok := authMessages[code]; ok {
		return msg
	}
	return authMessages[AuthUnknown]
}

// AuthError builds an identity error. An empty message uses the code's default text.
func AuthError(kind Kind, code, message string) *Error {
	if message == "" {
		message = AuthMessage(code)
	}
	return &Error{Kind: kind, Code: code, Message: message}
}
