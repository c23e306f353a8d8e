package middleware

// identity.go reads the authenticated user out of the echo context.  JWTAuth
// stores the raw "sub" claim; JSON numbers arrive as float64 and some
// issuers send the id as a string, so every representation is accepted.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// UserID returns the authenticated user id set by JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
    switch t := c.Get("user_id").(type) {
    case uint64:
        return t, t > 0
    case int:
        return uint64(t), t > 0
    case int64:
        return uint64(t), t > 0
    case float64:
        return uint64(t), t > 0
    case string:
        n, err := strconv.ParseUint(t, 10, 64)
        return n, err == nil && n > 0
    }
    return 0, false
}

// userKey is the user component of rate limit keys; "anon" when nobody is
// authenticated.
func userKey(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
