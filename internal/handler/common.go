package handler

import (
    "errors"
    "strconv"

    "github.com/labstack/echo/v4"
)

// getCustomerID extracts the authenticated customer's identifier from
// the context.  Customers are identified by the opaque subject the
// identity service put in the token, so the value is kept as a string
// regardless of how the claim was encoded.
func getCustomerID(c echo.Context) (string, error) {
    switch t := c.Get("user_id").(type) {
    case string:
        if t != "" {
            return t, nil
        }
    case float64:
        return strconv.FormatUint(uint64(t), 10), nil
    case uint64:
        return strconv.FormatUint(t, 10), nil
    case int64:
        return strconv.FormatInt(t, 10), nil
    }
    return "", errors.New("invalid user_id in context")
}

// getProviderID extracts the authenticated provider's numeric id from
// the context.
func getProviderID(c echo.Context) (uint64, error) {
    switch t := c.Get("user_id").(type) {
    case uint64:
        return t, nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}
