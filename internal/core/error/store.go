package errx

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// WrapRedis maps go-redis errors: a missing key is 404, a WATCH conflict
// is 409, a timeout is 504 and anything else is 502.
func WrapRedis(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return New(err, http.StatusNotFound, RedisNotFoundMessage)
	case errors.Is(err, redis.TxFailedErr):
		return New(err, http.StatusConflict, ConflictMessage)
	}
	return wrapStore(err, http.StatusBadGateway, RedisErrorMessage)
}

// WrapSQL maps database/sql errors: no rows is 404, a timeout is 504 and
// anything else is 500.
func WrapSQL(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return New(err, http.StatusNotFound, NotFoundMessage)
	}
	return wrapStore(err, http.StatusInternalServerError, StoreErrorMessage)
}

// wrapStore leaves an AppError raised inside a transaction untouched.
func wrapStore(err error, status int, message string) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	if isTimeout(err) {
		return New(err, http.StatusGatewayTimeout, StoreTimeoutMessage)
	}
	return New(err, status, message)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
