package errx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestAppError_UnwrapAndIs(t *testing.T) {
	err := New(errBoom, http.StatusTeapot, "teapot")

	assert.True(t, errors.Is(err, errBoom))
	assert.Equal(t, "teapot: boom", err.Error())

	var appErr *AppError
	require.True(t, errors.As(fmt.Errorf("outer: %w", err), &appErr))
	assert.Equal(t, http.StatusTeapot, appErr.Status)
}

func TestAppError_NilInner(t *testing.T) {
	err := New(nil, http.StatusBadRequest, "bad")
	assert.Equal(t, "bad", err.Error())
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestWrapRedis(t *testing.T) {
	assert.NoError(t, WrapRedis(nil))
	assert.Equal(t, http.StatusNotFound, StatusOf(WrapRedis(redis.Nil)))
	assert.Equal(t, http.StatusConflict, StatusOf(WrapRedis(redis.TxFailedErr)))
	assert.Equal(t, http.StatusBadGateway, StatusOf(WrapRedis(errBoom)))
	assert.Equal(t, RedisErrorMessage, MessageOf(WrapRedis(errBoom)))

	assert.Equal(t, http.StatusGatewayTimeout, StatusOf(WrapRedis(&net.OpError{Op: "read", Err: timeoutErr{}})))
	assert.Equal(t, StoreTimeoutMessage, MessageOf(WrapRedis(context.DeadlineExceeded)))

	raised := fmt.Errorf("tx: %w", BadRequest(errBoom))
	assert.Same(t, raised, WrapRedis(raised))
	assert.Equal(t, http.StatusBadRequest, StatusOf(WrapRedis(raised)))
}

func TestWrapSQL(t *testing.T) {
	assert.NoError(t, WrapSQL(nil))
	assert.Equal(t, http.StatusNotFound, StatusOf(WrapSQL(sql.ErrNoRows)))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(WrapSQL(errBoom)))
	assert.Equal(t, http.StatusGatewayTimeout, StatusOf(WrapSQL(fmt.Errorf("query: %w", context.DeadlineExceeded))))

	conflict := fmt.Errorf("tx: %w", Conflict(errBoom))
	assert.Equal(t, http.StatusConflict, StatusOf(WrapSQL(conflict)))
}

func TestStatusOf_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errBoom))
	assert.Equal(t, SystemErrorMessage, MessageOf(errBoom))
	assert.Equal(t, http.StatusConflict, StatusOf(fmt.Errorf("wrap: %w", Conflict(errBoom))))
}

func TestInternal(t *testing.T) {
	err := Internal(errors.New("disk full"))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
	assert.Equal(t, SystemErrorMessage, MessageOf(err))
}
