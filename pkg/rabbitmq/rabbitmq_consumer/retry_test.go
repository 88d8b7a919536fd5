package rabbitmq_consumer

import (
	"errors"
	"fmt"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

func TestDeathCount(t *testing.T) {
	headers := amqp.Table{
		"x-death": []interface{}{
			amqp.Table{"queue": "retry_wait", "count": int64(7)},
			amqp.Table{"queue": "main", "count": int64(2)},
		},
	}
	assert.Equal(t, int64(2), deathCount(headers, "main"))
	assert.Equal(t, int64(0), deathCount(headers, "other"))
	assert.Equal(t, int64(0), deathCount(nil, "main"))
	assert.Equal(t, int64(0), deathCount(amqp.Table{"x-death": "garbage"}, "main"))
}

func TestDecideOnFailure(t *testing.T) {
	transient := errors.New("db down")
	permanent := fmt.Errorf("bad payload: %w", ErrPermanent)

	assert.Equal(t, actionDrop, decideOnFailure(transient, false, 0, 3))
	assert.Equal(t, actionRetry, decideOnFailure(transient, true, 2, 3))
	assert.Equal(t, actionDeadLetter, decideOnFailure(transient, true, 3, 3))
	assert.Equal(t, actionDeadLetter, decideOnFailure(permanent, true, 0, 3))
}
