package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithTimeout_KeepsEarlierDeadline(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	ctx, cancel2 := WithTimeout(parent, time.Hour)
	defer cancel2()

	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 10*time.Millisecond)
}

func TestWithTimeout_AppliesTimeout(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Second)
	defer cancel()

	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 50*time.Millisecond)
}

func TestObjectIDFromHex(t *testing.T) {
	_, err := ObjectIDFromHex("not-an-id")
	assert.ErrorIs(t, err, ErrInvalidObjectID)

	oid, err := ObjectIDFromHex("65f0c0ffee0000000000abcd")
	assert.NoError(t, err)
	assert.Equal(t, "65f0c0ffee0000000000abcd", oid.Hex())
}
