package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_IsExpired(t *testing.T) {
	assert.True(t, (&Session{ExpiresAt: time.Now().Add(-time.Minute)}).IsExpired())
	assert.False(t, (&Session{ExpiresAt: time.Now().Add(time.Hour)}).IsExpired())
}

func TestSession_Touch(t *testing.T) {
	s := &Session{}
	s.Touch()
	assert.WithinDuration(t, time.Now(), s.LastSeenAt, time.Second)
}
