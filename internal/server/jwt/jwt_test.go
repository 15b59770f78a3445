package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_IssueValidate(t *testing.T) {
	svc := NewService("cluster-secret", time.Minute)

	token, err := svc.Issue("replica-1")
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "replica-1", claims.ReplicaID)
	assert.Equal(t, issuer, claims.Issuer)
}

func TestService_Rejects(t *testing.T) {
	svc := NewService("cluster-secret", time.Minute)
	good, err := svc.Issue("replica-1")
	require.NoError(t, err)

	expired := NewService("cluster-secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, err := expired.Issue("replica-1")
	require.NoError(t, err)

	other, err := NewService("another-secret", time.Minute).Issue("replica-1")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not.a.token"},
		{name: "expired", token: old},
		{name: "wrong secret", token: other},
		{name: "tampered", token: good + "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Validate(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
