package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvisioner struct {
	users []string
	err   error
}

func (f *fakeProvisioner) Provision(ctx context.Context, userID string) error {
	if f.err != nil {
		return f.err
	}
	f.users = append(f.users, userID)
	return nil
}

func TestProcessUserRegistered(t *testing.T) {
	p := &fakeProvisioner{}
	c := &EventConsumer{provisioner: p}

	body := []byte(`{"id":"evt-1","type":"user.registered","timestamp":1700000000,"version":"1.0","user_id":"u-42","username":"ada","email":"ada@example.com"}`)
	require.NoError(t, c.processMessage("user.registered", body))
	assert.Equal(t, []string{"u-42"}, p.users)
}

func TestProcessMessageDropsUnusablePayloads(t *testing.T) {
	p := &fakeProvisioner{}
	c := &EventConsumer{provisioner: p}

	assert.NoError(t, c.processMessage("user.registered", []byte(`{not json`)))
	assert.NoError(t, c.processMessage("user.registered", []byte(`{"user_id":"  "}`)))
	assert.NoError(t, c.processMessage("user.deleted", []byte(`{"user_id":"u-1"}`)))
	assert.Empty(t, p.users)
}

func TestProcessUserRegisteredProvisionFailureIsRetried(t *testing.T) {
	p := &fakeProvisioner{err: errors.New("mongo down")}
	c := &EventConsumer{provisioner: p}

	err := c.processMessage("user.registered", []byte(`{"user_id":"u-7"}`))
	assert.Error(t, err, "an error nacks the message for redelivery")
}

func TestDisabledConsumerAndPublisher(t *testing.T) {
	c, err := NewEventConsumer("", "queue", &fakeProvisioner{})
	require.NoError(t, err)
	assert.NoError(t, c.Start())
	assert.NoError(t, c.Close())

	p, err := NewEventPublisher("", "placement.events")
	require.NoError(t, err)
	assert.NoError(t, p.PublishPlacementEvent(newPlacementEvent("placement.started", "s-1", "u-1", "Mathematics")))
	assert.NoError(t, p.Close())
}
