package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/snapshot"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/util"
)

func newPolicyService(t *testing.T) (*PolicyService, <-chan snapshot.ChangeEvent) {
	t.Helper()
	bus := util.NewEventBus()
	events := make(chan snapshot.ChangeEvent, 16)
	bus.Subscribe(util.EventPolicyChanged, func(_ context.Context, e util.Event) error {
		events <- e.Payload.(snapshot.ChangeEvent)
		return nil
	})
	svc := NewPolicyService(snapshot.NewMemoryStore(), util.NewValidationUtil(), util.NewNotificationService(), bus)
	return svc, events
}

func nextEvent(t *testing.T, events <-chan snapshot.ChangeEvent) snapshot.ChangeEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no policy change event published")
		return snapshot.ChangeEvent{}
	}
}

func TestPolicyServicePutServicePublishesChange(t *testing.T) {
	svc, events := newPolicyService(t)
	ctx := context.Background()
	entry := model.CatalogEntry{ServiceName: "mail", Enabled: true, Tools: map[string]model.Tag{"send": model.TagGated}}

	_, err := svc.PutService(ctx, entry)
	require.NoError(t, err)
	ev := nextEvent(t, events)
	assert.Equal(t, ChangeKindService, ev.Kind)
	assert.Equal(t, "mail", ev.Subject)
	assert.Equal(t, "created", ev.Change)

	entry.Suspended = true
	_, err = svc.PutService(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, "updated", nextEvent(t, events).Change)

	state, err := svc.GetPolicy(ctx)
	require.NoError(t, err)
	assert.True(t, state.Catalog["mail"].Suspended)
}

func TestPolicyServiceRejectsInvalidData(t *testing.T) {
	svc, events := newPolicyService(t)
	ctx := context.Background()

	_, err := svc.PutService(ctx, model.CatalogEntry{ServiceName: "bad.name"})
	assert.True(t, errors.Is(err, gw_errors.ErrInvalidPolicyData))

	_, err = svc.PutService(ctx, model.CatalogEntry{ServiceName: "mail", Tools: map[string]model.Tag{"send": "secret"}})
	assert.True(t, errors.Is(err, gw_errors.ErrInvalidPolicyData))

	_, err = svc.PutRule(ctx, model.AccessRule{ID: "r1", AllowedServices: []string{"mail"}, AllowedTools: []string{"*"}})
	assert.True(t, errors.Is(err, gw_errors.ErrInvalidPolicyData), "a rule must match someone")

	assert.True(t, errors.Is(svc.Revoke(ctx, ""), gw_errors.ErrInvalidPolicyData))

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPolicyServiceRulesAndRevocations(t *testing.T) {
	svc, events := newPolicyService(t)
	ctx := context.Background()

	_, err := svc.PutRule(ctx, model.AccessRule{
		ID:              "r2",
		Match:           model.RuleMatch{Identity: "alice"},
		AllowedServices: []string{"mail"},
		AllowedTools:    []string{"send"},
	})
	require.NoError(t, err)
	_, err = svc.PutRule(ctx, model.AccessRule{
		ID:              "r1",
		Match:           model.RuleMatch{Claims: map[string]string{"team": "ops"}},
		AllowedServices: []string{"*"},
		AllowedTools:    []string{"*"},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, "mallory"))

	state, err := svc.GetPolicy(ctx)
	require.NoError(t, err)
	require.Len(t, state.AccessRules, 2)
	assert.Equal(t, "r1", state.AccessRules[0].ID)
	assert.Equal(t, []string{"mallory"}, state.Revocations)

	require.NoError(t, svc.DeleteRule(ctx, "r2"))
	assert.True(t, errors.Is(svc.DeleteRule(ctx, "r2"), gw_errors.ErrRuleNotFound))
	assert.True(t, errors.Is(svc.DeleteService(ctx, "nope"), gw_errors.ErrServiceNotFound))
	require.NoError(t, svc.Unrevoke(ctx, "mallory"))

	kinds := map[string]int{}
	for i := 0; i < 5; i++ {
		kinds[nextEvent(t, events).Kind]++
	}
	assert.Equal(t, 3, kinds[ChangeKindRule])
	assert.Equal(t, 2, kinds[ChangeKindRevocation])
}
