package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
)

func TestAdmissionGate_Decide(t *testing.T) {
	reviewers := Reviewers{ChatID: -100, AdminIDs: []int64{1}}
	users := newMemUsers(
		entity.User{ID: 10, Status: entity.StatusApproved},
		entity.User{ID: 11, Status: entity.StatusPending},
		entity.User{ID: 12, Status: entity.StatusRejected},
	)
	gate := NewAdmissionGate(users, reviewers, newFakeTransport(), quietLogger())

	msg := func(id int64, text string) *entity.Event {
		return &entity.Event{Kind: entity.KindMessage, Actor: entity.Actor{ID: id}, ChatID: id, Text: text}
	}

	cases := []struct {
		name string
		ev   *entity.Event
		want Decision
	}{
		{"admin", msg(1, "hello"), Decision{Verdict: VerdictAllow, Role: entity.RoleAdmin}},
		{"admin bootstrap", msg(1, "/start"), Decision{Verdict: VerdictAllow, Role: entity.RoleAdmin}},
		{"bootstrap of stranger", msg(99, "/start"), Decision{Verdict: VerdictAllowBootstrapOnly, Role: entity.RoleUser}},
		{"bootstrap with bot name", msg(12, "/start@pulse_bot"), Decision{Verdict: VerdictAllowBootstrapOnly, Role: entity.RoleUser}},
		{"approved", msg(10, "hi"), Decision{Verdict: VerdictAllow, Role: entity.RoleUser}},
		{"pending", msg(11, "hi"), Decision{Verdict: VerdictDeny, Reason: ReasonPending, Role: entity.RoleUser}},
		{"rejected", msg(12, "hi"), Decision{Verdict: VerdictDeny, Reason: ReasonRejected, Role: entity.RoleUser}},
		{"unregistered", msg(99, "hi"), Decision{Verdict: VerdictDeny, Reason: ReasonUnregistered, Role: entity.RoleUser}},
		{"other command is not bootstrap", msg(99, "/help"), Decision{Verdict: VerdictDeny, Reason: ReasonUnregistered, Role: entity.RoleUser}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, gate.Decide(context.Background(), tc.ev))
		})
	}
}

func TestAdmissionGate_DirectoryFailureDenies(t *testing.T) {
	users := newMemUsers()
	users.getErr = errors.New("disk gone")
	gate := NewAdmissionGate(users, Reviewers{}, newFakeTransport(), quietLogger())

	d := gate.Decide(context.Background(), &entity.Event{Kind: entity.KindMessage, Actor: entity.Actor{ID: 5}, Text: "x"})
	assert.Equal(t, VerdictDeny, d.Verdict)
	assert.Equal(t, ReasonUnavailable, d.Reason)
	assert.False(t, d.Admits())
}

func TestAdmissionGate_Notify(t *testing.T) {
	tr := newFakeTransport()
	gate := NewAdmissionGate(newMemUsers(), Reviewers{}, tr, quietLogger())
	ctx := context.Background()

	cb := &entity.Event{Kind: entity.KindCallback, Actor: entity.Actor{ID: 5}, ChatID: 5, CallbackID: "cb1"}
	require.NoError(t, gate.Notify(ctx, cb, Decision{Verdict: VerdictDeny, Reason: ReasonPending}))
	require.Len(t, tr.answers, 1)
	assert.Equal(t, answerCall{CallbackID: "cb1", Text: alertDenyPending, Alert: true}, tr.answers[0])
	assert.Empty(t, tr.sent)

	msg := &entity.Event{Kind: entity.KindMessage, Actor: entity.Actor{ID: 5}, ChatID: 5, Text: "hi"}
	require.NoError(t, gate.Notify(ctx, msg, Decision{Verdict: VerdictDeny, Reason: ReasonUnregistered}))
	require.Len(t, tr.sent, 1)
	assert.Equal(t, textDenyUnregistered, tr.sent[0].Text)

	require.NoError(t, gate.Notify(ctx, msg, Decision{Verdict: VerdictAllow}))
	assert.Len(t, tr.sent, 1, "admitted events get no notice")
}
