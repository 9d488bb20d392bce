package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	"github.com/oksasatya/pulse-correction-bot/internal/infrastructure/memory"
)

type fakeArchive struct {
	orders []int64
	err    error
}

func (a *fakeArchive) Archive(_ context.Context, orderID int64, _ []entity.Photo) error {
	a.orders = append(a.orders, orderID)
	return a.err
}

func newOrderService() (*OrderService, *fakeBackend, *fakeTransport) {
	backend := &fakeBackend{}
	tr := newFakeTransport()
	svc := NewOrderService(backend, tr, memory.NewReplaceTargetStore(), nil, quietLogger())
	return svc, backend, tr
}

func album(events ...entity.Event) entity.AlbumBatch {
	return entity.AlbumBatch{Key: "10:g1", Events: events}
}

func TestHandleBatch_BuildsOneSubmission(t *testing.T) {
	svc, backend, tr := newOrderService()

	svc.HandleBatch(context.Background(), album(
		photoEvent(10, 42, 5, "p1", "g1", ""),
		photoEvent(10, 42, 6, "p2", "g1", "shelf 3 is empty"),
		photoEvent(10, 42, 7, "p3", "g1", "ignored"),
	))

	require.Len(t, backend.submissions, 1)
	sub := backend.submissions[0]
	assert.Equal(t, int64(42), sub.UserID)
	assert.Equal(t, int64(10), sub.ChatID)
	assert.Equal(t, "ivan", sub.Username)
	assert.Equal(t, "Ivan Petrov", sub.FullName)
	assert.Equal(t, "shelf 3 is empty", sub.Description)
	assert.Equal(t, 5, sub.UserMessageID)
	assert.Nil(t, sub.ReplaceOrderID)
	require.Len(t, sub.Photos, 3)
	assert.Equal(t, "p1.jpg", sub.Photos[0].Filename)
	assert.Equal(t, []byte("jpeg:p3"), sub.Photos[2].Content)

	require.Len(t, tr.sent, 1)
	assert.Equal(t, textSubmitting, tr.sent[0].Text)
	require.Len(t, tr.edits, 1)
	assert.Contains(t, tr.edits[0].Text, "Заявка #501 успешно создана")
	assert.Contains(t, tr.edits[0].Text, "shelf 3 is empty")
}

func TestHandleBatch_ReplaceTargetOnlyAfterNumericMessage(t *testing.T) {
	svc, backend, tr := newOrderService()
	ctx := context.Background()

	svc.HandleBatch(ctx, album(photoEvent(10, 42, 1, "p1", "", "")))

	num := &entity.Event{Kind: entity.KindMessage, Actor: entity.Actor{ID: 42}, ChatID: 10, Text: "317"}
	require.True(t, num.IsNumericOnly())
	require.NoError(t, svc.CaptureReplaceTarget(ctx, num))
	assert.Contains(t, tr.sentTo(10)[len(tr.sentTo(10))-1].Text, "#317")

	svc.HandleBatch(ctx, album(photoEvent(10, 42, 2, "p2", "", "")))
	svc.HandleBatch(ctx, album(photoEvent(10, 42, 3, "p3", "", "")))

	require.Len(t, backend.submissions, 3)
	assert.Nil(t, backend.submissions[0].ReplaceOrderID)
	require.NotNil(t, backend.submissions[1].ReplaceOrderID)
	assert.Equal(t, int64(317), *backend.submissions[1].ReplaceOrderID)
	assert.Nil(t, backend.submissions[2].ReplaceOrderID, "the target is consumed by one batch")

	var replaced bool
	for _, e := range tr.edits {
		if strings.Contains(e.Text, "обновлена (номер #317 сохранен)") {
			replaced = true
		}
	}
	assert.True(t, replaced)
}

func TestHandleBatch_ReplaceTargetIsPerConversation(t *testing.T) {
	svc, backend, _ := newOrderService()
	ctx := context.Background()

	require.NoError(t, svc.CaptureReplaceTarget(ctx, &entity.Event{Kind: entity.KindMessage, Actor: entity.Actor{ID: 42}, ChatID: 10, Text: "9"}))
	svc.HandleBatch(ctx, album(photoEvent(10, 43, 1, "p", "", "")))

	require.Len(t, backend.submissions, 1)
	assert.Nil(t, backend.submissions[0].ReplaceOrderID)
}

func TestHandleBatch_BackendErrorReportedOnceWithoutRetry(t *testing.T) {
	svc, backend, tr := newOrderService()
	backend.submitErr = &StatusError{StatusCode: 500, Body: "boom"}

	svc.HandleBatch(context.Background(), album(photoEvent(10, 42, 1, "p1", "", "")))

	assert.Len(t, backend.submissions, 1)
	require.Len(t, tr.edits, 1)
	assert.Contains(t, tr.edits[0].Text, "Ошибка сервера (500)")
}

func TestHandleBatch_TransportFailureIsGeneric(t *testing.T) {
	svc, backend, tr := newOrderService()
	backend.submitErr = errors.New("connection refused")

	svc.HandleBatch(context.Background(), album(photoEvent(10, 42, 1, "p1", "", "")))

	require.Len(t, tr.edits, 1)
	assert.Equal(t, textSubmitFailed, tr.edits[0].Text)
}

func TestSubmit_FetchFailureSkipsBackend(t *testing.T) {
	svc, backend, tr := newOrderService()
	tr.fetchErr = errors.New("telegram down")

	_, err := svc.Submit(context.Background(), album(photoEvent(10, 42, 1, "p1", "", "")), nil, entity.MessageRef{ChatID: 10, MessageID: 3})
	require.Error(t, err)
	assert.Empty(t, backend.submissions)
	require.Len(t, tr.edits, 1)
	assert.Equal(t, textSubmitFailed, tr.edits[0].Text)
}

func TestSubmit_EditFailureFallsBackToNewMessage(t *testing.T) {
	svc, _, tr := newOrderService()
	tr.editErr = errors.New("message to edit not found")

	receipt, err := svc.Submit(context.Background(), album(photoEvent(10, 42, 1, "p1", "", "")), nil, entity.MessageRef{ChatID: 10, MessageID: 3})
	require.NoError(t, err)
	require.Len(t, tr.sent, 1)
	assert.Contains(t, tr.sent[0].Text, "Заявка #501")
	assert.Equal(t, int64(501), receipt.ID)
}

func TestSubmit_ArchivesAcceptedPhotos(t *testing.T) {
	svc, _, _ := newOrderService()
	arch := &fakeArchive{err: errors.New("bucket missing")}
	svc.Archive = arch

	receipt, err := svc.Submit(context.Background(), album(photoEvent(10, 42, 1, "p1", "", "")), nil, entity.MessageRef{})
	require.NoError(t, err, "archive failures never fail the submission")
	assert.Equal(t, []int64{receipt.ID}, arch.orders)
}

func TestStartEdit_SetsReplaceTarget(t *testing.T) {
	svc, backend, tr := newOrderService()
	ctx := context.Background()
	press := &entity.Event{Kind: entity.KindCallback, Actor: entity.Actor{ID: 42}, ChatID: 10, CallbackID: "cb",
		CallbackData: "user_edit_88", Notice: entity.MessageRef{ChatID: 10, MessageID: 55}}

	require.NoError(t, svc.StartEdit(ctx, press, 88))
	require.Len(t, tr.sent, 1)
	assert.Equal(t, 55, tr.sent[0].ReplyTo)
	assert.Contains(t, tr.sent[0].Text, "#88")

	svc.HandleBatch(ctx, album(photoEvent(10, 42, 1, "p", "", "")))
	require.NotNil(t, backend.submissions[0].ReplaceOrderID)
	assert.Equal(t, int64(88), *backend.submissions[0].ReplaceOrderID)
}

func TestConfirmOrder(t *testing.T) {
	press := func() *entity.Event {
		return &entity.Event{Kind: entity.KindCallback, Actor: entity.Actor{ID: 42}, ChatID: 10, CallbackID: "cb",
			CallbackData: "user_confirm_12", Notice: entity.MessageRef{ChatID: 10, MessageID: 55}}
	}

	t.Run("done", func(t *testing.T) {
		svc, backend, tr := newOrderService()
		backend.confirmResp = entity.ConfirmReceipt{UserMessageID: 9}

		require.NoError(t, svc.ConfirmOrder(context.Background(), press(), 12))
		assert.Equal(t, []int64{12}, backend.confirms)
		assert.Equal(t, []entity.MessageRef{{ChatID: 10, MessageID: 55}}, tr.cleared)
		require.Len(t, tr.sent, 1)
		assert.Equal(t, orderDoneText(12), tr.sent[0].Text)
		assert.Equal(t, 9, tr.sent[0].ReplyTo)
		assert.Equal(t, alertConfirmInProgress, tr.answers[0].Text)
	})

	t.Run("rejected with detail", func(t *testing.T) {
		svc, backend, tr := newOrderService()
		backend.confirmErr = &StatusError{StatusCode: 409, Detail: "already closed"}

		err := svc.ConfirmOrder(context.Background(), press(), 12)
		require.Error(t, err)
		assert.Empty(t, tr.cleared)
		require.Len(t, tr.sent, 1)
		assert.Equal(t, confirmErrorText("already closed"), tr.sent[0].Text)
	})

	t.Run("unreachable", func(t *testing.T) {
		svc, backend, tr := newOrderService()
		backend.confirmErr = context.DeadlineExceeded

		err := svc.ConfirmOrder(context.Background(), press(), 12)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		require.Len(t, tr.sent, 1)
		assert.Equal(t, textConfirmUnreachable, tr.sent[0].Text)
	})
}

func TestParseOrderData(t *testing.T) {
	id, err := ParseOrderData("user_confirm_12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	id, err = ParseOrderData("user_edit_7")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	for _, bad := range []string{"user_edit_", "user_edit_x", "nothing", "user_confirm_-1"} {
		_, err := ParseOrderData(bad)
		assert.ErrorIs(t, err, ErrBadCallbackData, bad)
	}
}
