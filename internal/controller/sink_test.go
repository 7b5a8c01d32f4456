package controller

import (
	"context"
	"errors"
	"testing"

	"github.com/Freeeeeet/slot_swapper/internal/controller/keyboard"
	"github.com/Freeeeeet/slot_swapper/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeSender struct {
	sent []*bot.SendMessageParams
	err  error
}

func (s *fakeSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	s.sent = append(s.sent, params)
	if s.err != nil {
		return nil, s.err
	}
	return &models.Message{ID: len(s.sent)}, nil
}

type usersByID map[int64]*model.User

func (u usersByID) GetByID(_ context.Context, id int64) (*model.User, error) {
	return u[id], nil
}

func swapRequest() *model.SwapRequest {
	return &model.SwapRequest{
		ID: 5, RequesterID: 1, RequestedUserID: 2,
		Requester:     &model.User{ID: 1, FirstName: "Ann"},
		RequestedUser: &model.User{ID: 2, FirstName: "Bob"},
	}
}

func TestTelegramSink_SwapRequestHasButtons(t *testing.T) {
	sender := &fakeSender{}
	sink := NewTelegramSink(sender, usersByID{2: {ID: 2, TelegramID: 2002}}, zaptest.NewLogger(t))

	n := model.NewSwapNotification(model.NotificationSwapRequest, swapRequest(), swapRequest().CreatedAt)
	require.NoError(t, sink.Deliver(context.Background(), n))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, int64(2002), msg.ChatID)
	assert.Equal(t, models.ParseModeHTML, msg.ParseMode)

	markup, ok := msg.ReplyMarkup.(*models.InlineKeyboardMarkup)
	require.True(t, ok)
	id, accept, err := keyboard.ParseSwapResponse(markup.InlineKeyboard[0][0].CallbackData)
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
	assert.True(t, accept)
}

func TestTelegramSink_ResponseHasNoButtons(t *testing.T) {
	sender := &fakeSender{}
	sink := NewTelegramSink(sender, usersByID{1: {ID: 1, TelegramID: 1001}}, zaptest.NewLogger(t))

	n := model.NewSwapNotification(model.NotificationSwapAccepted, swapRequest(), swapRequest().CreatedAt)
	require.NoError(t, sink.Deliver(context.Background(), n))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(1001), sender.sent[0].ChatID)
	assert.Nil(t, sender.sent[0].ReplyMarkup)
}

func TestTelegramSink_SkipsUnknownRecipient(t *testing.T) {
	sender := &fakeSender{}
	sink := NewTelegramSink(sender, usersByID{}, zaptest.NewLogger(t))

	n := model.NewSwapNotification(model.NotificationSwapRequest, swapRequest(), swapRequest().CreatedAt)
	require.NoError(t, sink.Deliver(context.Background(), n))
	assert.Empty(t, sender.sent)
}

func TestTelegramSink_SendFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("429 too many requests")}
	sink := NewTelegramSink(sender, usersByID{2: {ID: 2, TelegramID: 2002}}, zaptest.NewLogger(t))

	n := model.NewSwapNotification(model.NotificationSwapRequest, swapRequest(), swapRequest().CreatedAt)
	err := sink.Deliver(context.Background(), n)
	require.ErrorIs(t, err, sender.err)
}
