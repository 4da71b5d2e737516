// Package gateway connects the werewolf engine to Telegram: narration and
// private prompts through Send, speaking rights through chat permissions.
package gateway

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"werewolf-bot/internal/game/werewolf"
)

// API is the part of *tele.Bot the gateway uses.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Restrict(chat *tele.Chat, member *tele.ChatMember) error
	SetGroupPermissions(chat *tele.Chat, perms tele.Rights) error
}

// DefaultMuteDuration bounds a restriction so players are not left muted if
// the bot dies mid-game.
const DefaultMuteDuration = time.Hour

// Telegram implements werewolf.Messenger and werewolf.Moderator.
type Telegram struct {
	api          API
	muteDuration time.Duration
}

// New creates a Telegram gateway.
func New(api API, muteDuration time.Duration) *Telegram {
	if muteDuration <= 0 {
		muteDuration = DefaultMuteDuration
	}
	return &Telegram{api: api, muteDuration: muteDuration}
}

// Announce posts ev to the group, or privately to its recipient.
func (t *Telegram) Announce(ctx context.Context, chatID int64, ev werewolf.Event) error {
	text := Render(ev)
	if text == "" {
		return nil
	}
	to := tele.ChatID(chatID)
	if p, ok := ev.(werewolf.Private); ok {
		to = tele.ChatID(p.Recipient())
	}
	return t.call(ctx, func() error {
		_, err := t.api.Send(to, text)
		return err
	})
}

// Mute stops userID from posting in the chat.
func (t *Telegram) Mute(ctx context.Context, chatID, userID int64) error {
	return t.restrict(ctx, chatID, userID, tele.Rights{})
}

// Unmute lets userID post again.
func (t *Telegram) Unmute(ctx context.Context, chatID, userID int64) error {
	return t.restrict(ctx, chatID, userID, speakRights())
}

// LockChat sets whether ordinary members may post.
func (t *Telegram) LockChat(ctx context.Context, chatID int64, locked bool) error {
	perms := speakRights()
	if locked {
		perms = tele.Rights{}
	}
	return t.call(ctx, func() error {
		return t.api.SetGroupPermissions(&tele.Chat{ID: chatID}, perms)
	})
}

func (t *Telegram) restrict(ctx context.Context, chatID, userID int64, rights tele.Rights) error {
	member := &tele.ChatMember{
		User:            &tele.User{ID: userID},
		Rights:          rights,
		RestrictedUntil: time.Now().Add(t.muteDuration).Unix(),
	}
	return t.call(ctx, func() error {
		err := t.api.Restrict(&tele.Chat{ID: chatID}, member)
		if err != nil {
			log.Warn().Err(err).Int64("chat_id", chatID).Int64("user_id", userID).Msg("gateway: restrict failed")
		}
		return err
	})
}

func speakRights() tele.Rights {
	return tele.Rights{
		CanSendMessages:   true,
		CanSendPhotos:     true,
		CanSendVideos:     true,
		CanSendVoiceNotes: true,
		CanSendOther:      true,
		CanAddPreviews:    true,
	}
}

// call runs fn unless ctx is already done, and gives up waiting once ctx
// ends. telebot has no context support, so a late call may still land.
func (t *Telegram) call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
