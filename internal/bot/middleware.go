package bot

import (
	"sync"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"werewolf-bot/internal/config"
)

// PrivateUsers remembers users seen in an allowed group. Only they may send
// night actions to the bot in private once a whitelist is configured.
type PrivateUsers struct {
	mu    sync.RWMutex
	users map[int64]struct{}
}

// NewPrivateUsers creates an empty PrivateUsers set.
func NewPrivateUsers() *PrivateUsers {
	return &PrivateUsers{users: make(map[int64]struct{})}
}

// Allow marks a user as allowed to use the private chat.
func (p *PrivateUsers) Allow(userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[userID] = struct{}{}
}

// Allowed reports whether a user may use the private chat.
func (p *PrivateUsers) Allowed(userID int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.users[userID]
	return ok
}

// WhitelistMiddleware drops updates from groups outside the whitelist and
// private messages from users never seen in an allowed group.
func WhitelistMiddleware(cfg *config.Config, users *PrivateUsers) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			sender := c.Sender()

			if chat == nil || sender == nil {
				return nil
			}

			if chat.Type == tele.ChatPrivate {
				if len(cfg.Whitelist.Chats) == 0 || users.Allowed(sender.ID) {
					return next(c)
				}
				log.Debug().
					Int64("user_id", sender.ID).
					Msg("Ignoring private chat from user not seen in an allowed group")
				return nil
			}

			if !cfg.IsChatAllowed(chat.ID) {
				log.Debug().
					Int64("chat_id", chat.ID).
					Msg("Ignoring update from non-whitelisted chat")
				return nil
			}

			users.Allow(sender.ID)
			return next(c)
		}
	}
}

// AdminMiddleware rejects commands from non-admins.
func AdminMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}

			if !cfg.IsAdmin(sender.ID) {
				log.Warn().
					Int64("user_id", sender.ID).
					Str("command", c.Text()).
					Msg("Non-admin attempted admin command")
				return c.Reply("❌ 权限不足：需要管理员权限")
			}

			return next(c)
		}
	}
}

// LoggingMiddleware logs all incoming updates at debug level.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			logEvent.
				Str("text", c.Text()).
				Msg("Received message")

			return next(c)
		}
	}
}

// RecoveryMiddleware recovers from handler panics.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Msg("Recovered from panic in handler")
					err = c.Reply("❌ 发生内部错误，请稍后重试")
				}
			}()
			return next(c)
		}
	}
}
