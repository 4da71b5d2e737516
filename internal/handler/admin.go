package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"werewolf-bot/internal/game/werewolf"
)

// AdminHandler handles operator commands.
type AdminHandler struct {
	manager *werewolf.Manager
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(manager *werewolf.Manager) *AdminHandler {
	return &AdminHandler{manager: manager}
}

// HandleTimeout handles /ww_timeout [chat_id]: resolves the current phase as
// if its timer had fired. In a speaking phase that ends only the current
// speaker's turn.
func (h *AdminHandler) HandleTimeout(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	chatID, err := targetChat(c)
	if err != nil {
		return c.Reply(err.Error())
	}

	before, _ := h.manager.GetState(chatID)
	if err := h.manager.ForceTimeout(ctx, chatID); err != nil {
		return c.Reply(errorReply(err))
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("chat_id", chatID).
		Str("operation", "ww_timeout").
		Msg("Admin operation executed")
	return c.Reply(timeoutReply(before.Phase))
}

func timeoutReply(phase werewolf.Phase) string {
	if phase.Speaking() {
		return "✅ 已结束当前发言人的回合，轮到下一位发言"
	}
	return "✅ 已强制结束当前阶段"
}

// HandleAbort handles /ww_abort [chat_id] [reason].
func (h *AdminHandler) HandleAbort(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	chatID, err := targetChat(c)
	if err != nil {
		return c.Reply(err.Error())
	}

	args := c.Args()
	if len(args) > 0 {
		if _, err := strconv.ParseInt(args[0], 10, 64); err == nil {
			args = args[1:]
		}
	}
	reason := strings.Join(args, " ")
	if reason == "" {
		reason = fmt.Sprintf("管理员 %d 中止", sender.ID)
	}

	if err := h.manager.Abort(ctx, chatID, reason); err != nil {
		return c.Reply(errorReply(err))
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("chat_id", chatID).
		Str("reason", reason).
		Str("operation", "ww_abort").
		Msg("Admin operation executed")
	return c.Reply("✅ 游戏已中止")
}

// targetChat reads an explicit chat id argument, defaulting to the current
// group.
func targetChat(c tele.Context) (int64, error) {
	if args := c.Args(); len(args) > 0 {
		if id, err := strconv.ParseInt(args[0], 10, 64); err == nil {
			return id, nil
		}
	}
	chat := c.Chat()
	if chat == nil || chat.Type == tele.ChatPrivate {
		return 0, fmt.Errorf("❌ 用法: /ww_timeout <群ID> 或在群组中直接使用")
	}
	return chat.ID, nil
}
