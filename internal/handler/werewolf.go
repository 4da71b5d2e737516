// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"werewolf-bot/internal/config"
	"werewolf-bot/internal/game/werewolf"
	"werewolf-bot/internal/service"
)

// WerewolfHandler handles lobby, action and status commands.
type WerewolfHandler struct {
	cfg     *config.Config
	manager *werewolf.Manager
	stats   *service.StatsService
}

// NewWerewolfHandler creates a new WerewolfHandler.
func NewWerewolfHandler(cfg *config.Config, manager *werewolf.Manager, stats *service.StatsService) *WerewolfHandler {
	return &WerewolfHandler{cfg: cfg, manager: manager, stats: stats}
}

// displayName returns the name shown for a sender.
func displayName(u *tele.User) string {
	if u.Username != "" {
		return u.Username
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return fmt.Sprintf("User%d", u.ID)
	}
	return name
}

func (h *WerewolfHandler) register(ctx context.Context, u *tele.User) {
	if err := h.stats.Register(ctx, u.ID, displayName(u)); err != nil {
		log.Warn().Err(err).Int64("user_id", u.ID).Msg("Failed to register player")
	}
}

func groupOnly(c tele.Context) bool {
	chat := c.Chat()
	return chat != nil && chat.Type != tele.ChatPrivate
}

// HandleNew handles /ww_new: opens a lobby with the sender as host.
func (h *WerewolfHandler) HandleNew(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if !groupOnly(c) {
		return c.Reply("❌ 请在群组中开局")
	}
	h.register(ctx, sender)

	l, err := h.manager.OpenLobby(ctx, c.Chat().ID, werewolf.Seat{ID: sender.ID, Name: displayName(sender)})
	if err != nil {
		return c.Reply(errorReply(err))
	}
	return c.Send(renderLobby(l, "🐺 狼人杀报名开始！\n/ww_join 加入 · /ww_addbot 添加AI · /ww_start 开始"))
}

// HandleJoin handles /ww_join.
func (h *WerewolfHandler) HandleJoin(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil || !groupOnly(c) {
		return nil
	}
	h.register(ctx, sender)

	l, err := h.manager.Join(ctx, c.Chat().ID, werewolf.Seat{ID: sender.ID, Name: displayName(sender)})
	if err != nil {
		return c.Reply(errorReply(err))
	}
	return c.Send(renderLobby(l, fmt.Sprintf("✅ %s 加入了游戏", displayName(sender))))
}

// HandleAddBot handles /ww_addbot [name].
func (h *WerewolfHandler) HandleAddBot(c tele.Context) error {
	ctx := context.Background()
	if c.Sender() == nil || !groupOnly(c) {
		return nil
	}
	l, err := h.manager.AddBot(ctx, c.Chat().ID, strings.Join(c.Args(), " "))
	if err != nil {
		return c.Reply(errorReply(err))
	}
	added := l.Seats[len(l.Seats)-1]
	return c.Send(renderLobby(l, fmt.Sprintf("🤖 %s 加入了游戏", added.Name)))
}

// HandleLeave handles /ww_leave.
func (h *WerewolfHandler) HandleLeave(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil || !groupOnly(c) {
		return nil
	}
	l, err := h.manager.Leave(ctx, c.Chat().ID, sender.ID)
	if err != nil {
		return c.Reply(errorReply(err))
	}
	if l == nil {
		return c.Send("🚪 所有玩家已离开，报名关闭")
	}
	return c.Send(renderLobby(l, fmt.Sprintf("🚪 %s 离开了游戏", displayName(sender))))
}

// HandleStart handles /ww_start. Only the host or an admin may start.
func (h *WerewolfHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil || !groupOnly(c) {
		return nil
	}
	chatID := c.Chat().ID

	l, err := h.manager.GetLobby(chatID)
	if err != nil {
		return c.Reply(errorReply(err))
	}
	if l.HostID != sender.ID && !h.cfg.IsAdmin(sender.ID) {
		return c.Reply("❌ 只有房主可以开始游戏")
	}

	snap, err := h.manager.StartFromLobby(ctx, chatID)
	if err != nil {
		return c.Reply(errorReply(err))
	}
	log.Info().
		Int64("chat_id", chatID).
		Str("game_id", snap.GameID).
		Int("players", len(snap.Participants)).
		Msg("Werewolf game started")
	return nil
}

// HandleStatus handles /ww_status: the lobby, or the public game state.
func (h *WerewolfHandler) HandleStatus(c tele.Context) error {
	chatID, ok := h.gameChat(c)
	if !ok {
		return c.Reply(errorReply(werewolf.ErrNoActiveSession))
	}
	if l, err := h.manager.GetLobby(chatID); err == nil {
		return c.Reply(renderLobby(l, "📋 报名中"))
	}
	snap, err := h.manager.GetState(chatID)
	if err != nil {
		return c.Reply(errorReply(err))
	}
	return c.Reply(renderStatus(snap.Public()))
}

// gameChat returns the group a command applies to. Private commands go to
// the game the sender is playing in.
func (h *WerewolfHandler) gameChat(c tele.Context) (int64, bool) {
	chat := c.Chat()
	if chat == nil {
		return 0, false
	}
	if chat.Type != tele.ChatPrivate {
		return chat.ID, true
	}
	if c.Sender() == nil {
		return 0, false
	}
	return h.manager.ChatOf(c.Sender().ID)
}

// Action returns a handler submitting kind. Night abilities are accepted in
// the private chat only, so a wolf cannot give itself away.
func (h *WerewolfHandler) Action(kind werewolf.ActionKind) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := context.Background()
		sender := c.Sender()
		if sender == nil {
			return nil
		}
		chatID, ok := h.gameChat(c)
		if !ok {
			return c.Reply(errorReply(werewolf.ErrNoActiveSession))
		}
		secret := secretAction(kind)
		if kind == werewolf.ActionPass {
			snap, err := h.manager.GetState(chatID)
			secret = err == nil && snap.Phase.Night()
		}
		if secret && groupOnly(c) {
			return c.Reply("🤫 请私聊机器人使用该命令")
		}

		p, err := parseProposal(kind, c.Args())
		if err != nil {
			return c.Reply(err.Error())
		}
		if err := h.manager.SubmitAction(ctx, chatID, sender.ID, p); err != nil {
			log.Debug().
				Err(err).
				Int64("chat_id", chatID).
				Int64("user_id", sender.ID).
				Str("kind", string(kind)).
				Msg("Action rejected")
			return c.Reply(errorReply(err))
		}
		if secret {
			return c.Reply("✅ 已提交")
		}
		return nil
	}
}

// HandleText forwards group chat text to the game as speech.
func (h *WerewolfHandler) HandleText(c tele.Context) error {
	sender := c.Sender()
	if sender == nil || !groupOnly(c) {
		return nil
	}
	text := c.Text()
	if strings.HasPrefix(text, "/") {
		return nil
	}
	h.manager.Hear(c.Chat().ID, sender.ID, text)
	return nil
}

func secretAction(kind werewolf.ActionKind) bool {
	switch kind {
	case werewolf.ActionKill, werewolf.ActionInspect, werewolf.ActionSave, werewolf.ActionPoison:
		return true
	}
	return false
}

var usage = map[werewolf.ActionKind]string{
	werewolf.ActionKill:    "/kill <号码>",
	werewolf.ActionInspect: "/check <号码>",
	werewolf.ActionPoison:  "/poison <号码>",
	werewolf.ActionShoot:   "/shoot <号码>",
	werewolf.ActionVote:    "/vote <号码>",
}

// parseProposal builds a proposal from command arguments.
func parseProposal(kind werewolf.ActionKind, args []string) (werewolf.Proposal, error) {
	p := werewolf.Proposal{Kind: kind}
	switch kind {
	case werewolf.ActionSave, werewolf.ActionPass, werewolf.ActionAbstain:
		return p, nil
	case werewolf.ActionSpeak:
		p.Text = strings.Join(args, " ")
		return p, nil
	}
	if len(args) < 1 {
		return p, fmt.Errorf("❌ 用法: %s", usage[kind])
	}
	slot, err := strconv.Atoi(strings.TrimSuffix(args[0], "号"))
	if err != nil || slot <= 0 {
		return p, fmt.Errorf("❌ 请输入有效的号码\n用法: %s", usage[kind])
	}
	p.Target = slot
	return p, nil
}

// errorReply maps engine errors to user replies.
func errorReply(err error) string {
	switch {
	case errors.Is(err, werewolf.ErrSelfTarget):
		return "❌ 不能选择自己"
	case errors.Is(err, werewolf.ErrTargetDead):
		return "❌ 该玩家已出局"
	case errors.Is(err, werewolf.ErrTargetNotFound):
		return "❌ 没有这个号码"
	case errors.Is(err, werewolf.ErrFactionMate):
		return "❌ 不能选择狼队友"
	case errors.Is(err, werewolf.ErrNotRunoffCandidate):
		return "❌ 只能投给PK台上的玩家"
	case errors.Is(err, werewolf.ErrInvalidTarget):
		return "❌ 目标无效"
	case errors.Is(err, werewolf.ErrDuplicateSubmission):
		return "❌ 本阶段你已经行动过了"
	case errors.Is(err, werewolf.ErrPhaseResolved):
		return "⏰ 本阶段已结束"
	case errors.Is(err, werewolf.ErrNoActiveSession):
		return "❌ 当前没有进行中的游戏"
	case errors.Is(err, werewolf.ErrSessionExists):
		return "❌ 本群已有游戏或报名"
	case errors.Is(err, werewolf.ErrNotParticipant):
		return "❌ 你现在不能这样做"
	case errors.Is(err, werewolf.ErrNotYourTurn):
		return "❌ 还没轮到你发言"
	case errors.Is(err, werewolf.ErrChargeUsed):
		return "❌ 这瓶药已经用过了"
	case errors.Is(err, werewolf.ErrUnsupportedAction):
		return "❌ 当前阶段不能这样做"
	case errors.Is(err, werewolf.ErrNotEnoughPlayers):
		return fmt.Sprintf("❌ 人数不足，需要 %d-%d 人", werewolf.MinPlayers, werewolf.MaxPlayers)
	case errors.Is(err, werewolf.ErrNoLobby):
		return "❌ 本群没有报名中的游戏，使用 /ww_new 开局"
	case errors.Is(err, werewolf.ErrAlreadyJoined):
		return "❌ 你已经在游戏中了"
	case errors.Is(err, werewolf.ErrLobbyFull):
		return fmt.Sprintf("❌ 人数已满（%d人）", werewolf.MaxPlayers)
	case errors.Is(err, werewolf.ErrInvalidDistribution):
		return "❌ 无法为当前人数分配角色"
	}
	log.Error().Err(err).Msg("Werewolf command failed")
	return "❌ 操作失败，请稍后重试"
}

func renderLobby(l *werewolf.Lobby, header string) string {
	var b strings.Builder
	b.WriteString(header)
	fmt.Fprintf(&b, "\n━━━━━━━━━━━━━━━\n👥 玩家 %d/%d\n", len(l.Seats), werewolf.MaxPlayers)
	for i, s := range l.Seats {
		tag := ""
		switch {
		case s.ID == l.HostID:
			tag = " 👑"
		case s.Automated:
			tag = " 🤖"
		}
		fmt.Fprintf(&b, "%d. %s%s\n", i+1, s.Name, tag)
	}
	if len(l.Seats) < werewolf.MinPlayers {
		fmt.Fprintf(&b, "还需 %d 人", werewolf.MinPlayers-len(l.Seats))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderStatus(snap werewolf.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 第 %d 轮 · %s\n━━━━━━━━━━━━━━━\n", snap.Round, snap.Phase.DisplayName())
	for _, p := range snap.Participants {
		mark := "🟢"
		if !p.Alive {
			mark = "💀"
		}
		fmt.Fprintf(&b, "%s %s", mark, p.Label())
		if p.Role != "" {
			fmt.Fprintf(&b, "（%s）", p.Role.DisplayName())
		}
		if p.Slot == snap.Speaker {
			b.WriteString(" 🎤")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
