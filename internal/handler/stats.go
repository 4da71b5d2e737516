package handler

import (
	"context"
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v3"

	"werewolf-bot/internal/service"
)

// StatsHandler handles the leaderboard and profile commands.
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// HandleTop handles /ww_top [n].
func (h *StatsHandler) HandleTop(c tele.Context) error {
	ctx := context.Background()

	limit := service.DefaultTopLimit
	if args := c.Args(); len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			limit = n
		}
	}

	board, err := h.stats.Leaderboard(ctx, limit)
	if err != nil {
		return c.Reply("❌ 获取排行榜失败，请稍后重试")
	}

	msg := "🏆 狼人杀排行榜\n"
	msg += "━━━━━━━━━━━━━━━\n"
	if len(board) == 0 {
		return c.Reply(msg + "暂无数据")
	}
	medals := []string{"🥇", "🥈", "🥉"}
	for _, e := range board {
		rank := fmt.Sprintf("%d.", e.Rank)
		if e.Rank <= len(medals) {
			rank = medals[e.Rank-1]
		}
		name := e.Player.Username
		if name == "" {
			name = fmt.Sprintf("User%d", e.Player.TelegramID)
		}
		msg += fmt.Sprintf("%s %s: %d胜/%d局 (%.0f%%)\n", rank, name, e.Player.Wins, e.Player.GamesPlayed, e.Player.WinRate()*100)
	}
	msg += "━━━━━━━━━━━━━━━"
	return c.Reply(msg)
}

// HandleMe handles /ww_me.
func (h *StatsHandler) HandleMe(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	p, err := h.stats.Profile(ctx, sender.ID, displayName(sender))
	if err != nil {
		return c.Reply("❌ 获取战绩失败，请稍后重试")
	}
	return c.Reply(fmt.Sprintf(
		"📊 %s 的战绩\n\n"+
			"🎮 对局: %d\n"+
			"🏆 胜场: %d\n"+
			"📈 胜率: %.1f%%",
		displayName(sender), p.GamesPlayed, p.Wins, p.WinRate()*100,
	))
}
