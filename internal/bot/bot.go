// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"werewolf-bot/internal/config"
	"werewolf-bot/internal/game"
	"werewolf-bot/internal/game/werewolf"
	"werewolf-bot/internal/handler"
	"werewolf-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot      *tele.Bot
	cfg      *config.Config
	registry *game.Registry
	users    *PrivateUsers

	// Handlers
	werewolfHandler *handler.WerewolfHandler
	statsHandler    *handler.StatsHandler
	adminHandler    *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config       *config.Config
	Manager      *werewolf.Manager
	StatsService *service.StatsService
	GameRegistry *game.Registry
}

// NewClient creates the telebot client. It is built before the bot so the
// engine's gateways can share it.
func NewClient(cfg *config.Config) (*tele.Bot, error) {
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  cfg.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Telegram handler error")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return teleBot, nil
}

// New wires handlers onto client.
func New(client *tele.Bot, deps *Dependencies) *Bot {
	b := &Bot{
		bot:      client,
		cfg:      deps.Config,
		registry: deps.GameRegistry,
		users:    NewPrivateUsers(),
	}

	b.werewolfHandler = handler.NewWerewolfHandler(deps.Config, deps.Manager, deps.StatsService)
	b.statsHandler = handler.NewStatsHandler(deps.StatsService)
	b.adminHandler = handler.NewAdminHandler(deps.Manager)

	b.registerMiddleware()
	b.registerHandlers()

	return b
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg, b.users))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.handleHelp)
	b.bot.Handle("/help", b.handleHelp)

	// Lobby
	w := b.werewolfHandler
	b.bot.Handle("/ww_new", w.HandleNew)
	b.bot.Handle("/ww_join", w.HandleJoin)
	b.bot.Handle("/ww_addbot", w.HandleAddBot)
	b.bot.Handle("/ww_leave", w.HandleLeave)
	b.bot.Handle("/ww_start", w.HandleStart)
	b.bot.Handle("/ww_status", w.HandleStatus)

	// Actions
	b.bot.Handle("/kill", w.Action(werewolf.ActionKill))
	b.bot.Handle("/check", w.Action(werewolf.ActionInspect))
	b.bot.Handle("/save", w.Action(werewolf.ActionSave))
	b.bot.Handle("/poison", w.Action(werewolf.ActionPoison))
	b.bot.Handle("/pass", w.Action(werewolf.ActionPass))
	b.bot.Handle("/shoot", w.Action(werewolf.ActionShoot))
	b.bot.Handle("/vote", w.Action(werewolf.ActionVote))
	b.bot.Handle("/abstain", w.Action(werewolf.ActionAbstain))
	b.bot.Handle("/done", w.Action(werewolf.ActionSpeak))
	b.bot.Handle(tele.OnText, w.HandleText)

	// Stats
	b.bot.Handle("/ww_top", b.statsHandler.HandleTop)
	b.bot.Handle("/ww_me", b.statsHandler.HandleMe)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/ww_timeout", b.adminHandler.HandleTimeout)
	adminGroup.Handle("/ww_abort", b.adminHandler.HandleAbort)
}

// handleHelp lists the registered games and the werewolf commands.
func (b *Bot) handleHelp(c tele.Context) error {
	var sb strings.Builder
	sb.WriteString("🎮 可用游戏\n━━━━━━━━━━━━━━━\n")
	for _, g := range b.registry.List() {
		fmt.Fprintf(&sb, "%s（/%s_new）：%s\n", g.Name(), g.Command(), g.Description())
	}
	if chat := c.Chat(); chat != nil {
		if g, ok := b.registry.ActiveIn(chat.ID); ok {
			fmt.Fprintf(&sb, "\n▶️ 本群正在进行：%s（/%s_status）\n", g.Name(), g.Command())
		}
	}
	sb.WriteString("\n报名：/ww_new /ww_join /ww_addbot /ww_leave /ww_start\n")
	sb.WriteString("夜晚（私聊）：/kill /check /save /poison /pass\n")
	sb.WriteString("白天：/done 结束发言 · /vote /abstain · 猎人 /shoot\n")
	sb.WriteString("其他：/ww_status /ww_top /ww_me")
	return c.Reply(sb.String())
}

// Start starts the bot polling.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
