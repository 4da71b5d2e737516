package gateway

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"werewolf-bot/internal/game/werewolf"
)

// Render turns an engine event into the message posted for it.
func Render(ev werewolf.Event) string {
	switch e := ev.(type) {
	case werewolf.GameStarted:
		var b strings.Builder
		b.WriteString("🐺 狼人杀开始！\n\n座位：\n")
		for _, p := range e.Participants {
			b.WriteString(p.Label())
			if p.Automated {
				b.WriteString(" 🤖")
			}
			b.WriteString("\n")
		}
		b.WriteString("\n板子：")
		b.WriteString(renderDistribution(e.Distribution))
		b.WriteString("\n请私聊机器人查看身份。")
		return b.String()

	case werewolf.RoleAssigned:
		var b strings.Builder
		fmt.Fprintf(&b, "🎭 你是 %s，身份：%s", e.Self.Label(), e.Self.Role.DisplayName())
		if len(e.Mates) > 0 {
			names := make([]string, len(e.Mates))
			for i, m := range e.Mates {
				names[i] = m.Label()
			}
			fmt.Fprintf(&b, "\n🐺 狼队友：%s", strings.Join(names, "、"))
		}
		return b.String()

	case werewolf.PhaseStarted:
		return renderPhase(e)

	case werewolf.PhaseTimeout:
		if len(e.Missing) == 0 {
			return fmt.Sprintf("⏰ %s 时间到", e.Phase.DisplayName())
		}
		return fmt.Sprintf("⏰ %s 时间到，未行动：%s", e.Phase.DisplayName(), slots(e.Missing))

	case werewolf.WolfIntent:
		return fmt.Sprintf("🐺 %d号 想刀 %d号", e.From, e.Target)

	case werewolf.InspectResult:
		verdict := "好人 👍"
		if e.IsWolf {
			verdict = "狼人 🐺"
		}
		return fmt.Sprintf("🔮 查验结果：%s 是 %s", e.Target.Label(), verdict)

	case werewolf.WitchPrompt:
		var b strings.Builder
		if e.PendingKill != 0 {
			fmt.Fprintf(&b, "🧪 今晚 %d号 被刀了。\n", e.PendingKill)
		} else {
			b.WriteString("🧪 今晚是平安夜。\n")
		}
		if e.CanSave && e.PendingKill != 0 {
			b.WriteString("使用解药：/save\n")
		}
		if e.CanPoison {
			b.WriteString("使用毒药：/poison 座位号\n")
		}
		b.WriteString("不用药：/pass")
		return b.String()

	case werewolf.RetaliationPrompt:
		return fmt.Sprintf("🏹 你是猎人，可以开枪带走一人：/shoot 座位号\n可选：%s\n放弃：/pass", slots(e.Candidates))

	case werewolf.DawnReport:
		if len(e.Deaths) == 0 {
			return fmt.Sprintf("🌅 第%d天 天亮了，昨晚是平安夜。", e.Round)
		}
		return fmt.Sprintf("🌅 第%d天 天亮了，昨晚死亡：%s", e.Round, slots(e.Deaths))

	case werewolf.SpeakerTurn:
		return fmt.Sprintf("🎤 (%d/%d) 请 %s 发言，限时%s，说完发送 /done", e.Index, e.Total, e.Speaker.Label(), seconds(e.Budget))

	case werewolf.Speech:
		return fmt.Sprintf("💬 %s：%s", e.Speaker.Label(), e.Text)

	case werewolf.VoteCast:
		if e.Target == werewolf.Abstain {
			return fmt.Sprintf("🗳 %d号 弃票", e.Voter)
		}
		return fmt.Sprintf("🗳 %d号 → %d号", e.Voter, e.Target)

	case werewolf.VoteResult:
		return renderVoteResult(e)

	case werewolf.Runoff:
		return fmt.Sprintf("⚖️ 平票！%s 进入PK发言", slots(e.Candidates))

	case werewolf.Exiled:
		return fmt.Sprintf("☠️ %s 被放逐出局", e.Player.Label())

	case werewolf.HunterShot:
		return fmt.Sprintf("🏹 猎人 %s 开枪带走了 %s", e.Hunter.Label(), e.Target.Label())

	case werewolf.HunterPassed:
		return fmt.Sprintf("🏹 猎人 %s 放弃开枪", e.Hunter.Label())

	case werewolf.GameOver:
		var b strings.Builder
		fmt.Fprintf(&b, "🏆 游戏结束！%s 获胜，共 %d 轮\n\n身份公布：\n", e.Winner.DisplayName(), e.Rounds)
		for _, p := range e.Participants {
			state := ""
			if !p.Alive {
				state = " ☠️"
			}
			fmt.Fprintf(&b, "%s：%s%s\n", p.Label(), p.Role.DisplayName(), state)
		}
		return strings.TrimRight(b.String(), "\n")

	case werewolf.GameAborted:
		return fmt.Sprintf("🛑 游戏已中止：%s", e.Reason)
	}
	return ""
}

func renderPhase(e werewolf.PhaseStarted) string {
	head := fmt.Sprintf("%s（第%d轮，%s）", e.Phase.DisplayName(), e.Round, seconds(e.Budget))
	switch e.Phase {
	case werewolf.PhaseNightEliminate:
		return head + "\n天黑请闭眼。狼人请私聊机器人：/kill 座位号"
	case werewolf.PhaseNightInspect:
		return head + "\n预言家请私聊机器人：/check 座位号"
	case werewolf.PhaseNightProtect:
		return head + "\n女巫请睁眼。"
	case werewolf.PhaseRetaliate:
		return head + "\n猎人请决定是否开枪。"
	case werewolf.PhaseDayVote:
		return head + "\n请投票：/vote 座位号，弃票：/abstain"
	case werewolf.PhaseRunoffVote:
		return fmt.Sprintf("%s\n只能投给：%s\n/vote 座位号 或 /abstain", head, slots(e.Eligible))
	case werewolf.PhaseDaySpeak, werewolf.PhaseRunoff, werewolf.PhaseLastWords:
		return fmt.Sprintf("%s\n发言顺序：%s", head, slots(e.Eligible))
	}
	return head
}

func renderVoteResult(e werewolf.VoteResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s 结果：\n", e.Phase.DisplayName())

	voters := make([]int, 0, len(e.Ballots))
	for v := range e.Ballots {
		voters = append(voters, v)
	}
	sort.Ints(voters)
	for _, v := range voters {
		if t := e.Ballots[v]; t == werewolf.Abstain {
			fmt.Fprintf(&b, "%d号 弃票\n", v)
		} else {
			fmt.Fprintf(&b, "%d号 → %d号\n", v, t)
		}
	}

	switch e.Tally.Outcome {
	case werewolf.OutcomeWinner:
		fmt.Fprintf(&b, "\n%d号 得票最多（%d票）", e.Tally.Winner, e.Tally.Counts[e.Tally.Winner])
	case werewolf.OutcomeTie:
		fmt.Fprintf(&b, "\n平票：%s", slots(e.Tally.Tied))
	default:
		b.WriteString("\n无人得票")
	}
	if e.Phase == werewolf.PhaseRunoffVote && e.Eliminated == 0 {
		b.WriteString("，本轮无人出局")
	}
	return b.String()
}

func renderDistribution(d werewolf.Distribution) string {
	var parts []string
	for _, r := range werewolf.AllRoles {
		if n := d[r]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s×%d", r.DisplayName(), n))
		}
	}
	return strings.Join(parts, " ")
}

func slots(ss []int) string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = fmt.Sprintf("%d号", s)
	}
	return strings.Join(parts, "、")
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%d秒", int(d.Round(time.Second)/time.Second))
}
