package oracle

import (
	"fmt"
	"strings"

	"werewolf-bot/internal/game/werewolf"
)

const systemPrompt = `你是一个沉浸式狼人杀玩家。你必须完全代入你的角色，像真人一样说话，绝对不能暴露你是AI。
回复只能是一个JSON对象，不要输出任何其他内容：
{"action": "<动作>", "target": <座位号>, "text": "<发言内容>"}
不需要目标时 target 填 0，不是发言时 text 留空。`

var actionHints = map[werewolf.ActionKind]string{
	werewolf.ActionKill:    "kill: 选择今晚要刀的玩家",
	werewolf.ActionInspect: "inspect: 查验一名玩家的身份",
	werewolf.ActionSave:    "save: 使用解药救今晚被刀的玩家",
	werewolf.ActionPoison:  "poison: 使用毒药毒死一名玩家",
	werewolf.ActionPass:    "pass: 什么都不做",
	werewolf.ActionShoot:   "shoot: 开枪带走一名玩家",
	werewolf.ActionVote:    "vote: 投票放逐一名玩家",
	werewolf.ActionAbstain: "abstain: 弃票",
	werewolf.ActionSpeak:   "speak: 发言，50到120字，口语化",
}

// buildPrompt renders what the actor knows into the user message.
func buildPrompt(req werewolf.OracleRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "你是%s，身份是%s。\n", req.Actor.Label(), req.Actor.Role.DisplayName())
	fmt.Fprintf(&b, "现在是第%d轮，%s。\n", req.Round, req.Phase.DisplayName())

	b.WriteString("\n场上玩家：\n")
	for _, p := range req.Public.Participants {
		state := "存活"
		if !p.Alive {
			state = "出局"
		}
		fmt.Fprintf(&b, "- %s（%s）\n", p.Label(), state)
	}

	if len(req.Mates) > 0 {
		fmt.Fprintf(&b, "\n你的狼队友：%s\n", joinSlots(req.Mates))
	}
	if len(req.Inspections) > 0 {
		b.WriteString("\n你的查验记录：\n")
		for _, in := range req.Inspections {
			verdict := "好人"
			if in.IsWolf {
				verdict = "狼人"
			}
			fmt.Fprintf(&b, "- 第%d轮 %d号：%s\n", in.Round, in.Target, verdict)
		}
	}
	if req.PendingKill != 0 {
		fmt.Fprintf(&b, "\n今晚被刀的是%d号。\n", req.PendingKill)
	}
	if len(req.Transcript) > 0 {
		b.WriteString("\n最近的发言：\n")
		for _, line := range req.Transcript {
			fmt.Fprintf(&b, "- 第%d轮 %d号：%s\n", line.Round, line.Slot, line.Text)
		}
	}

	b.WriteString("\n可选动作：\n")
	for _, k := range req.Kinds {
		fmt.Fprintf(&b, "- %s\n", actionHints[k])
	}
	if len(req.Candidates) > 0 {
		fmt.Fprintf(&b, "可选目标座位号：%s\n", joinSlots(req.Candidates))
	}
	return b.String()
}

func joinSlots(slots []int) string {
	parts := make([]string, len(slots))
	for i, s := range slots {
		parts[i] = fmt.Sprintf("%d号", s)
	}
	return strings.Join(parts, "、")
}
