package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mzwei/xiaoz/internal/xiaoz/commands"
	"github.com/mzwei/xiaoz/internal/xiaoz/reminder"
)

// execute runs a parsed structured reminder command and renders the reply.
func (a *App) execute(ctx context.Context, sender string, cmd commands.Command) string {
	switch c := cmd.(type) {
	case commands.Handshake:
		a.reminders.BeginHandshake(sender)
		return fmt.Sprintf(
			"请严格按照以下格式输入你的提醒 (北京时间):\n"+
				"提醒内容：<提醒事项> 提醒时间：YYYY/MM/DD HH:MM\n"+
				"⚠️ 注意：必须在同一条消息中再次 %s，并且是同一个人填写提醒信息。",
			a.mention)

	case commands.List:
		list := a.reminders.ListReminders(sender)
		if len(list) == 0 {
			return "你目前没有设置任何提醒。"
		}
		var b strings.Builder
		b.WriteString("📅 你的提醒：")
		for i, r := range list {
			fmt.Fprintf(&b, "\n%d️⃣ [%s] - %s", i+1, r.Content, r.DisplayText)
		}
		return b.String()

	case commands.Add:
		_, err := a.reminders.AddReminder(ctx, sender, c.Content, c.DueAt, c.TimeStr)
		switch {
		case errors.Is(err, reminder.ErrNoHandshake):
			return fmt.Sprintf("⚠️ 你还未初始化提醒功能，请先发送 '%s 提醒功能'。", a.mention)
		case errors.Is(err, reminder.ErrPastDue):
			return "⚠️ 提醒时间已过，请设置未来的时间。"
		case err != nil:
			return apologyReply
		}
		return "✅ 你的提醒已记录！到时间我会提醒你~"

	case commands.Delete:
		removed, err := a.reminders.DeleteReminder(ctx, sender, c.Keyword)
		if errors.Is(err, reminder.ErrNotFound) {
			return "⚠️ 未找到匹配的提醒。"
		}
		if err != nil {
			return apologyReply
		}
		return fmt.Sprintf("🗑 已删除提醒：\"%s\" (%s)", removed.Content, removed.DisplayText)

	case commands.Modify:
		old, err := a.reminders.ModifyReminder(ctx, sender, c.Keyword, c.Content, c.DueAt, c.TimeStr)
		switch {
		case errors.Is(err, reminder.ErrPastDue):
			return "⚠️ 新提醒时间已过，请设置未来的时间。"
		case errors.Is(err, reminder.ErrNotFound):
			return "⚠️ 未找到匹配的提醒。"
		case err != nil:
			return apologyReply
		}
		return fmt.Sprintf("✅ 你的提醒已更新！\n旧提醒：\"%s\" (%s)\n新提醒：\"%s\" (%s)",
			old.Content, old.DisplayText, c.Content, c.TimeStr)
	}
	return ""
}
