package handler

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/murata-lab/costwatch/internal/config"
	"github.com/murata-lab/costwatch/internal/costs"
)

const (
	maxDailyDays     = 31
	maxMonthlyMonths = 12
	maxMessageLen    = 2000

	defaultDailyDays     = 7
	defaultMonthlyMonths = 6
	defaultModelDays     = 30
)

func (h *Handler) cmdCosts(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := h.deferredRespond(s, i); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	now := h.nowFunc()
	sum := h.src.CurrentMonthSummary(ctx)
	today := h.src.DailyCosts(ctx, 1)
	todayCost, _ := costs.TodayTotal(today.Points, now)

	h.followup(s, i, formatSummary(now.UTC().Format("January 2006"), h.src.Availability(), sum, todayCost, today.Faults.Any(), h.budget))
}

func (h *Handler) cmdDaily(s *discordgo.Session, i *discordgo.InteractionCreate) {
	days := intArg(i, "days", defaultDailyDays, maxDailyDays)
	if err := h.deferredRespond(s, i); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	res := h.src.DailyCosts(ctx, days)
	h.followup(s, i, formatDaily(days, res))
}

func (h *Handler) cmdMonthly(s *discordgo.Session, i *discordgo.InteractionCreate) {
	months := intArg(i, "months", defaultMonthlyMonths, maxMonthlyMonths)
	if err := h.deferredRespond(s, i); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	res := h.src.MonthlyCosts(ctx, months)
	h.followup(s, i, formatMonthly(res))
}

func (h *Handler) cmdModels(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.src.Availability().Anthropic {
		h.respond(s, i, "ANTHROPIC_ADMIN_KEY is not set")
		return
	}
	days := intArg(i, "days", defaultModelDays, maxDailyDays)
	if err := h.deferredRespond(s, i); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	start, end := costs.DailyWindow(h.nowFunc(), days)
	models, err := h.src.ModelBreakdown(ctx, start, end)
	if err != nil {
		h.logger.Warn("model breakdown failed", "error", err)
		h.followup(s, i, "Claude usage by model: fetch error")
		return
	}
	h.followup(s, i, formatModels(days, models))
}

func formatSummary(month string, avail costs.Availability, sum costs.Summary, today float64, todayFaulted bool, budget config.Budget) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**API cost (%s)**\n```\n", month)
	fmt.Fprintf(&sb, "OpenAI:    %s\n", providerAmount(avail.OpenAI, sum.Faults.OpenAI, sum.OpenAI, false))
	fmt.Fprintf(&sb, "Anthropic: %s\n", providerAmount(avail.Anthropic, sum.Faults.Anthropic, sum.Anthropic, sum.AnthropicEstimated))
	fmt.Fprintf(&sb, "Total:     $%.2f\n", sum.Total)
	if todayFaulted {
		sb.WriteString("Today:     fetch error\n")
	} else {
		fmt.Fprintf(&sb, "Today:     $%.2f %s\n", today, statusIndicator(today, budget.DailyWarning, budget.DailyCritical))
	}
	sb.WriteString("```")
	return sb.String()
}

func providerAmount(configured, faulted bool, usd float64, estimated bool) string {
	switch {
	case !configured:
		return "not configured"
	case faulted:
		return "fetch error"
	case estimated:
		return fmt.Sprintf("$%.2f (estimated)", usd)
	default:
		return fmt.Sprintf("$%.2f", usd)
	}
}

func formatDaily(days int, res costs.DailyResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Daily cost (last %d days)**\n```\n", days)
	if len(res.Points) == 0 {
		sb.WriteString("no cost data\n")
	} else {
		fmt.Fprintf(&sb, "%-10s %9s %9s %9s\n", "Date", "OpenAI", "Anthropic", "Total")
		var total float64
		for _, p := range res.Points {
			fmt.Fprintf(&sb, "%-10s %9s %9s %9s\n", p.Date, usd(p.OpenAI), usd(p.Anthropic), usd(p.Total))
			total += p.Total
		}
		fmt.Fprintf(&sb, "%-10s %9s %9s %9s\n", "", "", "", usd(total))
	}
	writeFaults(&sb, res.Faults)
	sb.WriteString("```")
	return sb.String()
}

func formatMonthly(res costs.MonthlyResult) string {
	var sb strings.Builder
	sb.WriteString("**Monthly cost**\n```\n")
	fmt.Fprintf(&sb, "%-7s %9s %9s %9s\n", "Month", "OpenAI", "Anthropic", "Total")
	for _, p := range res.Points {
		fmt.Fprintf(&sb, "%-7s %9s %9s %9s\n", p.Key, usd(p.OpenAI), usd(p.Anthropic), usd(p.OpenAI+p.Anthropic))
	}
	writeFaults(&sb, res.Faults)
	sb.WriteString("```")
	return sb.String()
}

func formatModels(days int, models []costs.ModelCost) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Claude usage by model (last %d days)**\n```\n", days)
	if len(models) == 0 {
		sb.WriteString("no usage\n")
	}
	maxLen := 0
	for _, m := range models {
		if len(m.Model) > maxLen {
			maxLen = len(m.Model)
		}
	}
	for _, m := range models {
		fmt.Fprintf(&sb, "%-*s In: %s / Out: %s ~$%.2f\n", maxLen, m.Model, formatTokens(m.InputTokens), formatTokens(m.OutputTokens), m.EstimatedCost)
	}
	sb.WriteString("```")
	return sb.String()
}

func writeFaults(sb *strings.Builder, f costs.Faults) {
	if f.OpenAI {
		sb.WriteString("! OpenAI fetch failed, shown as $0\n")
	}
	if f.Anthropic {
		sb.WriteString("! Anthropic fetch failed, shown as $0\n")
	}
}

func usd(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func formatTokens(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// truncate cuts s to at most n bytes, closing an open code block.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	const tail = "\n...```"
	cut := n - len(tail)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + tail
}
